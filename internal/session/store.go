// Package session tracks live call sessions and reaps abandoned ones.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
	"github.com/oakhurst-labs/frontdesk/internal/logging"
	"github.com/oakhurst-labs/frontdesk/internal/metrics"
)

// ErrExists is returned when a session id is created twice, which
// happens when a telephony webhook is delivered more than once.
var ErrExists = fmt.Errorf("session already exists")

// Store holds all in-flight call sessions. Access to session pointers is
// handed out directly; callers mutate a session only from the goroutine
// handling that call's current turn.
type Store struct {
	idle time.Duration
	met  *metrics.Metrics
	log  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*domain.CallSession

	stop chan struct{}
	done chan struct{}
	now  func() time.Time
}

// NewStore creates a store that considers sessions idle after the given
// duration.
func NewStore(idle time.Duration, met *metrics.Metrics, log *logging.Logger) *Store {
	return &Store{
		idle:     idle,
		met:      met,
		log:      log.Sub("sessions"),
		sessions: make(map[string]*domain.CallSession),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}
}

// Create registers a new session for a call. Returns ErrExists when the
// id is already live, so duplicate webhook deliveries do not reset a
// conversation in progress.
func (s *Store) Create(callID, callerNumber string) (*domain.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[callID]; ok {
		return nil, ErrExists
	}
	sess := domain.NewCallSession(callID, callerNumber)
	s.sessions[callID] = sess
	s.met.ActiveSessions.Set(float64(len(s.sessions)))
	s.log.Debug().Str("callId", callID).Msg("session created")
	return sess, nil
}

// Get returns the live session for a call id.
func (s *Store) Get(callID string) (*domain.CallSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[callID]
	return sess, ok
}

// Remove drops a session, normally when the call ends.
func (s *Store) Remove(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[callID]; ok {
		delete(s.sessions, callID)
		s.met.ActiveSessions.Set(float64(len(s.sessions)))
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartReaper launches the background sweep that abandons idle sessions
// every interval. Call Close to stop it.
func (s *Store) StartReaper(interval time.Duration) {
	go func() {
		defer close(s.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				s.reap()
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the reaper.
func (s *Store) Close() {
	close(s.stop)
	<-s.done
}

// reap marks sessions idle past the threshold as abandoned and drops
// them. A caller who went silent mid-booking never completed, so nothing
// is persisted here.
func (s *Store) reap() {
	cutoff := s.now().Add(-s.idle)

	s.mu.Lock()
	var reaped []string
	for id, sess := range s.sessions {
		if sess.LastActiveAt.Before(cutoff) {
			sess.State = domain.StateAbandoned
			delete(s.sessions, id)
			reaped = append(reaped, id)
		}
	}
	s.met.ActiveSessions.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	for _, id := range reaped {
		s.met.ReapedSessions.Inc()
		s.log.Info().Str("callId", id).Msg("session abandoned after idle timeout")
	}
}
