// Package breaker implements a circuit breaker for fault isolation around
// flaky external calls (AI, TTS, calendar).
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// ErrOpen is returned when the breaker is open and the call is not attempted.
var ErrOpen = errors.New("circuit breaker is open")

// State of a breaker.
type State string

const (
	Closed   State = "closed"
	Open     State = "open"
	HalfOpen State = "half_open"
)

// Config tunes a breaker.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	RecoveryTimeout  time.Duration // how long to stay open before a trial call
	SuccessThreshold int           // consecutive half-open successes to close
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = 60 * time.Second
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	return c
}

// Breaker guards one protected operation. Safe for concurrent callers;
// construct one instance per call site and inject it.
type Breaker struct {
	name string
	cfg  Config
	log  *logging.Logger

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time

	observer func(Snapshot) // notified after every state transition

	now func() time.Time // injectable clock for tests
}

// New creates a closed breaker named for its protected call site.
func New(name string, cfg Config, log *logging.Logger) *Breaker {
	return &Breaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		log:   log.Sub("breaker." + name),
		state: Closed,
		now:   time.Now,
	}
}

// OnStateChange registers fn, called with a fresh snapshot after every
// state transition. Set it during wiring, before the breaker is shared.
func (b *Breaker) OnStateChange(fn func(Snapshot)) {
	b.observer = fn
}

// Do runs fn through the breaker. When the breaker is open and the
// recovery timeout has not elapsed, it returns ErrOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	changed, err := b.before()
	if changed {
		b.notify()
	}
	if err != nil {
		return err
	}
	err = fn()
	if b.after(err) {
		b.notify()
	}
	return err
}

func (b *Breaker) notify() {
	if b.observer != nil {
		b.observer(b.Stats())
	}
}

// before decides whether the call may proceed, transitioning open →
// half_open after the recovery timeout. The bool reports a state change.
func (b *Breaker) before() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return false, nil
	}
	if b.now().Sub(b.lastFailure) < b.cfg.RecoveryTimeout {
		return false, ErrOpen
	}
	b.state = HalfOpen
	b.successes = 0
	b.log.Info().Msg("entering half-open, allowing trial call")
	return true, nil
}

// after records the call outcome and reports whether the state changed.
func (b *Breaker) after(err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case HalfOpen:
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.state = Closed
				b.failures = 0
				b.log.Info().Msg("breaker closed after successful trials")
				return true
			}
		case Closed:
			b.failures = 0
		}
		return false
	}

	b.failures++
	b.lastFailure = b.now()

	// Any half-open failure reopens immediately.
	if b.state == HalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != Open {
			b.log.Warn().Int("failures", b.failures).Msg("breaker opened")
			b.state = Open
			return true
		}
	}
	return false
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot reports state and counters for status endpoints and metrics.
type Snapshot struct {
	Name      string `json:"name"`
	State     State  `json:"state"`
	Failures  int    `json:"failures"`
	Successes int    `json:"successes"`
}

// Stats returns a point-in-time snapshot.
func (b *Breaker) Stats() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{Name: b.name, State: b.state, Failures: b.failures, Successes: b.successes}
}
