package store

import (
	"fmt"
	"time"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

// vipCallThreshold promotes a repeat caller to VIP treatment.
const vipCallThreshold = 3

// ProfileStore tracks repeat callers by phone number so returning
// customers can be greeted by name.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a profile store using the given database.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// GetOrCreate returns the profile for a phone number, creating an empty
// one on first contact. The call count is incremented on every call.
func (s *ProfileStore) GetOrCreate(phone string) (*domain.CallerProfile, error) {
	if phone == "" {
		return nil, fmt.Errorf("no caller number")
	}

	now := time.Now().UTC().Format(time.DateTime)
	_, err := s.db.sql.Exec(
		`INSERT INTO caller_profiles (phone, call_count, first_seen, last_seen)
		 VALUES (?, 1, ?, ?)
		 ON CONFLICT(phone) DO UPDATE SET
			call_count = call_count + 1,
			last_seen = excluded.last_seen`,
		phone, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting profile: %w", err)
	}
	return s.Get(phone)
}

// Get returns the profile for a phone number, or nil if never seen.
func (s *ProfileStore) Get(phone string) (*domain.CallerProfile, error) {
	var p domain.CallerProfile
	var vip int
	var firstSeen, lastSeen string
	err := s.db.sql.QueryRow(
		`SELECT phone, name, call_count, preferred_service, vip, first_seen, last_seen
		 FROM caller_profiles WHERE phone = ?`, phone,
	).Scan(&p.Phone, &p.Name, &p.CallCount, &p.PreferredService, &vip, &firstSeen, &lastSeen)
	if err != nil {
		return nil, err
	}
	p.VIP = vip != 0 || p.CallCount >= vipCallThreshold
	p.FirstSeen, _ = time.Parse(time.DateTime, firstSeen)
	p.LastSeen, _ = time.Parse(time.DateTime, lastSeen)
	return &p, nil
}

// RecordBooking updates what we know about a caller after a completed
// booking.
func (s *ProfileStore) RecordBooking(phone, name, service string) error {
	if phone == "" {
		return nil
	}
	_, err := s.db.sql.Exec(
		`UPDATE caller_profiles SET name = ?, preferred_service = ? WHERE phone = ?`,
		name, service, phone,
	)
	if err != nil {
		return fmt.Errorf("recording booking on profile: %w", err)
	}
	return nil
}

// SetVIP flags a caller for priority handling regardless of call count.
func (s *ProfileStore) SetVIP(phone string, vip bool) error {
	v := 0
	if vip {
		v = 1
	}
	_, err := s.db.sql.Exec(`UPDATE caller_profiles SET vip = ? WHERE phone = ?`, v, phone)
	return err
}
