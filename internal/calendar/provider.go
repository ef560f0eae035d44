// Package calendar abstracts the external calendar behind a capability
// interface so callers never branch on whether a real calendar is
// configured.
package calendar

import (
	"context"
	"time"
)

// Event is one block of occupied time on the calendar.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Provider is the calendar capability. Implemented by the Google adapter
// and by Noop, which always reports availability.
type Provider interface {
	// ListEvents returns events overlapping [from, to).
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)

	// InsertEvent creates an event and returns its id.
	InsertEvent(ctx context.Context, ev Event) (string, error)

	// UpdateEvent replaces the event with the given id.
	UpdateEvent(ctx context.Context, id string, ev Event) error

	// DeleteEvent removes the event with the given id.
	DeleteEvent(ctx context.Context, id string) error
}

// Noop is the adapter used when no calendar is configured. Reads report
// an empty calendar; writes succeed with synthetic ids so the booking
// flow works end to end in local setups.
type Noop struct{}

func (Noop) ListEvents(context.Context, time.Time, time.Time) ([]Event, error) {
	return nil, nil
}

func (Noop) InsertEvent(_ context.Context, ev Event) (string, error) {
	return "local-" + ev.Start.Format("20060102T1504"), nil
}

func (Noop) UpdateEvent(context.Context, string, Event) error { return nil }

func (Noop) DeleteEvent(context.Context, string) error { return nil }
