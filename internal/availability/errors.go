package availability

import (
	"errors"
	"fmt"
)

// ErrCalendarUnavailable wraps backend failures (network, auth) from the
// calendar provider. It is distinct from a genuine conflict and is never
// retried inside the engine.
var ErrCalendarUnavailable = errors.New("calendar backend unavailable")

// ConflictError reports that a slot is already occupied. It is a business
// outcome, not a fault.
type ConflictError struct {
	Date        string
	Time        string
	Description string // e.g. "already booked from 2:00 PM to 3:00 PM"
}

func (e *ConflictError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("slot %s at %s unavailable: %s", e.Date, e.Time, e.Description)
	}
	return fmt.Sprintf("slot %s at %s unavailable", e.Date, e.Time)
}

// IsConflict reports whether err is a scheduling conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
