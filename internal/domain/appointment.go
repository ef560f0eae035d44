package domain

import "time"

// AppointmentStatus tracks an appointment through its lifecycle.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"

	// StatusPendingManual marks a booking taken while the calendar backend
	// was unreachable. It is recorded locally and must be confirmed by a
	// human before it occupies a slot.
	StatusPendingManual AppointmentStatus = "pending_manual"
)

// Appointment is a committed (or attempted) booking.
type Appointment struct {
	ID           string            `json:"id"`
	CustomerName string            `json:"customerName"`
	Phone        string            `json:"phone,omitempty"`
	Service      string            `json:"service"`
	Date         string            `json:"date"` // DateFormat, e.g. "Friday, June 6"
	Time         string            `json:"time"` // TimeFormat, e.g. "10:00 AM"
	Status       AppointmentStatus `json:"status"`
	EventID      string            `json:"eventId,omitempty"` // external calendar event id
	Notes        string            `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Active reports whether the appointment still occupies its slot.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}
