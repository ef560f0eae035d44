package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oakhurst-labs/frontdesk/internal/domain"
)

// AppointmentStore persists bookings. The calendar remains the conflict
// authority; this table is the local book of record for lookups by
// phone or name and for bookings taken while the calendar was down.
type AppointmentStore struct {
	db *DB
}

// NewAppointmentStore creates an appointment store using the given database.
func NewAppointmentStore(db *DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

// Append inserts a booking. A missing id gets a generated one, which is
// also written back to the appointment.
func (s *AppointmentStore) Append(appt *domain.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.New().String()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now()
	}
	_, err := s.db.sql.Exec(
		`INSERT INTO appointments (id, customer_name, phone, service, date, time, status, event_id, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appt.ID, appt.CustomerName, appt.Phone, appt.Service, appt.Date, appt.Time,
		string(appt.Status), appt.EventID, appt.Notes, appt.CreatedAt.UTC().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting appointment: %w", err)
	}
	return nil
}

// Get returns an appointment by id, or nil if not found.
func (s *AppointmentStore) Get(id string) *domain.Appointment {
	row := s.db.sql.QueryRow(
		`SELECT id, customer_name, phone, service, date, time, status, event_id, notes, created_at
		 FROM appointments WHERE id = ?`, id)
	return scanAppointment(row)
}

// FindByPhone returns the caller's appointments, newest first.
func (s *AppointmentStore) FindByPhone(phone string) ([]*domain.Appointment, error) {
	return s.query(
		`SELECT id, customer_name, phone, service, date, time, status, event_id, notes, created_at
		 FROM appointments WHERE phone = ? ORDER BY created_at DESC`, phone)
}

// FindByName returns appointments matching the customer name,
// case-insensitively, newest first.
func (s *AppointmentStore) FindByName(name string) ([]*domain.Appointment, error) {
	return s.query(
		`SELECT id, customer_name, phone, service, date, time, status, event_id, notes, created_at
		 FROM appointments WHERE customer_name = ? COLLATE NOCASE ORDER BY created_at DESC`, name)
}

// ListPending returns bookings awaiting manual confirmation, oldest
// first so staff work them in arrival order.
func (s *AppointmentStore) ListPending() ([]*domain.Appointment, error) {
	return s.query(
		`SELECT id, customer_name, phone, service, date, time, status, event_id, notes, created_at
		 FROM appointments WHERE status = ? ORDER BY created_at ASC`,
		string(domain.StatusPendingManual))
}

// List returns all appointments, newest first.
func (s *AppointmentStore) List() ([]*domain.Appointment, error) {
	return s.query(
		`SELECT id, customer_name, phone, service, date, time, status, event_id, notes, created_at
		 FROM appointments ORDER BY created_at DESC`)
}

// UpdateStatus moves an appointment through its lifecycle.
func (s *AppointmentStore) UpdateStatus(id string, status domain.AppointmentStatus) error {
	res, err := s.db.sql.Exec(`UPDATE appointments SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no appointment %s", id)
	}
	return nil
}

// UpdateSlot rewrites the booked slot after a modification.
func (s *AppointmentStore) UpdateSlot(id, date, timeStr string) error {
	res, err := s.db.sql.Exec(`UPDATE appointments SET date = ?, time = ? WHERE id = ?`, date, timeStr, id)
	if err != nil {
		return fmt.Errorf("updating slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no appointment %s", id)
	}
	return nil
}

func (s *AppointmentStore) query(q string, args ...any) ([]*domain.Appointment, error) {
	rows, err := s.db.sql.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying appointments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Appointment
	for rows.Next() {
		appt, err := scanAppointmentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) *domain.Appointment {
	appt, err := scanAppointmentRow(row)
	if err != nil {
		return nil
	}
	return appt
}

func scanAppointmentRow(row rowScanner) (*domain.Appointment, error) {
	var appt domain.Appointment
	var status, createdAt string
	if err := row.Scan(
		&appt.ID, &appt.CustomerName, &appt.Phone, &appt.Service,
		&appt.Date, &appt.Time, &status, &appt.EventID, &appt.Notes, &createdAt,
	); err != nil {
		return nil, err
	}
	appt.Status = domain.AppointmentStatus(status)
	appt.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &appt, nil
}
