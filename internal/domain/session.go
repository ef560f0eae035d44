// Package domain defines the core types shared across frontdesk:
// call sessions, appointments, caller profiles, and telephony events.
package domain

import "time"

// Canonical spoken-friendly formats used everywhere a date or time is
// stored on a session or appointment, e.g. "Friday, June 6" and "2:00 PM".
const (
	DateFormat = "Monday, January 2"
	TimeFormat = "3:04 PM"
)

// SessionState names the field the caller was most recently prompted for.
// The state machine is non-strict: every turn tries to fill all missing
// fields, not just the one currently being asked about.
type SessionState string

const (
	StateGreeting         SessionState = "greeting"
	StateGatheringName    SessionState = "gathering_name"
	StateGatheringService SessionState = "gathering_service"
	StateGatheringDate    SessionState = "gathering_date"
	StateGatheringTime    SessionState = "gathering_time"
	StateConfirming       SessionState = "confirming"
	StateBooked           SessionState = "booked"
	StateAbandoned        SessionState = "abandoned"
)

// Terminal reports whether no further turns are expected.
func (s SessionState) Terminal() bool {
	return s == StateBooked || s == StateAbandoned
}

// Field keys on a CallSession. Name, service, date and time are required
// before a booking can be attempted; emotion and urgency are derived.
const (
	FieldName    = "name"
	FieldPhone   = "phone"
	FieldService = "service"
	FieldDate    = "date"
	FieldTime    = "time"
	FieldEmotion = "emotion"
	FieldUrgency = "urgency"
)

// RequiredFields must all be set before the booking path runs.
var RequiredFields = []string{FieldName, FieldService, FieldDate, FieldTime}

// Turn is one utterance in the conversation history.
type Turn struct {
	Role      string    `json:"role"` // "caller" or "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// maxHistoryTurns bounds per-session memory; older turns are discarded.
const maxHistoryTurns = 20

// CallSession holds the per-call conversation state. It is owned by the
// session store and mutated only by the handler processing the call's
// current turn.
type CallSession struct {
	CallID       string            `json:"callId"`
	CallerNumber string            `json:"callerNumber,omitempty"`
	State        SessionState      `json:"state"`
	Fields       map[string]string `json:"fields"`
	History      []Turn            `json:"history,omitempty"`
	Attempts     int               `json:"attempts"`
	ChaosStrikes int               `json:"chaosStrikes,omitempty"`
	Modifying    bool              `json:"modifying,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActiveAt time.Time         `json:"lastActiveAt"`
}

// NewCallSession creates a session in the greeting state.
func NewCallSession(callID, callerNumber string) *CallSession {
	now := time.Now()
	return &CallSession{
		CallID:       callID,
		CallerNumber: callerNumber,
		State:        StateGreeting,
		Fields:       make(map[string]string),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}

// Field returns the value for key, or "" if unset.
func (s *CallSession) Field(key string) string {
	return s.Fields[key]
}

// SetField stores a value only if the field is currently unset.
// Returns true if the value was stored.
func (s *CallSession) SetField(key, value string) bool {
	if s.Fields[key] != "" || value == "" {
		return false
	}
	s.Fields[key] = value
	return true
}

// ClearField unsets a field, e.g. after a slot conflict invalidates the
// requested time.
func (s *CallSession) ClearField(key string) {
	delete(s.Fields, key)
}

// MissingFields returns the required fields not yet collected, in
// gathering order.
func (s *CallSession) MissingFields() []string {
	var missing []string
	for _, f := range RequiredFields {
		if s.Fields[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Complete reports whether all required fields are present.
func (s *CallSession) Complete() bool {
	return len(s.MissingFields()) == 0
}

// NextState returns the gathering state for the first missing field, or
// confirming when everything is collected.
func (s *CallSession) NextState() SessionState {
	switch {
	case s.Fields[FieldName] == "":
		return StateGatheringName
	case s.Fields[FieldService] == "":
		return StateGatheringService
	case s.Fields[FieldDate] == "":
		return StateGatheringDate
	case s.Fields[FieldTime] == "":
		return StateGatheringTime
	default:
		return StateConfirming
	}
}

// AddTurn appends an utterance to the history, keeping only the most
// recent turns.
func (s *CallSession) AddTurn(role, text string) {
	s.History = append(s.History, Turn{Role: role, Text: text, Timestamp: time.Now()})
	if len(s.History) > maxHistoryTurns {
		s.History = s.History[len(s.History)-maxHistoryTurns:]
	}
}

// Touch records activity so the idle reaper leaves the session alone.
func (s *CallSession) Touch() {
	s.LastActiveAt = time.Now()
}
