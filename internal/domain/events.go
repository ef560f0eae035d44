package domain

// Directive tells the telephony layer what to do after speaking a response.
type Directive string

const (
	DirectiveContinue Directive = "continue" // keep gathering speech
	DirectiveEnd      Directive = "end"      // say the response and hang up
)

// CallStarted is emitted when a new inbound call connects.
type CallStarted struct {
	CallID       string
	CallerNumber string
}

// SpeechTurn carries one transcribed caller utterance.
type SpeechTurn struct {
	CallID string
	Text   string
}

// CallEnded is emitted when the call disconnects.
type CallEnded struct {
	CallID string
}

// TurnResult is the orchestrator's reply for a single turn.
type TurnResult struct {
	Text      string
	Directive Directive
	AudioURL  string // optional synthesized audio handle
}
