package domain

import "time"

// CallerProfile accumulates history for a phone number across calls,
// used to personalize greetings for repeat callers.
type CallerProfile struct {
	Phone            string    `json:"phone"`
	Name             string    `json:"name,omitempty"`
	CallCount        int       `json:"callCount"`
	PreferredService string    `json:"preferredService,omitempty"`
	VIP              bool      `json:"vip"`
	FirstSeen        time.Time `json:"firstSeen"`
	LastSeen         time.Time `json:"lastSeen"`
}
