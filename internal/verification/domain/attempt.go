// Package domain holds the verification attempt, outcome and verdict types.
package domain

import "time"

// Attempt is one outstanding verification for a dialable phone number.
type Attempt struct {
	Phone     string
	Code      string
	CreatedAt time.Time
}

// Utterance is one transcript line.
type Utterance struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Outcome is the uniform result of a verification request.
type Outcome struct {
	Verified   bool
	Reason     string
	Transcript []Utterance
	// CallID is the provider call identifier when a call was placed.
	CallID string
}

// Failed returns a negative outcome with reason and no transcript.
func Failed(reason string) *Outcome {
	return &Outcome{Verified: false, Reason: reason}
}
