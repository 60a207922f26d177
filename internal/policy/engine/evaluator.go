// Package engine decides whether a verification call may be placed to a number.
package engine

import "context"

// DialInput is the policy input for one outbound verification call.
type DialInput struct {
	// Phone is the dialable number (+<region><digits>).
	Phone string `json:"phone"`
	// Region is the country calling code the number was composed with.
	Region string `json:"region"`
	// Hour and Weekday are UTC, for quiet-hours rules.
	Hour    int    `json:"hour"`
	Weekday string `json:"weekday"`
}

// DialDecision holds the result of dial policy evaluation.
type DialDecision struct {
	Allowed bool
	// Reason is shown to the caller when Allowed is false.
	Reason string
}

// Evaluator evaluates dial policy using OPA or other engines.
type Evaluator interface {
	EvaluateDial(ctx context.Context, input DialInput) (DialDecision, error)
}
