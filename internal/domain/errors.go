package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJudgmentUnavailable marks a retrieval that could not be completed
	// because the judgment call refused, failed, or returned unusable output.
	ErrJudgmentUnavailable = errors.New("knowledge judgment unavailable")

	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmbeddingCount    = errors.New("embedding count mismatch")
)

// UnavailableReason categorizes a judgment failure.
type UnavailableReason string

const (
	ReasonRefusal       UnavailableReason = "refusal"
	ReasonMalformed     UnavailableReason = "malformed"
	ReasonEmpty         UnavailableReason = "empty"
	ReasonAuth          UnavailableReason = "auth"
	ReasonRateLimit     UnavailableReason = "rate_limit"
	ReasonLowBalance    UnavailableReason = "low_balance"
	ReasonModelNotFound UnavailableReason = "model_not_found"
)

// JudgmentError is returned when the judgment boundary is unavailable.
type JudgmentError struct {
	Reason UnavailableReason
	Err    error
}

func NewJudgmentError(reason UnavailableReason, err error) *JudgmentError {
	return &JudgmentError{Reason: reason, Err: err}
}

func (e *JudgmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrJudgmentUnavailable, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrJudgmentUnavailable, e.Reason)
}

func (e *JudgmentError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrJudgmentUnavailable or a JudgmentError with the same reason.
func (e *JudgmentError) Is(target error) bool {
	if target == ErrJudgmentUnavailable {
		return true
	}
	t, ok := target.(*JudgmentError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// ReasonOf extracts the unavailable reason from err, if any.
func ReasonOf(err error) (UnavailableReason, bool) {
	var je *JudgmentError
	if errors.As(err, &je) {
		return je.Reason, true
	}
	return "", false
}
