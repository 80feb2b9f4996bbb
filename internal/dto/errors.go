package dto

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthenticated         = errors.New("unauthorized")
	ErrSessionNotFound         = errors.New("session not found")
	ErrMalformedRequest        = errors.New("malformed request")
	ErrInvalidStatusTransition = errors.New("invalid session status transition")
	ErrProfileUnavailable      = errors.New("user profile unavailable")
	ErrPlanMisconfigured       = errors.New("subscription plan misconfigured")
	ErrPersistence             = errors.New("persistence failure")
)

// ErrorTypeUsageLimit tags quota denials so clients can offer an upgrade path.
const ErrorTypeUsageLimit = "usage_limit"

// LimitExceededError is returned when a plan's monthly message ceiling is reached.
type LimitExceededError struct {
	Plan       string    `json:"plan"`
	Limit      int       `json:"limit"`
	Used       int       `json:"used"`
	ResetAfter time.Time `json:"reset_after"`
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("monthly usage limit reached (%d/%d)", e.Used, e.Limit)
}

// Malformed wraps ErrMalformedRequest with a detail message.
func Malformed(detail string) error {
	return fmt.Errorf("%w: %s", ErrMalformedRequest, detail)
}
