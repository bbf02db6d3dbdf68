package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrForbidden           = errors.New("forbidden")
	ErrHelperUnavailable   = errors.New("helper not found or not available")
	ErrScheduleConflict    = errors.New("requested time conflicts with another booking")
	ErrInvalidTransition   = errors.New("invalid state transition")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPaymentFailed       = errors.New("payment failed")
)

// TransitionError reports the state pair of a rejected transition. It
// matches ErrInvalidTransition under errors.Is.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
