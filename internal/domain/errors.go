package domain

import (
	"errors"
	"fmt"
)

// ErrValidation marks every input rejection raised by the domain and the task store.
var ErrValidation = errors.New("validation failed")

// ErrInvalidID and related errors describe validation failures.
var (
	ErrInvalidID       = fmt.Errorf("%w: invalid id", ErrValidation)
	ErrInvalidName     = fmt.Errorf("%w: invalid name", ErrValidation)
	ErrInvalidTitle    = fmt.Errorf("%w: invalid title", ErrValidation)
	ErrInvalidLane     = fmt.Errorf("%w: invalid lane id", ErrValidation)
	ErrInvalidPosition = fmt.Errorf("%w: invalid position", ErrValidation)
	ErrUnknownLane     = fmt.Errorf("%w: unknown lane", ErrValidation)
	ErrDuplicateLane   = fmt.Errorf("%w: duplicate lane", ErrValidation)
	ErrEmptyLaneSet    = fmt.Errorf("%w: lane set is empty", ErrValidation)
)

// IsValidation reports whether err was caused by rejected input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
