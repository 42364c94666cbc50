package board

import (
	"errors"
	"fmt"

	"github.com/hylla/lanes/internal/domain"
)

// ErrNotFound and related errors describe task store failures.
var (
	ErrNotFound      = errors.New("task not found")
	ErrDuplicateTask = fmt.Errorf("%w: duplicate task id", domain.ErrValidation)
	ErrBrokenState   = fmt.Errorf("%w: board state violates the one-lane invariant", domain.ErrValidation)
)
