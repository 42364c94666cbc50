package app

import (
	"errors"

	"github.com/hylla/lanes/internal/board"
)

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound           = board.ErrNotFound
	ErrUnauthenticated    = errors.New("no authenticated session")
	ErrInvalidSnapshot    = errors.New("invalid snapshot")
	ErrNoRepository       = errors.New("no board repository configured")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
)
