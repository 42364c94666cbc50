package app

import (
	"context"

	"github.com/hylla/lanes/internal/domain"
)

// Repository loads and saves the board. Implementations return tasks grouped by
// lane in list order; saves replace whatever was stored before.
type Repository interface {
	LoadBoard(context.Context) ([]domain.Task, error)
	SaveBoard(context.Context, []domain.Task) error
}

// ActivityLog records board changes and returns the most recent ones.
type ActivityLog interface {
	AppendChangeEvents(context.Context, []domain.ChangeEvent) error
	ListChangeEvents(context.Context, int) ([]domain.ChangeEvent, error)
}

// Logger receives structured runtime events.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

// nopLogger discards every event.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
