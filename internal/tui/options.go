package tui

import (
	"context"
	"maps"

	"github.com/hylla/lanes/internal/domain"
)

// Settings are the display settings that can change while the board runs.
type Settings struct {
	ConfirmDelete bool
	LaneNames     map[domain.LaneID]string
}

type Option func(*Model)

// WithContext sets the context passed to service calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithDisplayName shows the signed-in name in the header.
func WithDisplayName(name string) Option {
	return func(m *Model) {
		m.displayName = name
	}
}

// WithSettings applies initial display settings.
func WithSettings(s Settings) Option {
	return func(m *Model) {
		m.applySettings(s)
	}
}

// WithSettingsFeed subscribes the board to live settings updates.
func WithSettingsFeed(feed <-chan Settings) Option {
	return func(m *Model) {
		m.settingsFeed = feed
	}
}

// WithClipboard replaces the function used by the copy action.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// cloneNames copies a lane-name override map.
func cloneNames(in map[domain.LaneID]string) map[domain.LaneID]string {
	if len(in) == 0 {
		return nil
	}
	return maps.Clone(in)
}
