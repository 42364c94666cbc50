package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hylla/lanes/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Board    BoardConfig    `toml:"board"`
	Confirm  ConfirmConfig  `toml:"confirm"`
	Logging  LoggingConfig  `toml:"logging"`
	Identity IdentityConfig `toml:"identity"`
}

type DatabaseConfig struct {
	Path    string `toml:"path"`
	Persist bool   `toml:"persist"`
}

type BoardConfig struct {
	Lanes       []LaneConfig `toml:"lanes"`
	DefaultLane string       `toml:"default_lane"`
}

type LaneConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

type ConfirmConfig struct {
	Delete bool `toml:"delete"`
}

type LoggingConfig struct {
	Level   string           `toml:"level"`
	DevFile DevFileLogConfig `toml:"dev_file"`
}

type DevFileLogConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type IdentityConfig struct {
	DisplayName string `toml:"display_name"`
}

func defaultLanes() []LaneConfig {
	lanes := domain.DefaultLanes()
	out := make([]LaneConfig, 0, len(lanes))
	for _, lane := range lanes {
		out = append(out, LaneConfig{ID: string(lane.ID), Name: lane.Name})
	}
	return out
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path:    dbPath,
			Persist: false,
		},
		Board: BoardConfig{
			Lanes:       defaultLanes(),
			DefaultLane: string(domain.LaneTodo),
		},
		Confirm: ConfirmConfig{
			Delete: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileLogConfig{
				Enabled: true,
				Dir:     ".lanes/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	// A [[board.lanes]] table in the file replaces the default lane list instead of
	// merging into it by index.
	cfg.Board = BoardConfig{}
	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}
	if len(cfg.Board.Lanes) == 0 {
		cfg.Board.Lanes = append([]LaneConfig(nil), defaults.Board.Lanes...)
		if strings.TrimSpace(cfg.Board.DefaultLane) == "" {
			cfg.Board.DefaultLane = defaults.Board.DefaultLane
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if _, err := c.LaneSet(); err != nil {
		return fmt.Errorf("board.lanes: %w", err)
	}
	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}
	if c.Logging.DevFile.Enabled && strings.TrimSpace(c.Logging.DevFile.Dir) == "" {
		return errors.New("logging.dev_file.dir is required when enabled")
	}
	return nil
}

// LaneSet builds the board lanes in configured order.
func (c Config) LaneSet() (domain.LaneSet, error) {
	if len(c.Board.Lanes) == 0 {
		return domain.LaneSet{}, domain.ErrEmptyLaneSet
	}
	lanes := make([]domain.Lane, 0, len(c.Board.Lanes))
	for idx, raw := range c.Board.Lanes {
		lane, err := domain.NewLane(raw.ID, raw.Name, idx)
		if err != nil {
			return domain.LaneSet{}, fmt.Errorf("[%d]: %w", idx, err)
		}
		lanes = append(lanes, lane)
	}
	return domain.NewLaneSet(lanes, domain.LaneID(c.Board.DefaultLane))
}

// LaneNames maps lane ids to their configured display names.
func (c Config) LaneNames() map[domain.LaneID]string {
	out := make(map[domain.LaneID]string, len(c.Board.Lanes))
	for _, lane := range c.Board.Lanes {
		out[domain.NormalizeLaneID(lane.ID)] = strings.TrimSpace(lane.Name)
	}
	return out
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// UpsertIdentity writes identity.display_name into the config file at path,
// creating the file when missing and keeping every other setting.
func UpsertIdentity(path, displayName string) error {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return errors.New("display name is required")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is required")
	}

	doc := map[string]any{}
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if len(content) > 0 {
			if err := toml.Unmarshal(content, &doc); err != nil {
				return fmt.Errorf("decode toml: %w", err)
			}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read config: %w", err)
	}

	identity, _ := doc["identity"].(map[string]any)
	if identity == nil {
		identity = map[string]any{}
	}
	identity["display_name"] = displayName
	doc["identity"] = identity

	encoded, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
