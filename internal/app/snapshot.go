package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hylla/lanes/internal/board"
	"github.com/hylla/lanes/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "lanes.snapshot.v1"

// Snapshot is the portable JSON form of a board.
type Snapshot struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Lanes      []SnapshotLane `json:"lanes"`
	Tasks      []SnapshotTask `json:"tasks"`
}

// SnapshotLane represents one lane definition at export time.
type SnapshotLane struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// SnapshotTask represents one task and its place in its lane.
type SnapshotTask struct {
	ID          string   `json:"id"`
	Lane        string   `json:"lane"`
	Position    int      `json:"position"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Subtasks    []string `json:"subtasks"`
}

// SnapshotFromState converts a board state into its snapshot form.
func SnapshotFromState(st board.State, now time.Time) Snapshot {
	snap := Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: now.UTC(),
		Lanes:      make([]SnapshotLane, 0, st.LaneSet().Len()),
		Tasks:      make([]SnapshotTask, 0, st.Len()),
	}
	for _, lane := range st.LaneSet().Lanes() {
		snap.Lanes = append(snap.Lanes, SnapshotLane{
			ID:       string(lane.ID),
			Name:     lane.Name,
			Position: lane.Position,
		})
		for pos, task := range st.Tasks(lane.ID) {
			snap.Tasks = append(snap.Tasks, snapshotTaskFromDomain(task, pos))
		}
	}
	return snap
}

// Validate checks snapshot structure independent of any lane configuration.
func (s Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, s.Version)
	}
	taskIDs := map[string]struct{}{}
	for i, t := range s.Tasks {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: tasks[%d].id is required", ErrInvalidSnapshot, i)
		}
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("%w: tasks[%d].title is required", ErrInvalidSnapshot, i)
		}
		if domain.NormalizeLaneID(t.Lane) == "" {
			return fmt.Errorf("%w: tasks[%d].lane is required", ErrInvalidSnapshot, i)
		}
		if t.Position < 0 {
			return fmt.Errorf("%w: tasks[%d].position must be >= 0", ErrInvalidSnapshot, i)
		}
		if _, exists := taskIDs[t.ID]; exists {
			return fmt.Errorf("%w: duplicate task id %q", ErrInvalidSnapshot, t.ID)
		}
		taskIDs[t.ID] = struct{}{}
	}
	return nil
}

// StateFromSnapshot rebuilds a board state for lanes. Tasks in lanes outside the
// set are rejected; positions only order tasks within a lane.
func StateFromSnapshot(lanes domain.LaneSet, snap Snapshot) (board.State, error) {
	if err := snap.Validate(); err != nil {
		return board.State{}, err
	}
	tasks := slices.Clone(snap.Tasks)
	slices.SortStableFunc(tasks, func(a, b SnapshotTask) int {
		return a.Position - b.Position
	})
	grouped := map[domain.LaneID][]domain.Task{}
	for _, t := range tasks {
		task, err := t.toDomain()
		if err != nil {
			return board.State{}, fmt.Errorf("task %q: %w", t.ID, err)
		}
		if !lanes.Has(task.Lane) {
			return board.State{}, fmt.Errorf("task %q: %w %q", t.ID, domain.ErrUnknownLane, task.Lane)
		}
		grouped[task.Lane] = append(grouped[task.Lane], task)
	}
	st := board.NewState(lanes, grouped)
	if err := board.CheckInvariant(st); err != nil {
		return board.State{}, err
	}
	return st, nil
}

// LoadState reads the stored board through repo. Tasks whose lane is no longer
// configured are reassigned to the default lane so a lane-set change never
// strands stored work.
func LoadState(ctx context.Context, repo Repository, lanes domain.LaneSet) (board.State, []string, error) {
	if repo == nil {
		return board.State{}, nil, ErrNoRepository
	}
	stored, err := repo.LoadBoard(ctx)
	if err != nil {
		return board.State{}, nil, fmt.Errorf("load board: %w", err)
	}
	grouped := map[domain.LaneID][]domain.Task{}
	var relocated []string
	for _, task := range stored {
		if !lanes.Has(task.Lane) {
			relocated = append(relocated, task.ID)
			task = task.WithLane(lanes.Default())
		}
		grouped[task.Lane] = append(grouped[task.Lane], task)
	}
	st := board.NewState(lanes, grouped)
	if err := board.CheckInvariant(st); err != nil {
		return board.State{}, nil, fmt.Errorf("stored board: %w", err)
	}
	return st, relocated, nil
}

// SaveState writes st through repo.
func SaveState(ctx context.Context, repo Repository, st board.State) error {
	if repo == nil {
		return ErrNoRepository
	}
	return repo.SaveBoard(ctx, st.All())
}

// snapshotTaskFromDomain converts one task at its lane position.
func snapshotTaskFromDomain(t domain.Task, position int) SnapshotTask {
	subtasks := append([]string{}, t.Subtasks...)
	return SnapshotTask{
		ID:          t.ID,
		Lane:        string(t.Lane),
		Position:    position,
		Title:       t.Title,
		Description: t.Description,
		Subtasks:    subtasks,
	}
}

// toDomain validates and converts one snapshot task.
func (t SnapshotTask) toDomain() (domain.Task, error) {
	return domain.NewTask(domain.TaskInput{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Lane:        domain.LaneID(t.Lane),
		Subtasks:    t.Subtasks,
	})
}
