package domain

import (
	"slices"
	"strings"
)

// Task is one card on the board. ID is immutable once assigned.
type Task struct {
	ID          string
	Title       string
	Description string
	Lane        LaneID
	Subtasks    []string
}

// TaskInput holds raw values for NewTask.
type TaskInput struct {
	ID          string
	Title       string
	Description string
	Lane        LaneID
	Subtasks    []string
}

// NewTask constructs a validated task. Blank subtasks are dropped; the
// description and kept subtasks are stored as given.
func NewTask(in TaskInput) (Task, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Lane = NormalizeLaneID(string(in.Lane))

	if in.ID == "" {
		return Task{}, ErrInvalidID
	}
	if in.Title == "" {
		return Task{}, ErrInvalidTitle
	}
	if in.Lane == "" {
		return Task{}, ErrInvalidLane
	}

	return Task{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Lane:        in.Lane,
		Subtasks:    NormalizeSubtasks(in.Subtasks),
	}, nil
}

// Validate checks the fields a stored task must carry.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrInvalidID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrInvalidTitle
	}
	if t.Lane == "" {
		return ErrInvalidLane
	}
	return nil
}

// Clone returns a deep copy.
func (t Task) Clone() Task {
	out := t
	if t.Subtasks != nil {
		out.Subtasks = append([]string(nil), t.Subtasks...)
	}
	return out
}

// WithLane re-creates the task in another lane.
func (t Task) WithLane(lane LaneID) Task {
	out := t.Clone()
	out.Lane = lane
	return out
}

// Equal reports whether both tasks carry identical values.
func (t Task) Equal(other Task) bool {
	return t.ID == other.ID &&
		t.Title == other.Title &&
		t.Description == other.Description &&
		t.Lane == other.Lane &&
		slices.Equal(t.Subtasks, other.Subtasks)
}

// NormalizeSubtasks drops blank and whitespace-only entries, keeping order
// and leaving the rest untouched.
func NormalizeSubtasks(subtasks []string) []string {
	out := make([]string, 0, len(subtasks))
	for _, item := range subtasks {
		if strings.TrimSpace(item) == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
