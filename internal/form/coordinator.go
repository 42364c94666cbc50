package form

import (
	"errors"
	"strings"

	"github.com/hylla/lanes/internal/domain"
)

// ErrFormClosed and related errors describe coordinator misuse.
var (
	ErrFormClosed  = errors.New("form is not open")
	ErrNoSelection = errors.New("no task selected")
)

// Committer is the slice of the task store the form writes through.
type Committer interface {
	Add(domain.Task) error
	Update(domain.Task) error
	Delete(id string)
}

// IDGenerator returns a fresh, never reused task id.
type IDGenerator func() string

// Selection is the transient editing state.
type Selection struct {
	ActiveTaskID string
	EditMode     bool
	FormOpen     bool
}

// Fields holds the editable values of the open form.
type Fields struct {
	Title       string
	Description string
	Lane        domain.LaneID
	Subtasks    []string
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	f.Subtasks = append([]string(nil), f.Subtasks...)
	return f
}

// Coordinator mediates one editing session at a time between form fields and the store.
type Coordinator struct {
	store  Committer
	lanes  domain.LaneSet
	idGen  IDGenerator
	sel    Selection
	fields Fields
}

// NewCoordinator constructs a closed coordinator.
func NewCoordinator(store Committer, lanes domain.LaneSet, idGen IDGenerator) *Coordinator {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	return &Coordinator{store: store, lanes: lanes, idGen: idGen}
}

// Selection returns the current selection state.
func (c *Coordinator) Selection() Selection {
	return c.sel
}

// Fields returns a copy of the current field values.
func (c *Coordinator) Fields() Fields {
	return c.fields.Clone()
}

// OpenCreate opens an empty form for a new task in the default lane.
func (c *Coordinator) OpenCreate() {
	c.sel = Selection{FormOpen: true}
	c.fields = Fields{
		Lane:     c.lanes.Default(),
		Subtasks: []string{""},
	}
}

// OpenEdit opens the form prefilled from task.
func (c *Coordinator) OpenEdit(task domain.Task) {
	subtasks := append([]string(nil), task.Subtasks...)
	if len(subtasks) == 0 {
		subtasks = []string{""}
	}
	c.sel = Selection{ActiveTaskID: task.ID, EditMode: true, FormOpen: true}
	c.fields = Fields{
		Title:       task.Title,
		Description: task.Description,
		Lane:        task.Lane,
		Subtasks:    subtasks,
	}
}

// Close discards the form and any unsaved edits.
func (c *Coordinator) Close() {
	c.sel = Selection{}
	c.fields = Fields{}
}

// SetTitle updates the title field.
func (c *Coordinator) SetTitle(title string) {
	c.fields.Title = title
}

// SetDescription updates the description field.
func (c *Coordinator) SetDescription(description string) {
	c.fields.Description = description
}

// SetLane updates the lane field.
func (c *Coordinator) SetLane(lane domain.LaneID) error {
	lane = domain.NormalizeLaneID(string(lane))
	if !c.lanes.Has(lane) {
		return domain.ErrUnknownLane
	}
	c.fields.Lane = lane
	return nil
}

// Edit replaces every field at once, e.g. when the presentation layer syncs its inputs.
func (c *Coordinator) Edit(fields Fields) error {
	if fields.Lane != "" {
		lane := domain.NormalizeLaneID(string(fields.Lane))
		if !c.lanes.Has(lane) {
			return domain.ErrUnknownLane
		}
		fields.Lane = lane
	}
	c.fields = fields.Clone()
	return nil
}

// AddSubtask appends an empty subtask row.
func (c *Coordinator) AddSubtask() {
	c.fields.Subtasks = append(c.fields.Subtasks, "")
}

// SetSubtask replaces the subtask at idx. Out-of-range indexes are ignored.
func (c *Coordinator) SetSubtask(idx int, value string) {
	if idx < 0 || idx >= len(c.fields.Subtasks) {
		return
	}
	c.fields.Subtasks[idx] = value
}

// RemoveSubtask drops the subtask at idx, keeping at least one empty row.
func (c *Coordinator) RemoveSubtask(idx int) {
	if idx < 0 || idx >= len(c.fields.Subtasks) {
		return
	}
	next := make([]string, 0, len(c.fields.Subtasks)-1)
	next = append(next, c.fields.Subtasks[:idx]...)
	next = append(next, c.fields.Subtasks[idx+1:]...)
	if len(next) == 0 {
		next = []string{""}
	}
	c.fields.Subtasks = next
}

// Commit validates fields and writes them through the store: an update of the
// active task in edit mode, an add with a fresh id otherwise. On success the form
// closes; on failure it stays open and the board is untouched.
func (c *Coordinator) Commit(fields Fields) (domain.Task, error) {
	if !c.sel.FormOpen {
		return domain.Task{}, ErrFormClosed
	}
	c.fields = fields.Clone()
	if strings.TrimSpace(fields.Title) == "" {
		return domain.Task{}, domain.ErrInvalidTitle
	}
	lane := fields.Lane
	if lane == "" {
		lane = c.lanes.Default()
	}

	id := c.sel.ActiveTaskID
	if !c.sel.EditMode {
		id = c.idGen()
	}
	task, err := domain.NewTask(domain.TaskInput{
		ID:          id,
		Title:       fields.Title,
		Description: fields.Description,
		Lane:        lane,
		Subtasks:    fields.Subtasks,
	})
	if err != nil {
		return domain.Task{}, err
	}

	if c.sel.EditMode {
		err = c.store.Update(task)
	} else {
		err = c.store.Add(task)
	}
	if err != nil {
		return domain.Task{}, err
	}
	c.Close()
	return task, nil
}

// CommitDelete deletes the active task and closes the form. Callers confirm with
// the user before invoking it.
func (c *Coordinator) CommitDelete() error {
	if !c.sel.FormOpen {
		return ErrFormClosed
	}
	if c.sel.ActiveTaskID == "" {
		return ErrNoSelection
	}
	c.store.Delete(c.sel.ActiveTaskID)
	c.Close()
	return nil
}
