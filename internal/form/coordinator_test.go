package form

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/hylla/lanes/internal/board"
	"github.com/hylla/lanes/internal/domain"
)

var _ Committer = (*board.Store)(nil)

func sequentialIDs() IDGenerator {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("id-%d", next)
	}
}

func newFixture(t *testing.T) (*board.Store, *Coordinator) {
	t.Helper()
	lanes := domain.DefaultLaneSet()
	store := board.NewStore(lanes)
	return store, NewCoordinator(store, lanes, sequentialIDs())
}

func TestOpenCreateDefaults(t *testing.T) {
	_, c := newFixture(t)
	c.OpenCreate()
	sel := c.Selection()
	if !sel.FormOpen || sel.EditMode || sel.ActiveTaskID != "" {
		t.Fatalf("unexpected selection %#v", sel)
	}
	f := c.Fields()
	if f.Title != "" || f.Description != "" || f.Lane != domain.LaneTodo {
		t.Fatalf("unexpected fields %#v", f)
	}
	if !slices.Equal(f.Subtasks, []string{""}) {
		t.Fatalf("expected one empty subtask slot, got %#v", f.Subtasks)
	}
}

func TestOpenEditCopiesTask(t *testing.T) {
	_, c := newFixture(t)
	task := domain.Task{ID: "x", Title: "T", Description: "D", Lane: domain.LaneDone, Subtasks: []string{"one"}}
	c.OpenEdit(task)
	sel := c.Selection()
	if !sel.FormOpen || !sel.EditMode || sel.ActiveTaskID != "x" {
		t.Fatalf("unexpected selection %#v", sel)
	}
	c.SetSubtask(0, "changed")
	if task.Subtasks[0] != "one" {
		t.Fatal("form editing leaked into the source task")
	}

	c.OpenEdit(domain.Task{ID: "y", Title: "T", Lane: domain.LaneTodo})
	if got := c.Fields().Subtasks; !slices.Equal(got, []string{""}) {
		t.Fatalf("expected seeded empty subtask row, got %#v", got)
	}
}

func TestCommitCreate(t *testing.T) {
	store, c := newFixture(t)
	c.OpenCreate()
	task, err := c.Commit(Fields{
		Title:    "Draft plan",
		Lane:     domain.LaneDoing,
		Subtasks: []string{"outline", "  ", "", "review"},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if task.ID != "id-1" {
		t.Fatalf("unexpected generated id %q", task.ID)
	}
	stored, ok := store.Find("id-1")
	if !ok || stored.Lane != domain.LaneDoing {
		t.Fatalf("expected stored task in doing, got %#v", stored)
	}
	if !slices.Equal(stored.Subtasks, []string{"outline", "review"}) {
		t.Fatalf("blank subtasks not filtered: %#v", stored.Subtasks)
	}
	if c.Selection() != (Selection{}) {
		t.Fatalf("expected form closed after commit, got %#v", c.Selection())
	}
}

func TestCommitEditReusesID(t *testing.T) {
	store, c := newFixture(t)
	c.OpenCreate()
	created, err := c.Commit(Fields{Title: "a", Lane: domain.LaneTodo})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	c.OpenEdit(created)
	updated, err := c.Commit(Fields{Title: "a v2", Lane: domain.LaneDone})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("edit changed id %q -> %q", created.ID, updated.ID)
	}
	if store.Snapshot().Len() != 1 {
		t.Fatalf("expected one task after edit, got %d", store.Snapshot().Len())
	}
	if got, _ := store.Find(created.ID); got.Lane != domain.LaneDone || got.Title != "a v2" {
		t.Fatalf("unexpected stored task %#v", got)
	}
}

func TestCommitEmptyTitleKeepsFormOpen(t *testing.T) {
	store, c := newFixture(t)
	c.OpenCreate()
	before := store.Snapshot()
	_, err := c.Commit(Fields{Title: "   ", Lane: domain.LaneTodo, Subtasks: []string{"keep me"}})
	if !errors.Is(err, domain.ErrInvalidTitle) || !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !store.Snapshot().Equal(before) {
		t.Fatal("failed commit mutated the board")
	}
	if !c.Selection().FormOpen {
		t.Fatal("expected form to stay open after failed commit")
	}
	if got := c.Fields().Subtasks; !slices.Equal(got, []string{"keep me"}) {
		t.Fatalf("expected entered fields retained, got %#v", got)
	}
}

func TestCommitSurfacesStoreErrors(t *testing.T) {
	store, c := newFixture(t)
	c.OpenEdit(domain.Task{ID: "ghost", Title: "ghost", Lane: domain.LaneTodo})
	if _, err := c.Commit(Fields{Title: "ghost", Lane: domain.LaneTodo}); !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !c.Selection().FormOpen {
		t.Fatal("expected form to stay open")
	}
	c.OpenCreate()
	if _, err := c.Commit(Fields{Title: "x", Lane: "backlog"}); !errors.Is(err, domain.ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}
	if store.Snapshot().Len() != 0 {
		t.Fatal("expected empty board")
	}
}

func TestCommitRequiresOpenForm(t *testing.T) {
	_, c := newFixture(t)
	if _, err := c.Commit(Fields{Title: "x"}); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("expected ErrFormClosed, got %v", err)
	}
	if err := c.CommitDelete(); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("expected ErrFormClosed, got %v", err)
	}
}

func TestCommitDelete(t *testing.T) {
	store, c := newFixture(t)
	c.OpenCreate()
	task, _ := c.Commit(Fields{Title: "doomed", Lane: domain.LaneTodo})

	c.OpenCreate()
	if err := c.CommitDelete(); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	c.OpenEdit(task)
	if err := c.CommitDelete(); err != nil {
		t.Fatalf("CommitDelete() error = %v", err)
	}
	if _, ok := store.Find(task.ID); ok {
		t.Fatal("expected task deleted")
	}
	if c.Selection().FormOpen {
		t.Fatal("expected form closed after delete")
	}
}

func TestSubtaskEditing(t *testing.T) {
	_, c := newFixture(t)
	c.OpenCreate()
	c.SetSubtask(0, "first")
	c.AddSubtask()
	c.SetSubtask(1, "second")
	c.SetSubtask(7, "ignored")
	if got := c.Fields().Subtasks; !slices.Equal(got, []string{"first", "second"}) {
		t.Fatalf("unexpected subtasks %#v", got)
	}
	c.RemoveSubtask(0)
	c.RemoveSubtask(0)
	if got := c.Fields().Subtasks; !slices.Equal(got, []string{""}) {
		t.Fatalf("expected reseeded empty row, got %#v", got)
	}
}

func TestCloseDiscardsEdits(t *testing.T) {
	store, c := newFixture(t)
	c.OpenCreate()
	c.SetTitle("draft")
	c.SetDescription("unsaved")
	if err := c.SetLane("bogus"); !errors.Is(err, domain.ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}
	if err := c.SetLane(domain.LaneDone); err != nil {
		t.Fatalf("SetLane() error = %v", err)
	}
	c.Close()
	if c.Selection() != (Selection{}) || c.Fields().Title != "" {
		t.Fatal("expected close to reset selection and fields")
	}
	if store.Snapshot().Len() != 0 {
		t.Fatal("close must not commit")
	}
}

func TestEditReplacesFields(t *testing.T) {
	_, c := newFixture(t)
	c.OpenCreate()
	in := Fields{Title: "t", Description: "d", Lane: "Done", Subtasks: []string{"a", "b"}}
	if err := c.Edit(in); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	in.Subtasks[0] = "mutated"
	got := c.Fields()
	if got.Lane != domain.LaneDone || got.Title != "t" || !slices.Equal(got.Subtasks, []string{"a", "b"}) {
		t.Fatalf("unexpected fields %#v", got)
	}
	if err := c.Edit(Fields{Lane: "nope"}); !errors.Is(err, domain.ErrUnknownLane) {
		t.Fatalf("expected ErrUnknownLane, got %v", err)
	}
	if c.Fields().Title != "t" {
		t.Fatal("rejected edit changed fields")
	}
}
