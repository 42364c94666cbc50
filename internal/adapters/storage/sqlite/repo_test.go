package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/hylla/lanes/internal/app"
	"github.com/hylla/lanes/internal/board"
	"github.com/hylla/lanes/internal/domain"
)

var _ app.Repository = (*Repository)(nil)
var _ app.ActivityLog = (*Repository)(nil)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "nested", "lanes.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestRepository_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	tasks := []domain.Task{
		{ID: "b", Title: "second todo", Lane: domain.LaneTodo, Subtasks: []string{}},
		{ID: "a", Title: "first doing", Lane: domain.LaneDoing, Description: "## notes", Subtasks: []string{"one", "two"}},
		{ID: "c", Title: "third todo", Lane: domain.LaneTodo, Subtasks: []string{}},
	}
	if err := repo.SaveBoard(ctx, tasks); err != nil {
		t.Fatalf("SaveBoard() error = %v", err)
	}

	lanes := domain.DefaultLaneSet()
	st, relocated, err := app.LoadState(ctx, repo, lanes)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(relocated) != 0 {
		t.Fatalf("unexpected relocations %#v", relocated)
	}
	todo := st.Tasks(domain.LaneTodo)
	if len(todo) != 2 || todo[0].ID != "b" || todo[1].ID != "c" {
		t.Fatalf("todo order not preserved: %#v", todo)
	}
	doing, ok := st.Find("a")
	if !ok {
		t.Fatal("expected task a")
	}
	if doing.Description != "## notes" || len(doing.Subtasks) != 2 || doing.Subtasks[1] != "two" {
		t.Fatalf("unexpected task payload %#v", doing)
	}
}

func TestRepository_SaveReplacesPreviousBoard(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.SaveBoard(ctx, []domain.Task{{ID: "old", Title: "old", Lane: domain.LaneTodo}}); err != nil {
		t.Fatalf("SaveBoard() error = %v", err)
	}
	if err := repo.SaveBoard(ctx, []domain.Task{{ID: "new", Title: "new", Lane: domain.LaneDone}}); err != nil {
		t.Fatalf("SaveBoard() error = %v", err)
	}
	loaded, err := repo.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard() error = %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "new" {
		t.Fatalf("expected only the latest board, got %#v", loaded)
	}
	if loaded[0].Subtasks == nil {
		t.Fatal("expected empty subtask list, got nil")
	}
}

func TestRepository_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lanes.db")
	repo, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store := board.NewStore(domain.DefaultLaneSet())
	task, err := domain.NewTask(domain.TaskInput{ID: "t1", Title: "persist me", Lane: domain.LaneDoing})
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	if err := store.Add(task); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := app.SaveState(ctx, repo, store.Snapshot()); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = reopened.Close()
	})
	loaded, err := reopened.LoadBoard(ctx)
	if err != nil {
		t.Fatalf("LoadBoard() error = %v", err)
	}
	if len(loaded) != 1 || !loaded[0].Equal(task) {
		t.Fatalf("unexpected reloaded board %#v", loaded)
	}
}

func TestRepository_ChangeEventsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []domain.ChangeEvent{
		{Operation: domain.ChangeOperationCreate, TaskID: "t1", Title: "a", ToLane: domain.LaneTodo, OccurredAt: base},
		{Operation: domain.ChangeOperationMove, TaskID: "t1", Title: "a", FromLane: domain.LaneTodo, ToLane: domain.LaneDone, OccurredAt: base.Add(time.Minute)},
		{Operation: domain.ChangeOperationDelete, TaskID: "t1", Title: "a", FromLane: domain.LaneDone, OccurredAt: base.Add(2 * time.Minute)},
	}
	if err := repo.AppendChangeEvents(ctx, events); err != nil {
		t.Fatalf("AppendChangeEvents() error = %v", err)
	}
	if err := repo.AppendChangeEvents(ctx, nil); err != nil {
		t.Fatalf("AppendChangeEvents(nil) error = %v", err)
	}

	got, err := repo.ListChangeEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit to apply, got %d events", len(got))
	}
	if got[0].Operation != domain.ChangeOperationDelete || got[1].Operation != domain.ChangeOperationMove {
		t.Fatalf("unexpected order %#v", got)
	}
	if got[1].FromLane != domain.LaneTodo || got[1].ToLane != domain.LaneDone || !got[1].OccurredAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("unexpected move event %#v", got[1])
	}

	all, err := repo.ListChangeEvents(ctx, 0)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected default limit to return all events, got %d", len(all))
	}
}

func TestRepository_ChangeEventsOrderIgnoresFractionWidth(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2026, 3, 1, 9, 0, 5, 0, time.UTC)
	older := domain.ChangeEvent{Operation: domain.ChangeOperationCreate, TaskID: "t1", Title: "older", ToLane: domain.LaneTodo, OccurredAt: base.Add(100 * time.Millisecond)}
	newer := domain.ChangeEvent{Operation: domain.ChangeOperationCreate, TaskID: "t2", Title: "newer", ToLane: domain.LaneTodo, OccurredAt: base.Add(120 * time.Millisecond)}
	for _, event := range []domain.ChangeEvent{older, newer} {
		if err := repo.AppendChangeEvents(ctx, []domain.ChangeEvent{event}); err != nil {
			t.Fatalf("AppendChangeEvents() error = %v", err)
		}
	}

	got, err := repo.ListChangeEvents(ctx, 10)
	if err != nil {
		t.Fatalf("ListChangeEvents() error = %v", err)
	}
	if len(got) != 2 || got[0].Title != "newer" || got[1].Title != "older" {
		t.Fatalf("expected newest first, got %#v", got)
	}
	if !got[1].OccurredAt.Equal(older.OccurredAt) {
		t.Fatalf("timestamp lost precision: %v", got[1].OccurredAt)
	}
	if ts(older.OccurredAt) >= ts(newer.OccurredAt) {
		t.Fatalf("stored timestamps do not sort: %q >= %q", ts(older.OccurredAt), ts(newer.OccurredAt))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path error")
	}
}
