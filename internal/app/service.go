package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hylla/lanes/internal/board"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/drag"
	"github.com/hylla/lanes/internal/form"
)

// IDGenerator returns unique identifiers for new tasks.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	IDGen      IDGenerator
	Clock      Clock
	Repository Repository
	Activity   ActivityLog
	Logger     Logger
	HitTester  drag.HitTester
}

// View is everything the presentation layer renders after a command.
type View struct {
	Board     board.State
	Selection form.Selection
	Fields    form.Fields
	Drag      drag.Session
}

// Service is the command surface the presentation layer drives. It owns the
// reconciler and coordinator and routes every mutation through the task store.
type Service struct {
	store    *board.Store
	drag     *drag.Reconciler
	form     *form.Coordinator
	repo     Repository
	activity ActivityLog
	log      Logger
	clock    Clock
	unsaved  bool
	loading  bool
	pending  []domain.ChangeEvent
}

// NewService wires the board components for an authenticated session.
func NewService(identity Identity, store *board.Store, cfg ServiceConfig) (*Service, error) {
	if !authenticated(identity) {
		return nil, ErrUnauthenticated
	}
	if store == nil {
		return nil, fmt.Errorf("task store is required")
	}
	if cfg.IDGen == nil {
		cfg.IDGen = uuid.NewString
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}

	s := &Service{
		store:    store,
		drag:     drag.NewReconciler(store, cfg.HitTester),
		form:     form.NewCoordinator(store, store.LaneSet(), form.IDGenerator(cfg.IDGen)),
		repo:     cfg.Repository,
		activity: cfg.Activity,
		log:      cfg.Logger,
		clock:    cfg.Clock,
	}
	store.Subscribe(s.recordChange)
	return s, nil
}

// Load replaces the board with the repository contents. Without a repository the
// board stays empty.
func (s *Service) Load(ctx context.Context) error {
	if s.repo == nil {
		s.log.Debug("board repository disabled; starting with an empty board")
		return nil
	}
	st, relocated, err := LoadState(ctx, s.repo, s.store.LaneSet())
	if err != nil {
		return err
	}
	if len(relocated) > 0 {
		s.log.Warn("tasks in unconfigured lanes moved to default lane", "count", len(relocated), "lane", s.store.LaneSet().Default())
	}
	s.loading = true
	err = s.store.Restore(st)
	s.loading = false
	if err != nil {
		return fmt.Errorf("restore board: %w", err)
	}
	s.unsaved = len(relocated) > 0
	s.log.Info("board loaded", "tasks", st.Len())
	return nil
}

// View returns the current board, selection, form fields and drag session.
func (s *Service) View() View {
	return View{
		Board:     s.store.Snapshot(),
		Selection: s.form.Selection(),
		Fields:    s.form.Fields(),
		Drag:      s.drag.Session(),
	}
}

// LaneSet returns the configured lanes.
func (s *Service) LaneSet() domain.LaneSet {
	return s.store.LaneSet()
}

// OpenCreate opens the form for a new task.
func (s *Service) OpenCreate() View {
	s.form.OpenCreate()
	return s.View()
}

// OpenEdit opens the form for the task with id.
func (s *Service) OpenEdit(id string) (View, error) {
	task, ok := s.store.Find(id)
	if !ok {
		return s.View(), ErrNotFound
	}
	s.form.OpenEdit(task)
	return s.View(), nil
}

// CloseForm discards the open form.
func (s *Service) CloseForm() View {
	s.form.Close()
	return s.View()
}

// UpdateFields stores in-progress form values without committing them.
func (s *Service) UpdateFields(fields form.Fields) (View, error) {
	err := s.form.Edit(fields)
	return s.View(), err
}

// AddSubtask appends an empty subtask row to the open form.
func (s *Service) AddSubtask() View {
	s.form.AddSubtask()
	return s.View()
}

// RemoveSubtask drops one subtask row from the open form.
func (s *Service) RemoveSubtask(idx int) View {
	s.form.RemoveSubtask(idx)
	return s.View()
}

// Commit creates or updates a task from fields. On failure the form stays open.
func (s *Service) Commit(ctx context.Context, fields form.Fields) (View, domain.Task, error) {
	task, err := s.form.Commit(fields)
	if err != nil {
		s.log.Debug("form commit rejected", "err", err)
		return s.View(), domain.Task{}, err
	}
	s.persist(ctx)
	return s.View(), task, nil
}

// DeleteActive deletes the task open in the form. Callers confirm first.
func (s *Service) DeleteActive(ctx context.Context) (View, error) {
	if err := s.form.CommitDelete(); err != nil {
		return s.View(), err
	}
	s.persist(ctx)
	return s.View(), nil
}

// MoveTask moves a task to another lane directly, bypassing the drag gesture.
func (s *Service) MoveTask(ctx context.Context, id string, lane domain.LaneID) (View, error) {
	if err := s.store.Move(id, lane); err != nil {
		return s.View(), err
	}
	s.persist(ctx)
	return s.View(), nil
}

// StartDrag begins a drag of the task with id.
func (s *Service) StartDrag(id string) (View, bool) {
	started := s.drag.Start(id)
	return s.View(), started
}

// EndDrag finishes the current drag.
func (s *Service) EndDrag(ctx context.Context, drop drag.Drop) (View, drag.Result) {
	res := s.drag.End(drop)
	s.log.Debug("drag finished", "task_id", res.TaskID, "outcome", res.Outcome, "from", res.From, "to", res.To)
	if res.Moved() {
		s.persist(ctx)
	}
	return s.View(), res
}

// CancelDrag abandons the current drag.
func (s *Service) CancelDrag() View {
	s.drag.Cancel()
	return s.View()
}

// SetHitTester replaces the layout used to resolve pointer drops.
func (s *Service) SetHitTester(h drag.HitTester) {
	s.drag.SetHitTester(h)
}

// ExportSnapshot returns the current board as a snapshot.
func (s *Service) ExportSnapshot() Snapshot {
	return SnapshotFromState(s.store.Snapshot(), s.clock())
}

// ImportSnapshot replaces the board with snap after validating all of it.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) (View, error) {
	st, err := StateFromSnapshot(s.store.LaneSet(), snap)
	if err != nil {
		return s.View(), err
	}
	if err := s.store.Restore(st); err != nil {
		return s.View(), err
	}
	s.persist(ctx)
	return s.View(), nil
}

// RecentActivity returns up to limit recorded changes, newest first.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	if s.activity == nil {
		return nil, nil
	}
	return s.activity.ListChangeEvents(ctx, limit)
}

// recordChange logs store events and marks the board for saving. The restore
// published by Load reflects stored state, not a change, so it is skipped.
func (s *Service) recordChange(event domain.ChangeEvent) {
	if s.loading {
		return
	}
	s.unsaved = true
	if s.activity != nil {
		s.pending = append(s.pending, event)
	}
	s.log.Info("board changed",
		"op", event.Operation,
		"task_id", event.TaskID,
		"from", event.FromLane,
		"to", event.ToLane,
	)
}

// Flush writes pending activity and unsaved board changes, returning every
// failure. Callers that need a durable board, like import, use it after a command.
func (s *Service) Flush(ctx context.Context) error {
	return errors.Join(s.flushActivity(ctx), s.saveBoard(ctx))
}

// persist saves the board and flushes pending activity when those ports are
// configured. Saving is best effort: failures are logged and retried after the
// next command.
func (s *Service) persist(ctx context.Context) {
	if err := s.flushActivity(ctx); err != nil {
		s.log.Warn("activity append failed", "err", err, "events", len(s.pending))
	}
	if err := s.saveBoard(ctx); err != nil {
		s.log.Warn("board save failed", "err", err)
	}
}

func (s *Service) flushActivity(ctx context.Context) error {
	if s.activity == nil || len(s.pending) == 0 {
		return nil
	}
	if err := s.activity.AppendChangeEvents(ctx, s.pending); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	s.pending = nil
	return nil
}

func (s *Service) saveBoard(ctx context.Context) error {
	if s.repo == nil || !s.unsaved {
		return nil
	}
	if err := SaveState(ctx, s.repo, s.store.Snapshot()); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	s.unsaved = false
	return nil
}
