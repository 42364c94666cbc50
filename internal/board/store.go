package board

import (
	"strings"
	"time"

	"github.com/hylla/lanes/internal/domain"
)

// Listener receives change events after a mutation is visible to readers.
type Listener func(domain.ChangeEvent)

// Clock returns the current time.
type Clock func() time.Time

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the event timestamp source.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithListener registers a change listener.
func WithListener(fn Listener) Option {
	return func(s *Store) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// Store owns the canonical board state. Every mutation builds the complete next
// state and publishes it with a single assignment, so a reader never sees a task
// missing from all lanes or present in two.
//
// Store is not safe for concurrent use; commands are issued serially by one actor.
type Store struct {
	state     State
	clock     Clock
	listeners []Listener
}

// NewStore constructs an empty board partitioned by lanes.
func NewStore(lanes domain.LaneSet, opts ...Option) *Store {
	s := &Store{
		state: emptyState(lanes),
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Subscribe registers a listener after construction.
func (s *Store) Subscribe(fn Listener) {
	if fn != nil {
		s.listeners = append(s.listeners, fn)
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	return s.state
}

// LaneSet returns the store's lane configuration.
func (s *Store) LaneSet() domain.LaneSet {
	return s.state.lanes
}

// Find looks a task up across all lanes.
func (s *Store) Find(id string) (domain.Task, bool) {
	return s.state.Find(strings.TrimSpace(id))
}

// Add appends task to the end of its lane.
func (s *Store) Add(task domain.Task) error {
	task, err := s.normalize(task)
	if err != nil {
		return err
	}
	if _, exists := s.state.index[task.ID]; exists {
		return ErrDuplicateTask
	}

	next := s.state.clone()
	next.replace(task.Lane, appended(next.tasks[task.Lane], task))
	s.publish(next, domain.ChangeEvent{
		Operation: domain.ChangeOperationCreate,
		TaskID:    task.ID,
		Title:     task.Title,
		ToLane:    task.Lane,
	})
	return nil
}

// Update replaces the task with the same id. The task is removed from every lane,
// not just the one the caller believes holds it, and appended to task.Lane, so an
// edit always moves the task to the end of its lane.
func (s *Store) Update(task domain.Task) error {
	task, err := s.normalize(task)
	if err != nil {
		return err
	}
	from, exists := s.state.index[task.ID]
	if !exists {
		return ErrNotFound
	}

	next := s.state.clone()
	for _, laneID := range next.lanes.IDs() {
		list := next.tasks[laneID]
		if pruned := without(list, task.ID); len(pruned) != len(list) {
			next.replace(laneID, pruned)
		}
	}
	next.replace(task.Lane, appended(next.tasks[task.Lane], task))

	op := domain.ChangeOperationUpdate
	if from != task.Lane {
		op = domain.ChangeOperationMove
	}
	s.publish(next, domain.ChangeEvent{
		Operation: op,
		TaskID:    task.ID,
		Title:     task.Title,
		FromLane:  from,
		ToLane:    task.Lane,
	})
	return nil
}

// Delete removes the task with id. Deleting an absent id is a no-op.
func (s *Store) Delete(id string) {
	id = strings.TrimSpace(id)
	from, exists := s.state.index[id]
	if !exists {
		return
	}
	removed, _ := s.state.Find(id)

	next := s.state.clone()
	next.replace(from, without(next.tasks[from], id))
	s.publish(next, domain.ChangeEvent{
		Operation: domain.ChangeOperationDelete,
		TaskID:    id,
		Title:     removed.Title,
		FromLane:  from,
	})
}

// Move relocates the task with id to the end of target. A move into the lane the
// task already occupies leaves the board untouched.
func (s *Store) Move(id string, target domain.LaneID) error {
	id = strings.TrimSpace(id)
	target = domain.NormalizeLaneID(string(target))
	if !s.state.lanes.Has(target) {
		return domain.ErrUnknownLane
	}
	task, exists := s.state.Find(id)
	if !exists {
		return ErrNotFound
	}
	from := task.Lane
	if from == target {
		return nil
	}

	moved := task.WithLane(target)
	next := s.state.clone()
	next.replace(from, without(next.tasks[from], id))
	next.replace(target, appended(next.tasks[target], moved))
	s.publish(next, domain.ChangeEvent{
		Operation: domain.ChangeOperationMove,
		TaskID:    id,
		Title:     task.Title,
		FromLane:  from,
		ToLane:    target,
	})
	return nil
}

// Restore replaces the whole board, e.g. after loading it from storage.
// The incoming state must use the store's lanes and satisfy CheckInvariant.
func (s *Store) Restore(st State) error {
	if err := CheckInvariant(st); err != nil {
		return err
	}
	for laneID := range st.tasks {
		if !s.state.lanes.Has(laneID) {
			return domain.ErrUnknownLane
		}
	}
	next := NewState(s.state.lanes, st.tasks)
	s.publish(next, domain.ChangeEvent{Operation: domain.ChangeOperationRestore})
	return nil
}

// normalize validates a task against the lane set.
func (s *Store) normalize(task domain.Task) (domain.Task, error) {
	normalized, err := domain.NewTask(domain.TaskInput{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Lane:        task.Lane,
		Subtasks:    task.Subtasks,
	})
	if err != nil {
		return domain.Task{}, err
	}
	if !s.state.lanes.Has(normalized.Lane) {
		return domain.Task{}, domain.ErrUnknownLane
	}
	return normalized, nil
}

// publish swaps in next and notifies listeners.
func (s *Store) publish(next State, event domain.ChangeEvent) {
	s.state = next
	event.OccurredAt = s.clock().UTC()
	for _, fn := range s.listeners {
		fn(event)
	}
}
