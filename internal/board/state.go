package board

import "github.com/hylla/lanes/internal/domain"

// State is an immutable view of the board. Values handed out by its accessors are copies.
type State struct {
	lanes domain.LaneSet
	tasks map[domain.LaneID][]domain.Task
	index map[string]domain.LaneID
}

// NewState builds a state from per-lane task lists without validating it; see CheckInvariant.
func NewState(lanes domain.LaneSet, tasks map[domain.LaneID][]domain.Task) State {
	st := State{
		lanes: lanes,
		tasks: make(map[domain.LaneID][]domain.Task, lanes.Len()),
		index: map[string]domain.LaneID{},
	}
	for _, laneID := range lanes.IDs() {
		st.tasks[laneID] = nil
	}
	for laneID, list := range tasks {
		cloned := make([]domain.Task, 0, len(list))
		for _, task := range list {
			cloned = append(cloned, task.Clone())
			st.index[task.ID] = laneID
		}
		st.tasks[laneID] = cloned
	}
	return st
}

// emptyState returns a board with every lane present and empty.
func emptyState(lanes domain.LaneSet) State {
	return NewState(lanes, nil)
}

// LaneSet returns the lane configuration the state is partitioned by.
func (s State) LaneSet() domain.LaneSet {
	return s.lanes
}

// Lanes returns lane ids in display order.
func (s State) Lanes() []domain.LaneID {
	return s.lanes.IDs()
}

// Tasks returns a copy of one lane's ordered task list.
func (s State) Tasks(lane domain.LaneID) []domain.Task {
	list := s.tasks[lane]
	out := make([]domain.Task, 0, len(list))
	for _, task := range list {
		out = append(out, task.Clone())
	}
	return out
}

// Len returns the number of tasks on the board.
func (s State) Len() int {
	total := 0
	for _, list := range s.tasks {
		total += len(list)
	}
	return total
}

// LaneOf returns the lane currently holding id.
func (s State) LaneOf(id string) (domain.LaneID, bool) {
	lane, ok := s.index[id]
	return lane, ok
}

// Find returns a copy of the task with id.
func (s State) Find(id string) (domain.Task, bool) {
	lane, ok := s.index[id]
	if !ok {
		return domain.Task{}, false
	}
	for _, task := range s.tasks[lane] {
		if task.ID == id {
			return task.Clone(), true
		}
	}
	return domain.Task{}, false
}

// All returns every task in lane display order, then list order.
func (s State) All() []domain.Task {
	out := make([]domain.Task, 0, s.Len())
	for _, lane := range s.lanes.IDs() {
		out = append(out, s.Tasks(lane)...)
	}
	return out
}

// Equal reports whether both states hold the same tasks in the same lanes and order.
func (s State) Equal(other State) bool {
	lanes := s.lanes.IDs()
	otherLanes := other.lanes.IDs()
	if len(lanes) != len(otherLanes) {
		return false
	}
	for idx, lane := range lanes {
		if otherLanes[idx] != lane {
			return false
		}
		a, b := s.tasks[lane], other.tasks[lane]
		if len(a) != len(b) {
			return false
		}
		for pos := range a {
			if !a[pos].Equal(b[pos]) {
				return false
			}
		}
	}
	return true
}

// clone returns an unpublished copy of s. Lane slices are shared and never mutated in place.
func (s State) clone() State {
	next := State{
		lanes: s.lanes,
		tasks: make(map[domain.LaneID][]domain.Task, len(s.tasks)),
		index: make(map[string]domain.LaneID, len(s.index)+1),
	}
	for laneID, tasks := range s.tasks {
		next.tasks[laneID] = tasks
	}
	for id, laneID := range s.index {
		next.index[id] = laneID
	}
	return next
}

// replace swaps one lane list on an unpublished state and reindexes it.
func (s *State) replace(lane domain.LaneID, list []domain.Task) {
	for _, task := range s.tasks[lane] {
		if s.index[task.ID] == lane {
			delete(s.index, task.ID)
		}
	}
	s.tasks[lane] = list
	for _, task := range list {
		s.index[task.ID] = lane
	}
}

// CheckInvariant verifies that every lane is known, every task is valid, sits in the lane it names,
// and that no id appears more than once across all lanes.
func CheckInvariant(s State) error {
	seen := map[string]struct{}{}
	for laneID, list := range s.tasks {
		if !s.lanes.Has(laneID) {
			return domain.ErrUnknownLane
		}
		for _, task := range list {
			if err := task.Validate(); err != nil {
				return err
			}
			if task.Lane != laneID {
				return ErrBrokenState
			}
			if _, ok := seen[task.ID]; ok {
				return ErrDuplicateTask
			}
			seen[task.ID] = struct{}{}
		}
	}
	return nil
}

// without returns list minus the task with id, or list itself when id is absent.
func without(list []domain.Task, id string) []domain.Task {
	idx := -1
	for pos, task := range list {
		if task.ID == id {
			idx = pos
			break
		}
	}
	if idx < 0 {
		return list
	}
	out := make([]domain.Task, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}

// appended returns a fresh slice holding list followed by task.
func appended(list []domain.Task, task domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(list)+1)
	out = append(out, list...)
	return append(out, task)
}
