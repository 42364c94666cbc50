package domain

import (
	"slices"
	"strings"
)

// LaneID identifies one status lane on the board.
type LaneID string

// Default lane identifiers used when no board configuration is supplied.
const (
	LaneTodo  LaneID = "todo"
	LaneDoing LaneID = "doing"
	LaneDone  LaneID = "done"
)

// NormalizeLaneID trims and lowercases a raw lane identifier.
func NormalizeLaneID(raw string) LaneID {
	return LaneID(strings.ToLower(strings.TrimSpace(raw)))
}

// Lane represents one named status bucket.
type Lane struct {
	ID       LaneID
	Name     string
	Position int
}

// NewLane constructs a validated lane.
func NewLane(id, name string, position int) (Lane, error) {
	laneID := NormalizeLaneID(id)
	name = strings.TrimSpace(name)
	if laneID == "" {
		return Lane{}, ErrInvalidLane
	}
	if name == "" {
		return Lane{}, ErrInvalidName
	}
	if position < 0 {
		return Lane{}, ErrInvalidPosition
	}
	return Lane{ID: laneID, Name: name, Position: position}, nil
}

// Rename replaces the display name.
func (l *Lane) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	l.Name = name
	return nil
}

// LaneSet is the fixed, ordered set of lanes a board is partitioned into.
type LaneSet struct {
	lanes       []Lane
	defaultLane LaneID
}

// DefaultLanes returns the stock todo/doing/done lanes.
func DefaultLanes() []Lane {
	return []Lane{
		{ID: LaneTodo, Name: "To Do", Position: 0},
		{ID: LaneDoing, Name: "Doing", Position: 1},
		{ID: LaneDone, Name: "Done", Position: 2},
	}
}

// DefaultLaneSet returns the stock lane set with todo as the default lane.
func DefaultLaneSet() LaneSet {
	set, _ := NewLaneSet(DefaultLanes(), LaneTodo)
	return set
}

// NewLaneSet validates lanes and orders them by position, keeping input order for ties.
// An empty defaultLane selects the first lane.
func NewLaneSet(lanes []Lane, defaultLane LaneID) (LaneSet, error) {
	if len(lanes) == 0 {
		return LaneSet{}, ErrEmptyLaneSet
	}
	out := make([]Lane, 0, len(lanes))
	seen := map[LaneID]struct{}{}
	for _, raw := range lanes {
		lane, err := NewLane(string(raw.ID), raw.Name, raw.Position)
		if err != nil {
			return LaneSet{}, err
		}
		if _, ok := seen[lane.ID]; ok {
			return LaneSet{}, ErrDuplicateLane
		}
		seen[lane.ID] = struct{}{}
		out = append(out, lane)
	}
	slices.SortStableFunc(out, func(a, b Lane) int {
		return a.Position - b.Position
	})

	defaultLane = NormalizeLaneID(string(defaultLane))
	if defaultLane == "" {
		defaultLane = out[0].ID
	}
	if _, ok := seen[defaultLane]; !ok {
		return LaneSet{}, ErrUnknownLane
	}
	return LaneSet{lanes: out, defaultLane: defaultLane}, nil
}

// Lanes returns a copy of the ordered lanes.
func (s LaneSet) Lanes() []Lane {
	return append([]Lane(nil), s.lanes...)
}

// IDs returns lane identifiers in display order.
func (s LaneSet) IDs() []LaneID {
	out := make([]LaneID, 0, len(s.lanes))
	for _, lane := range s.lanes {
		out = append(out, lane.ID)
	}
	return out
}

// Len returns the number of lanes.
func (s LaneSet) Len() int {
	return len(s.lanes)
}

// Default returns the lane new tasks land in.
func (s LaneSet) Default() LaneID {
	return s.defaultLane
}

// Has reports whether id is a member of the set.
func (s LaneSet) Has(id LaneID) bool {
	return s.Index(id) >= 0
}

// Index returns the display index of id, or -1.
func (s LaneSet) Index(id LaneID) int {
	for idx, lane := range s.lanes {
		if lane.ID == id {
			return idx
		}
	}
	return -1
}

// Lane returns the lane with id.
func (s LaneSet) Lane(id LaneID) (Lane, bool) {
	idx := s.Index(id)
	if idx < 0 {
		return Lane{}, false
	}
	return s.lanes[idx], true
}

// Neighbor returns the lane delta positions away from id, clamped to the set bounds.
func (s LaneSet) Neighbor(id LaneID, delta int) (LaneID, bool) {
	idx := s.Index(id)
	if idx < 0 || len(s.lanes) == 0 {
		return "", false
	}
	idx = max(0, min(len(s.lanes)-1, idx+delta))
	return s.lanes[idx].ID, true
}

// WithNames returns a copy with display names replaced where names has an entry.
func (s LaneSet) WithNames(names map[LaneID]string) LaneSet {
	out := LaneSet{lanes: s.Lanes(), defaultLane: s.defaultLane}
	for idx := range out.lanes {
		if name, ok := names[out.lanes[idx].ID]; ok {
			_ = out.lanes[idx].Rename(name)
		}
	}
	return out
}
