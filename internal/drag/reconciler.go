package drag

import (
	"strings"

	"github.com/hylla/lanes/internal/domain"
)

// Mover is the slice of the task store a drag needs.
type Mover interface {
	Find(id string) (domain.Task, bool)
	Move(id string, target domain.LaneID) error
}

// Outcome describes how a drag ended.
type Outcome string

// Outcome values reported by End. Only OutcomeMoved changes the board.
const (
	OutcomeMoved    Outcome = "moved"
	OutcomeNoDrag   Outcome = "no_drag"
	OutcomeCanceled Outcome = "canceled"
	OutcomeNoTarget Outcome = "no_target"
	OutcomeMissing  Outcome = "missing"
	OutcomeSameLane Outcome = "same_lane"
	OutcomeRejected Outcome = "rejected"
)

// Session is the transient drag state.
type Session struct {
	TaskID string
	Active bool
}

// Drop carries the end of a gesture. Over is false when the pointer left every
// droppable region. Lane, when set, names the target directly and skips hit-testing.
type Drop struct {
	Over  bool
	Point Point
	Lane  domain.LaneID
}

// Result reports a finished drag.
type Result struct {
	Outcome Outcome
	TaskID  string
	From    domain.LaneID
	To      domain.LaneID
}

// Moved reports whether the drag changed the board.
func (r Result) Moved() bool {
	return r.Outcome == OutcomeMoved
}

// Reconciler turns a drag gesture into at most one move command.
// It never returns errors; imprecise drops are absorbed as no-ops.
type Reconciler struct {
	mover   Mover
	hits    HitTester
	session Session
}

// NewReconciler constructs an idle reconciler. hits may be nil when callers always
// pass Drop.Lane.
func NewReconciler(mover Mover, hits HitTester) *Reconciler {
	return &Reconciler{mover: mover, hits: hits}
}

// SetHitTester replaces the hit-testing collaborator, e.g. after a relayout.
func (r *Reconciler) SetHitTester(hits HitTester) {
	r.hits = hits
}

// Session returns the current drag session.
func (r *Reconciler) Session() Session {
	return r.session
}

// Start begins dragging taskID. A second start while dragging is ignored.
func (r *Reconciler) Start(taskID string) bool {
	taskID = strings.TrimSpace(taskID)
	if r.session.Active || taskID == "" {
		return false
	}
	r.session = Session{TaskID: taskID, Active: true}
	return true
}

// Cancel abandons the current drag without touching the board.
func (r *Reconciler) Cancel() Result {
	return r.End(Drop{})
}

// End finishes the drag and issues a move when the drop resolves to another lane.
func (r *Reconciler) End(drop Drop) Result {
	session := r.session
	r.session = Session{}
	if !session.Active {
		return Result{Outcome: OutcomeNoDrag}
	}
	res := Result{TaskID: session.TaskID}
	if !drop.Over {
		res.Outcome = OutcomeCanceled
		return res
	}

	target, ok := r.resolveTarget(drop)
	if !ok {
		res.Outcome = OutcomeNoTarget
		return res
	}
	res.To = target

	task, ok := r.mover.Find(session.TaskID)
	if !ok {
		res.Outcome = OutcomeMissing
		return res
	}
	res.From = task.Lane
	if task.Lane == target {
		res.Outcome = OutcomeSameLane
		return res
	}
	if err := r.mover.Move(session.TaskID, target); err != nil {
		res.Outcome = OutcomeRejected
		return res
	}
	res.Outcome = OutcomeMoved
	return res
}

// resolveTarget picks the drop lane from the explicit lane or the hit-tested element chain.
func (r *Reconciler) resolveTarget(drop Drop) (domain.LaneID, bool) {
	if lane := domain.NormalizeLaneID(string(drop.Lane)); lane != "" {
		return lane, true
	}
	if r.hits == nil {
		return "", false
	}
	el, ok := r.hits.HitTest(drop.Point)
	if !ok || el == nil {
		return "", false
	}
	return ResolveLane(el)
}
