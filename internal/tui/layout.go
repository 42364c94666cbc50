package tui

import (
	"github.com/hylla/lanes/internal/board"
	"github.com/hylla/lanes/internal/domain"
	"github.com/hylla/lanes/internal/drag"
)

// Board geometry shared by rendering and pointer hit testing.
const (
	headerRows     = 2
	footerRows     = 3
	laneChrome     = 4 // rounded border plus one column of padding per side
	laneGap        = 1
	laneHeadRows   = 2 // lane title and a spacer
	cardRows       = 2 // title and meta line
	cardGapRows    = 1
	minLaneWidth   = 18
	maxLaneWidth   = 40
	minLaneHeight  = 8
	fallbackWidth  = 24
	fallbackHeight = 20
)

// laneBox is one rendered lane column in screen cells.
type laneBox struct {
	lane   domain.LaneID
	x      int
	width  int // outer width including border and padding
	top    int
	height int // outer height including border
	first  int // index of the first visible card
	cards  []cardBox
}

// cardBox is one visible card inside a lane body.
type cardBox struct {
	taskID string
	y      int
}

// boardLayout is the geometry of one rendered board.
type boardLayout struct {
	lanes []laneBox
}

// layoutBoard computes lane and card positions for st at the given terminal size.
// selected is the lane index whose body scrolls to keep selTask visible.
func layoutBoard(st board.State, lanes []domain.Lane, width, height, selected, selTask int) boardLayout {
	if width <= 0 {
		width = fallbackWidth * max(1, len(lanes))
	}
	if height <= 0 {
		height = fallbackHeight
	}
	inner := laneInnerWidth(width, len(lanes))
	outerHeight := max(minLaneHeight, height-headerRows-footerRows)
	visible := visibleCards(outerHeight)

	out := boardLayout{lanes: make([]laneBox, 0, len(lanes))}
	x := 0
	for idx, lane := range lanes {
		tasks := st.Tasks(lane.ID)
		first := 0
		if idx == selected {
			first = scrollOffset(len(tasks), selTask, visible)
		}
		box := laneBox{
			lane:   lane.ID,
			x:      x,
			width:  inner + laneChrome,
			top:    headerRows,
			height: outerHeight,
			first:  first,
		}
		y := box.bodyTop()
		for i := first; i < len(tasks) && i < first+visible; i++ {
			box.cards = append(box.cards, cardBox{taskID: tasks[i].ID, y: y})
			y += cardRows + cardGapRows
		}
		out.lanes = append(out.lanes, box)
		x += box.width + laneGap
	}
	return out
}

// laneInnerWidth splits the terminal width across lanes.
func laneInnerWidth(width, lanes int) int {
	if lanes <= 0 {
		return minLaneWidth
	}
	w := (width - lanes*(laneChrome+laneGap)) / lanes
	return clamp(w, minLaneWidth, maxLaneWidth)
}

// visibleCards returns how many cards fit in a lane of outer height h.
func visibleCards(h int) int {
	body := h - 2 - laneHeadRows
	return max(1, (body+cardGapRows)/(cardRows+cardGapRows))
}

// scrollOffset returns the first visible index that keeps selected on screen.
func scrollOffset(total, selected, visible int) int {
	if total <= visible || selected < visible {
		return 0
	}
	return clamp(selected-visible+1, 0, total-visible)
}

// bodyTop returns the first screen row of the card area.
func (b laneBox) bodyTop() int {
	return b.top + 1 + laneHeadRows
}

// contains reports whether p falls inside the lane border.
func (b laneBox) contains(p drag.Point) bool {
	return p.X >= b.x && p.X < b.x+b.width && p.Y >= b.top && p.Y < b.top+b.height
}

// inBody reports whether p falls inside the card area.
func (b laneBox) inBody(p drag.Point) bool {
	return p.Y >= b.bodyTop() && p.Y < b.top+b.height-1 && p.X > b.x && p.X < b.x+b.width-1
}

// cardAt returns the card under p.
func (b laneBox) cardAt(p drag.Point) (cardBox, bool) {
	for _, card := range b.cards {
		if p.Y >= card.y && p.Y < card.y+cardRows {
			return card, true
		}
	}
	return cardBox{}, false
}

// laneAt returns the lane box under p.
func (l boardLayout) laneAt(p drag.Point) (laneBox, bool) {
	for _, lane := range l.lanes {
		if lane.contains(p) {
			return lane, true
		}
	}
	return laneBox{}, false
}

// taskAt returns the task whose card is under p.
func (l boardLayout) taskAt(p drag.Point) (string, domain.LaneID, bool) {
	lane, ok := l.laneAt(p)
	if !ok || !lane.inBody(p) {
		return "", "", false
	}
	card, ok := lane.cardAt(p)
	if !ok {
		return "", "", false
	}
	return card.taskID, lane.lane, true
}

// HitTest returns the innermost element under p: a card, the lane body, or the
// lane column itself. Only the column carries the lane tag.
func (l boardLayout) HitTest(p drag.Point) (drag.Element, bool) {
	lane, ok := l.laneAt(p)
	if !ok {
		return nil, false
	}
	column := columnElement{lane: lane.lane}
	if !lane.inBody(p) {
		return column, true
	}
	body := bodyElement{column: column}
	if card, ok := lane.cardAt(p); ok {
		return cardElement{taskID: card.taskID, body: body}, true
	}
	return body, true
}

// columnElement is a lane column; it is the only tagged element.
type columnElement struct {
	lane domain.LaneID
}

func (e columnElement) LaneTag() (domain.LaneID, bool) { return e.lane, true }
func (e columnElement) Parent() (drag.Element, bool)   { return nil, false }

// bodyElement is the card area of a lane.
type bodyElement struct {
	column columnElement
}

func (e bodyElement) LaneTag() (domain.LaneID, bool) { return "", false }
func (e bodyElement) Parent() (drag.Element, bool)   { return e.column, true }

// cardElement is one task card.
type cardElement struct {
	taskID string
	body   bodyElement
}

func (e cardElement) LaneTag() (domain.LaneID, bool) { return "", false }
func (e cardElement) Parent() (drag.Element, bool)   { return e.body, true }
