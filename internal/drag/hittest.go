package drag

import "github.com/hylla/lanes/internal/domain"

// Point is a screen coordinate in cells.
type Point struct {
	X int
	Y int
}

// Element is one node of the presentation tree under a pointer.
type Element interface {
	// LaneTag returns the lane the element is tagged with, if any.
	LaneTag() (domain.LaneID, bool)
	// Parent returns the enclosing element, if any.
	Parent() (Element, bool)
}

// HitTester returns the topmost element at a screen coordinate.
type HitTester interface {
	HitTest(Point) (Element, bool)
}

// HitTesterFunc adapts a function to HitTester.
type HitTesterFunc func(Point) (Element, bool)

// HitTest implements HitTester.
func (f HitTesterFunc) HitTest(p Point) (Element, bool) {
	return f(p)
}

// maxAncestorDepth bounds the ancestor walk so a cyclic tree cannot hang a drop.
const maxAncestorDepth = 64

// ResolveLane walks from el up through its ancestors and returns the first lane tag.
func ResolveLane(el Element) (domain.LaneID, bool) {
	for depth := 0; el != nil && depth < maxAncestorDepth; depth++ {
		if lane, ok := el.LaneTag(); ok && lane != "" {
			return lane, true
		}
		parent, ok := el.Parent()
		if !ok {
			return "", false
		}
		el = parent
	}
	return "", false
}
