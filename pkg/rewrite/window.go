// Package rewrite implements Component B: the logical-plan rewriters that
// turn a raw relational tree (as produced by the external SQL front-end)
// into the fully keyed, windowed form the graph visitor (Component E)
// expects (§3, §4.2).
package rewrite

import (
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// WindowKind enumerates the windowing strategies this core recognizes.
type WindowKind int

const (
	WindowNone WindowKind = iota
	WindowTumble
	WindowHop
	WindowSession
)

func (k WindowKind) String() string {
	switch k {
	case WindowTumble:
		return "Tumble"
	case WindowHop:
		return "Hop"
	case WindowSession:
		return "Session"
	default:
		return "None"
	}
}

// WindowType describes a detected window assignment (§4.2.2).
type WindowType struct {
	Kind  WindowKind
	Width int64 // nanoseconds; Tumble/Hop bucket width
	Slide int64 // nanoseconds; Hop only
	Gap   int64 // nanoseconds; Session only
}

// Equal reports whether two window types describe the same assignment,
// used to detect inconsistent windowing across a join's two sides
// (§4.2.1: "both inputs carry the same window assignment").
func (w WindowType) Equal(o WindowType) bool {
	return w.Kind == o.Kind && w.Width == o.Width && w.Slide == o.Slide && w.Gap == o.Gap
}

// windowed is how DetectWindow recognizes a node already bearing a window
// assignment. Kept unexported: callers never need to construct one, and
// WindowExtension (inserted by ClassifyAggregate in aggregate.go) is its
// only implementation.
type windowed interface {
	windowType() WindowType
}

func (w *WindowExtension) windowType() WindowType { return w.Type }

// DetectWindow walks node and its inputs looking for a window
// assignment, matching the original's WindowDetectingVisitor (§4.2.2): a
// subplan either carries no window, carries exactly one consistent window
// assignment across every branch that has one, or is inconsistent (an
// error). It stops descending the first time it finds a windowed node on a
// branch, since windowing is a property of the nearest enclosing
// WindowExtension, not of every ancestor above it.
func DetectWindow(node logicalplan.Node) (*WindowType, error) {
	if w, ok := node.(windowed); ok {
		wt := w.windowType()
		return &wt, nil
	}
	var found *WindowType
	for _, in := range node.Inputs() {
		wt, err := DetectWindow(in)
		if err != nil {
			return nil, err
		}
		if wt == nil {
			continue
		}
		if found != nil && !found.Equal(*wt) {
			return nil, planerr.Plan("inconsistent window assignment across subplan: %s vs %s", found.Kind, wt.Kind)
		}
		found = wt
	}
	return found, nil
}

// WindowExtension is inserted by ClassifyAggregate (aggregate.go) when a
// windowed aggregate is detected: it materializes the per-row window
// struct column over Input before the keyed aggregate stage consumes it
// (§4.2.2, §4.3 step 1 — the "Scan -> Window -> Aggregate" shape S1
// exercises).
type WindowExtension struct {
	Input        logicalplan.Node
	Type         WindowType
	WindowColumn string // output field name of the materialized window struct
	OutputSchema *schema.Schema
}
