// Package physical is Component C: the physical planner bridge. It lowers
// rewritten logical plan subtrees into the minimal physical operator IR in
// pkg/physicalplan and performs the two-phase aggregate split (§4.3).
//
// Bridge implements logicalplan.Planner, so pkg/rewrite and pkg/graph can
// depend on the interface without importing this package (logicalplan
// depends on nothing in pkg/physical; pkg/physical depends on
// logicalplan, not the reverse -- see pkg/logicalplan's package doc).
package physical

import (
	"github.com/arroyo-project/planner/pkg/logicalplan"
)

// Bridge is the concrete logicalplan.Planner. It is stateless: every call
// is a pure function of its arguments, so a single Bridge is safely
// reused across planning sessions.
type Bridge struct{}

// NewBridge constructs a Bridge.
func NewBridge() *Bridge { return &Bridge{} }

var _ logicalplan.Planner = (*Bridge)(nil)

// runScoped ports the original's "stand up a dedicated single-thread
// executor scoped to the call, block until the future resolves, tear the
// executor down before returning" idiom (§5) that the original needs
// because its underlying batch planner (DataFusion's
// create_physical_plan) is genuinely asynchronous and the bridge's caller
// must not be suspended on it. This port's lowering logic is synchronous
// CPU-bound Go code with no async library underneath, so there is no
// executor to avoid re-entering -- but the call is still run on a scoped
// goroutine with a single-slot completion channel rather than inline, so
// that swapping in a genuinely asynchronous underlying planner later (a
// remote planning service, say) only changes what runs inside fn, never
// Bridge's public, synchronous-looking contract.
func runScoped[T any](fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()
	r := <-done
	return r.val, r.err
}
