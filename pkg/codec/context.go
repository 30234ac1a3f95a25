package codec

import (
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// DecodingContext supplies the batch data a MemExecPlaceholder resolves
// against at Decode time. UnnestExecPlaceholder needs none: its input
// comes from the rest of the decoded tree, not from the caller (§4.4).
type DecodingContext interface {
	resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error)
}

// NoneContext decodes a plan with no batch data at all. Any
// MemExecPlaceholder it encounters fails with an Internal error, so only a
// plan without MemExec leaves decodes under it; PlanningContext is the one
// that resolves MemExec leaves for schema-only inspection.
type NoneContext struct{}

func (NoneContext) resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error) {
	return nil, planerr.Internal("decoding context is None: cannot resolve MemExec placeholder %q", table)
}

// PlanningContext decodes a plan for inspection or re-planning: every
// MemExecPlaceholder resolves to a schema-only node with no backing slot.
type PlanningContext struct{}

func (PlanningContext) resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error) {
	return &resolvedMemExec{table: table, sch: sch, variant: VariantPlanning}, nil
}

// SingleLockedBatchContext decodes a plan that reads exactly one batch
// from a single MemExecPlaceholder, e.g. a split aggregate's finish stage
// reading its "partial" input.
type SingleLockedBatchContext struct {
	Slot *BatchSlot
}

func (c SingleLockedBatchContext) resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error) {
	if c.Slot == nil {
		return nil, planerr.Internal("SingleLockedBatchContext has no slot for MemExec placeholder %q", table)
	}
	return &resolvedMemExec{table: table, sch: sch, variant: VariantSingleLockedBatch, slot: c.Slot}, nil
}

// UnboundedBatchStreamContext decodes a plan reading an unbounded batch
// stream from a single MemExecPlaceholder.
type UnboundedBatchStreamContext struct {
	Stream *BatchStream
}

func (c UnboundedBatchStreamContext) resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error) {
	if c.Stream == nil {
		return nil, planerr.Internal("UnboundedBatchStreamContext has no stream for MemExec placeholder %q", table)
	}
	return &resolvedMemExec{table: table, sch: sch, variant: VariantUnboundedBatchStream, slot: c.Stream}, nil
}

// LockedBatchVecContext decodes a plan reading a fixed, already-known
// slice of batches from a single MemExecPlaceholder.
type LockedBatchVecContext struct {
	Slot *BatchVecSlot
}

func (c LockedBatchVecContext) resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error) {
	if c.Slot == nil {
		return nil, planerr.Internal("LockedBatchVecContext has no slot for MemExec placeholder %q", table)
	}
	return &resolvedMemExec{table: table, sch: sch, variant: VariantLockedBatchVec, slot: c.Slot}, nil
}

// LockedJoinPairContext decodes a plan with two MemExecPlaceholder
// leaves, dispatching by the placeholder's table name -- "left" or
// "right" -- to the matching build-side slot (a join's two inputs decode
// in the same call, each against its own slot).
type LockedJoinPairContext struct {
	Left  *BatchSlot
	Right *BatchSlot
}

func (c LockedJoinPairContext) resolveMem(table string, sch *schema.Schema) (*resolvedMemExec, error) {
	switch table {
	case "left":
		if c.Left == nil {
			return nil, planerr.Internal("LockedJoinPairContext has no left slot")
		}
		return &resolvedMemExec{table: table, sch: sch, variant: VariantLockedJoinPair, slot: c.Left}, nil
	case "right":
		if c.Right == nil {
			return nil, planerr.Internal("LockedJoinPairContext has no right slot")
		}
		return &resolvedMemExec{table: table, sch: sch, variant: VariantLockedJoinPair, slot: c.Right}, nil
	default:
		return nil, planerr.Internal("LockedJoinPairContext cannot resolve MemExec placeholder %q, want \"left\" or \"right\"", table)
	}
}

var (
	_ DecodingContext = NoneContext{}
	_ DecodingContext = PlanningContext{}
	_ DecodingContext = SingleLockedBatchContext{}
	_ DecodingContext = UnboundedBatchStreamContext{}
	_ DecodingContext = LockedBatchVecContext{}
	_ DecodingContext = LockedJoinPairContext{}
)
