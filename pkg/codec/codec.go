// Package codec is Component D: decoding a serialized physical plan blob
// (pkg/physicalplan) back into a live node tree, resolving the two
// extension leaf kinds (MemExec, UnnestExec) against whatever batch data
// the embedding runtime has on hand for this particular decode (§4.4).
//
// The rest of the physical tree decodes straight through pkg/physicalplan's
// own Unmarshal with no runtime involvement at all; this package only ever
// has work to do at MemExecPlaceholder/UnnestExecPlaceholder leaves.
package codec

import (
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/schema"
)

// ExecNode is a decoded, context-resolved physical node. It carries
// physicalplan.Node's contract unchanged (Kind, Children, OutputSchema,
// Partitions) -- decoding never changes an operator's shape, only attaches
// a data source to the two extension leaf kinds.
type ExecNode interface {
	physicalplan.Node

	// ResolvedAs names the DecodingContext variant that produced this node,
	// or "" for nodes that carry no backing data (every kind other than
	// MemExec).
	ResolvedAs() string
}

// DecodingVariant enumerates the data-source shapes a MemExecPlaceholder
// can resolve against, per §4.4's decoding context table. Every variant
// shares the same execution contract: UnknownPartitioning(1), no declared
// ordering, no children, with_new_children always fails -- the variants
// differ only in what Take returns.
type DecodingVariant int

const (
	// VariantNone marks a MemExecPlaceholder decoded with no context at
	// all: resolving one is always an error.
	VariantNone DecodingVariant = iota
	// VariantPlanning backs a placeholder with schema only, no rows --
	// used when a plan is decoded purely to inspect or re-plan it, never
	// to execute it.
	VariantPlanning
	// VariantSingleLockedBatch backs a placeholder with exactly one
	// take-once batch value.
	VariantSingleLockedBatch
	// VariantUnboundedBatchStream backs a placeholder with a take-once
	// receive channel of batches.
	VariantUnboundedBatchStream
	// VariantLockedBatchVec backs a placeholder with a take-once slice of
	// batch values.
	VariantLockedBatchVec
	// VariantLockedJoinPair backs a placeholder with one of two take-once
	// batch slots, selected by the placeholder's table name ("left" or
	// "right").
	VariantLockedJoinPair
)

func (v DecodingVariant) String() string {
	switch v {
	case VariantNone:
		return "None"
	case VariantPlanning:
		return "Planning"
	case VariantSingleLockedBatch:
		return "SingleLockedBatch"
	case VariantUnboundedBatchStream:
		return "UnboundedBatchStream"
	case VariantLockedBatchVec:
		return "LockedBatchVec"
	case VariantLockedJoinPair:
		return "LockedJoinPair"
	default:
		return "Unknown"
	}
}

// resolvedMemExec is the ExecNode a MemExecPlaceholder decodes into. It
// never interprets slot's contents -- this core has no row type of its
// own, only whatever any a particular embedding chooses to put in a slot.
type resolvedMemExec struct {
	table   string
	sch     *schema.Schema
	variant DecodingVariant
	slot    any
}

func (r *resolvedMemExec) Kind() physicalplan.NodeKind    { return physicalplan.KindMemExecPlaceholder }
func (r *resolvedMemExec) Children() []physicalplan.Node  { return nil }
func (r *resolvedMemExec) OutputSchema() *schema.Schema   { return r.sch }
func (r *resolvedMemExec) Partitions() int                { return 1 }
func (r *resolvedMemExec) ResolvedAs() string             { return r.variant.String() }

// Table is the name the originating MemExecPlaceholder carried, e.g.
// "partial" for a split aggregate's finish stage or "left"/"right" for a
// join's build sides.
func (r *resolvedMemExec) Table() string { return r.table }

// Slot is the take-once data source DecodingContext resolved this node
// against: a *BatchSlot, *BatchStream, *BatchVecSlot, or nil for
// VariantNone/VariantPlanning. Callers type-assert based on ResolvedAs.
func (r *resolvedMemExec) Slot() any { return r.slot }

// resolvedUnnest is the ExecNode an UnnestExecPlaceholder decodes into.
// Unlike MemExec it needs no DecodingContext: its input comes straight
// from the rest of the decoded tree (§4.4).
type resolvedUnnest struct {
	input  physicalplan.Node
	column string
	sch    *schema.Schema
}

func (r *resolvedUnnest) Kind() physicalplan.NodeKind   { return physicalplan.KindUnnestExecPlaceholder }
func (r *resolvedUnnest) Children() []physicalplan.Node { return []physicalplan.Node{r.input} }
func (r *resolvedUnnest) OutputSchema() *schema.Schema  { return r.sch }
func (r *resolvedUnnest) Partitions() int               { return r.input.Partitions() }
func (r *resolvedUnnest) ResolvedAs() string            { return "" }
func (r *resolvedUnnest) Column() string                { return r.column }

// passthroughExec wraps an already-decoded physicalplan.Node kind that
// carries no data source of its own (TableScan, Filter, Projection,
// Aggregate, Union) so the whole decoded tree is uniformly an ExecNode,
// not just its two extension leaves.
type passthroughExec struct {
	physicalplan.Node
}

func (p *passthroughExec) ResolvedAs() string { return "" }

var (
	_ ExecNode = (*resolvedMemExec)(nil)
	_ ExecNode = (*resolvedUnnest)(nil)
	_ ExecNode = (*passthroughExec)(nil)
)
