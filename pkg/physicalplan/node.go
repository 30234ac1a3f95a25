// Package physicalplan is the physical operator tree (§3's "Physical Plan
// Blob") and its wire encoding. A blob is a portable byte sequence; only
// the ArroyoExecNode leaf's envelope (owned by pkg/codec) is required to be
// bit-stable across versions (§6) — the rest of this tree's wire shape is
// this core's own concern, so it is encoded with the same
// protowire-primitives approach the codec package uses for that envelope,
// rather than introducing a second serialization scheme.
package physicalplan

import "github.com/arroyo-project/planner/pkg/schema"

// NodeKind discriminates the physical operator variants recognized by this
// core (§4.3, §4.4). ArroyoExecNode is deliberately absent: it is a leaf
// the codec package owns end-to-end (its envelope, not this tree's, is the
// bit-stable artifact).
type NodeKind int32

const (
	KindTableScan NodeKind = iota + 1
	KindFilter
	KindProjection
	KindAggregate
	KindUnion
	// KindMemExecPlaceholder and KindUnnestExecPlaceholder stand in for
	// operators the external runtime supplies (in-memory batch input such
	// as a split aggregate's "partial" stage, and UNNEST execution).
	// Unmarshal leaves them as placeholders; pkg/codec's Decode resolves a
	// MemExec placeholder against its DecodingContext (§4.4).
	KindMemExecPlaceholder
	KindUnnestExecPlaceholder
)

func (k NodeKind) String() string {
	switch k {
	case KindTableScan:
		return "TableScan"
	case KindFilter:
		return "Filter"
	case KindProjection:
		return "Projection"
	case KindAggregate:
		return "Aggregate"
	case KindUnion:
		return "Union"
	case KindMemExecPlaceholder:
		return "MemExecPlaceholder"
	case KindUnnestExecPlaceholder:
		return "UnnestExecPlaceholder"
	default:
		return "Unknown"
	}
}

// Node is a physical operator. The contract deliberately matches
// DataFusion's ExecutionPlan as ported by the original: UnknownPartitioning
// with a fixed partition count, no declared output ordering, and
// with_new_children always erroring (physical plans in this core are
// write-once artifacts, never mutated in place — §4.4).
type Node interface {
	Kind() NodeKind
	Children() []Node
	// OutputSchema is the operator's output row shape.
	OutputSchema() *schema.Schema
	// Partitions is the fixed UnknownPartitioning count (§4.4): this core
	// never declares partition-aware plans, it only threads the count it
	// was given back out.
	Partitions() int
}

// SplitAggregateResult is what the physical planner bridge (Component C)
// returns for an Aggregate extension: the partial-aggregate schema the
// upstream shuffle must conform to, and the finish-stage plan blob the
// graph node's config carries (§4.3).
type SplitAggregateResult struct {
	PartialSchema   *schema.Streaming
	PartialPlanBlob []byte
	FinishPlanBlob  []byte
}
