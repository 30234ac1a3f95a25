// Package graph holds the output artifact of the planning core (§3, §6):
// a directed graph of stateful streaming operators, plus the depth-first
// visitor (Component E) that builds one from a rewritten logical plan.
//
// The node/edge types in this file intentionally have no dependency on
// pkg/logicalplan: logicalplan.Extension references graph.NodeWithEdges as
// its PlanNode return type, so the dependency only runs one way
// (logicalplan -> graph). The visitor, which does need logicalplan, lives
// in the visitor.go file of this same package.
package graph

import "github.com/arroyo-project/planner/pkg/schema"

// ShuffleKind labels an edge's delivery semantics (§3).
type ShuffleKind int

const (
	// Forward delivers each upstream partition to one downstream task
	// without repartitioning.
	Forward ShuffleKind = iota
	// Shuffle repartitions by hash(key) over KeyIndices before delivery.
	Shuffle
	// Broadcast delivers every upstream record to every downstream task.
	Broadcast
)

func (s ShuffleKind) String() string {
	switch s {
	case Forward:
		return "Forward"
	case Shuffle:
		return "Shuffle"
	case Broadcast:
		return "Broadcast"
	default:
		return "Unknown"
	}
}

// LogicalEdge labels a graph edge with its shuffle semantics and the
// schema flowing across it (§3, §6).
type LogicalEdge struct {
	Kind       ShuffleKind
	KeyIndices []int // populated only when Kind == Shuffle
	Schema     *schema.Schema
}

func ForwardEdge(s *schema.Schema) LogicalEdge { return LogicalEdge{Kind: Forward, Schema: s} }

func BroadcastEdge(s *schema.Schema) LogicalEdge { return LogicalEdge{Kind: Broadcast, Schema: s} }

func ShuffleEdge(keyIndices []int, s *schema.Schema) LogicalEdge {
	return LogicalEdge{Kind: Shuffle, KeyIndices: append([]int(nil), keyIndices...), Schema: s}
}

// LogicalNode is a materialized streaming operator (§6). ConfigBlob carries
// a component-specific serialized configuration (e.g. the partial/finish
// physical plan pair produced by the physical planner bridge for an
// Aggregate node).
type LogicalNode struct {
	OperatorKind string
	ConfigBlob   []byte
	OutputSchema *schema.Schema
}

// NodeWithEdges is what an extension's PlanNode call returns: the new
// graph node plus one edge per input, in input order (§4.5). Streaming is
// optional: extensions that establish their own key indices (e.g.
// KeyCalculationExtension) set it explicitly so downstream extensions see
// the correct dense key prefix; when left nil the visitor derives a
// keyless Streaming schema from Node.OutputSchema.
type NodeWithEdges struct {
	Node      LogicalNode
	Edges     []LogicalEdge
	Streaming *schema.Streaming
}
