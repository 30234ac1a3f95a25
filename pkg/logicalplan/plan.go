package logicalplan

import (
	"fmt"

	"github.com/arroyo-project/planner/pkg/graph"
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/schema"
)

// Node is any member of the logical plan tree: the standard relational
// operators below, or an Extension (§3).
type Node interface {
	// Schema is the node's output schema.
	Schema() *schema.Schema
	// Inputs returns the node's child plans, in a stable order.
	Inputs() []Node
}

// NamedKind enumerates the stable-name families a plan node may advertise
// (§3: "Source(table), Watermark(table), RemoteTable(table)").
type NamedKind int

const (
	NamedSource NamedKind = iota
	NamedWatermark
	NamedRemoteTable
)

func (k NamedKind) String() string {
	switch k {
	case NamedSource:
		return "Source"
	case NamedWatermark:
		return "Watermark"
	case NamedRemoteTable:
		return "RemoteTable"
	default:
		return "Unknown"
	}
}

// NamedNode is a node's stable name: a kind plus the table it refers to.
// Two extension nodes sharing a NamedNode are the same physical thing and
// the graph visitor deduplicates them (§3, §4.5).
type NamedNode struct {
	Kind  NamedKind
	Table string
}

func (n NamedNode) String() string { return fmt.Sprintf("%s(%s)", n.Kind, n.Table) }

// Planner is the seam the graph visitor (Component E) uses to hand
// relational subtrees and aggregate splits to the physical planner bridge
// (Component C), without logicalplan depending on pkg/physical directly
// (pkg/physical depends on logicalplan, not the reverse).
type Planner interface {
	// Plan lowers a side-effect-free relational subtree (no Extension
	// nodes) into a serialized physical plan blob (§4.3, §4.4).
	Plan(node Node) ([]byte, error)
	// SplitAggregate lowers an Aggregate subtree into the partial/finish
	// split described in §4.3, returning the finish plan's config blob
	// plus the post-partial streaming schema.
	SplitAggregate(keyIndices []int, agg *Aggregate) (physicalplan.SplitAggregateResult, error)
	// BinningFunction serializes a date_bin(width, _timestamp) physical
	// expression for a Window extension's runtime configuration (§4.1).
	BinningFunction(width int64, input *schema.Schema) ([]byte, error)
	// CompileExpr lowers a single logical expression (a join key, a
	// residual join filter, ...) into a serialized physical expression
	// blob evaluable against rows of the given input schema.
	CompileExpr(e Expr, input *schema.Schema) ([]byte, error)
}

// Extension is the seam streaming rewrites (Component B) and the external
// SQL front-end use to attach non-relational nodes to the tree (§3, §4.5,
// "ArroyoExtension::plan_node" in the original).
type Extension interface {
	Node
	// StableName returns the node's dedup key, if it has one.
	StableName() (NamedNode, bool)
	// PlanNode materializes this node into a graph node plus one edge per
	// input, given the already-assigned node count (used for the new
	// node's id) and the inputs' streaming schemas.
	PlanNode(p Planner, nodeCount int, inputSchemas []*schema.Streaming) (graph.NodeWithEdges, error)
}

// --- Standard relational operators (§3) -----------------------------------

// TableScan is a leaf reference to a table already resolved by the SQL
// front-end; the core never resolves table names itself (§1 Non-goals).
type TableScan struct {
	Table        string
	OutputSchema *schema.Schema
}

func (t *TableScan) Schema() *schema.Schema { return t.OutputSchema }
func (t *TableScan) Inputs() []Node         { return nil }

// Projection computes a fixed list of output expressions over Input.
type Projection struct {
	Input        Node
	Exprs        []Expr
	OutputSchema *schema.Schema
}

func (p *Projection) Schema() *schema.Schema { return p.OutputSchema }
func (p *Projection) Inputs() []Node         { return []Node{p.Input} }

// NewProjection derives the output schema from Exprs against Input's schema.
func NewProjection(input Node, exprs []Expr) (*Projection, error) {
	fields := make([]schema.Field, len(exprs))
	for i, e := range exprs {
		f, err := ExprOutputField(e, input.Schema())
		if err != nil {
			return nil, err
		}
		fields[i] = f
	}
	return &Projection{Input: input, Exprs: exprs, OutputSchema: schema.New(fields...)}, nil
}

// Filter retains rows for which Predicate evaluates true.
type Filter struct {
	Input     Node
	Predicate Expr
}

func (f *Filter) Schema() *schema.Schema { return f.Input.Schema() }
func (f *Filter) Inputs() []Node         { return []Node{f.Input} }

// JoinType is the standard SQL join kind.
type JoinType int

const (
	InnerJoin JoinType = iota
	LeftJoin
	RightJoin
	FullJoin
)

func (j JoinType) String() string {
	switch j {
	case InnerJoin:
		return "Inner"
	case LeftJoin:
		return "Left"
	case RightJoin:
		return "Right"
	case FullJoin:
		return "Full"
	default:
		return "Unknown"
	}
}

// JoinCondition is one equi-join key pair (§4.2.1: "only equi-joins on
// column pairs are supported").
type JoinCondition struct {
	Left, Right Expr
}

// Join is the raw relational join the rewriter consumes and replaces with
// a JoinExtension wrapping a KeyCalculationExtension on each side (§4.2.1).
// It is never planned directly: a Join surviving rewriting is a bug.
type Join struct {
	Left, Right    Node
	On             []JoinCondition
	Filter         Expr // optional non-equi residual predicate
	Type           JoinType
	NullEqualsNull bool
	OutputSchema   *schema.Schema
}

func (j *Join) Schema() *schema.Schema { return j.OutputSchema }
func (j *Join) Inputs() []Node         { return []Node{j.Left, j.Right} }

// Aggregate is the raw relational aggregate the window/aggregate
// classifier (§4.2.2) consumes. GroupBy may contain a window() call, which
// classification detects and splits out into a separate Window extension.
type Aggregate struct {
	Input        Node
	GroupBy      []Expr
	AggrExprs    []Expr
	OutputSchema *schema.Schema
}

func (a *Aggregate) Schema() *schema.Schema { return a.OutputSchema }
func (a *Aggregate) Inputs() []Node         { return []Node{a.Input} }

// Union concatenates same-schema inputs.
type Union struct {
	UnionInputs  []Node
	OutputSchema *schema.Schema
}

func (u *Union) Schema() *schema.Schema { return u.OutputSchema }
func (u *Union) Inputs() []Node         { return u.UnionInputs }

// --- Opaque extensions supplied by the external SQL front-end (§4.2.2) ----
//
// The core never originates these; it only needs to satisfy the Extension
// contract for them uniformly so the rewriters and graph visitor can walk
// past (or over) them without a type switch on every front-end-owned kind.

// SourceExtension is a leaf connector read, keyed by table name so two
// references to the same source dedupe into one graph node (§3 S3).
type SourceExtension struct {
	Table        string
	OutputSchema *schema.Schema
}

func (s *SourceExtension) Schema() *schema.Schema { return s.OutputSchema }
func (s *SourceExtension) Inputs() []Node         { return nil }
func (s *SourceExtension) StableName() (NamedNode, bool) {
	return NamedNode{Kind: NamedSource, Table: s.Table}, true
}
func (s *SourceExtension) PlanNode(_ Planner, nodeCount int, _ []*schema.Streaming) (graph.NodeWithEdges, error) {
	return graph.NodeWithEdges{Node: graph.LogicalNode{
		OperatorKind: "Source:" + s.Table,
		OutputSchema: s.OutputSchema,
	}}, nil
}

// WatermarkExtension wraps a single input (typically a Source) with a
// watermark-generation strategy.
type WatermarkExtension struct {
	Table        string
	Input        Node
	OutputSchema *schema.Schema
}

func (w *WatermarkExtension) Schema() *schema.Schema { return w.OutputSchema }
func (w *WatermarkExtension) Inputs() []Node         { return []Node{w.Input} }
func (w *WatermarkExtension) StableName() (NamedNode, bool) {
	return NamedNode{Kind: NamedWatermark, Table: w.Table}, true
}
func (w *WatermarkExtension) PlanNode(_ Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	return graph.NodeWithEdges{
		Node:  graph.LogicalNode{OperatorKind: "Watermark:" + w.Table, OutputSchema: w.OutputSchema},
		Edges: []graph.LogicalEdge{graph.ForwardEdge(streamingSchemaOf(in, 0))},
	}, nil
}

// RemoteTableExtension is a leaf reference to another plan's materialized
// output (e.g. a CTE or a previously registered view).
type RemoteTableExtension struct {
	Table        string
	OutputSchema *schema.Schema
}

func (r *RemoteTableExtension) Schema() *schema.Schema { return r.OutputSchema }
func (r *RemoteTableExtension) Inputs() []Node         { return nil }
func (r *RemoteTableExtension) StableName() (NamedNode, bool) {
	return NamedNode{Kind: NamedRemoteTable, Table: r.Table}, true
}
func (r *RemoteTableExtension) PlanNode(_ Planner, nodeCount int, _ []*schema.Streaming) (graph.NodeWithEdges, error) {
	return graph.NodeWithEdges{Node: graph.LogicalNode{
		OperatorKind: "RemoteTable:" + r.Table,
		OutputSchema: r.OutputSchema,
	}}, nil
}

// SinkExtension is the terminal write; it has no stable name since a sink
// is never shared across branches.
type SinkExtension struct {
	Table        string
	Input        Node
	OutputSchema *schema.Schema
}

func (s *SinkExtension) Schema() *schema.Schema    { return s.OutputSchema }
func (s *SinkExtension) Inputs() []Node            { return []Node{s.Input} }
func (s *SinkExtension) StableName() (NamedNode, bool) { return NamedNode{}, false }
func (s *SinkExtension) PlanNode(_ Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	return graph.NodeWithEdges{
		Node:  graph.LogicalNode{OperatorKind: "Sink:" + s.Table, OutputSchema: s.OutputSchema},
		Edges: []graph.LogicalEdge{graph.ForwardEdge(streamingSchemaOf(in, 0))},
	}, nil
}

// UnnestExtension flattens an array-typed column into multiple rows.
type UnnestExtension struct {
	Input        Node
	Column       string
	OutputSchema *schema.Schema
}

func (u *UnnestExtension) Schema() *schema.Schema        { return u.OutputSchema }
func (u *UnnestExtension) Inputs() []Node                { return []Node{u.Input} }
func (u *UnnestExtension) StableName() (NamedNode, bool) { return NamedNode{}, false }
func (u *UnnestExtension) PlanNode(_ Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	return graph.NodeWithEdges{
		Node:  graph.LogicalNode{OperatorKind: "Unnest:" + u.Column, OutputSchema: u.OutputSchema},
		Edges: []graph.LogicalEdge{graph.ForwardEdge(streamingSchemaOf(in, 0))},
	}, nil
}

func streamingSchemaOf(in []*schema.Streaming, i int) *schema.Schema {
	if i >= len(in) || in[i] == nil {
		return nil
	}
	return in[i].Schema
}
