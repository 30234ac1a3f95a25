package graph

import (
	"fmt"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// Visitor is Component E: the depth-first plan-to-graph visitor. It walks
// a fully rewritten logical plan tree and materializes one graph node per
// logical node, deduplicating nodes that share a stable name (§3, §4.5).
type Visitor struct {
	planner      logicalplan.Planner
	graph        *DiGraph
	byStableName map[logicalplan.NamedNode]int
	streamingOf  map[int]*schema.Streaming
}

// NewVisitor builds a Visitor that hands relational/aggregate/join physical
// planning off to planner (the physical planner bridge, Component C).
func NewVisitor(planner logicalplan.Planner) *Visitor {
	return &Visitor{
		planner:      planner,
		graph:        NewDiGraph(),
		byStableName: map[logicalplan.NamedNode]int{},
		streamingOf:  map[int]*schema.Streaming{},
	}
}

// Graph returns the graph built so far.
func (v *Visitor) Graph() *DiGraph { return v.graph }

// Visit materializes node (and everything beneath it not already
// materialized) and returns its graph node id plus its streaming schema.
func (v *Visitor) Visit(node logicalplan.Node) (int, *schema.Streaming, error) {
	if ext, ok := node.(logicalplan.Extension); ok {
		return v.visitExtension(ext)
	}
	return v.visitRelational(node)
}

func (v *Visitor) visitExtension(ext logicalplan.Extension) (int, *schema.Streaming, error) {
	if name, ok := ext.StableName(); ok {
		if id, seen := v.byStableName[name]; seen {
			return id, v.streamingOf[id], nil
		}
	}

	inputs := ext.Inputs()
	childIDs := make([]int, len(inputs))
	childSchemas := make([]*schema.Streaming, len(inputs))
	for i, in := range inputs {
		id, st, err := v.Visit(in)
		if err != nil {
			return 0, nil, err
		}
		childIDs[i] = id
		childSchemas[i] = st
	}

	nodeCount := len(v.graph.Nodes)
	result, err := ext.PlanNode(v.planner, nodeCount, childSchemas)
	if err != nil {
		return 0, nil, err
	}
	if len(result.Edges) != len(childIDs) {
		return 0, nil, planerr.Internal(
			"extension %T returned %d edges for %d inputs", ext, len(result.Edges), len(childIDs))
	}

	id := v.graph.AddNode(result.Node)
	for i, childID := range childIDs {
		v.graph.AddEdge(childID, id, result.Edges[i])
	}

	st := result.Streaming
	if st == nil {
		var err error
		st, err = deriveStreaming(result.Node.OutputSchema)
		if err != nil {
			return 0, nil, err
		}
	}
	v.streamingOf[id] = st

	if name, ok := ext.StableName(); ok {
		v.byStableName[name] = id
	}
	return id, st, nil
}

func (v *Visitor) visitRelational(node logicalplan.Node) (int, *schema.Streaming, error) {
	switch node.(type) {
	case *logicalplan.Join, *logicalplan.Aggregate:
		return 0, nil, planerr.Internal(
			"%T reached the graph visitor unrewritten; rewrite.Rewrite must run first", node)
	}

	inputs := node.Inputs()
	childIDs := make([]int, len(inputs))
	childSchemas := make([]*schema.Schema, len(inputs))
	for i, in := range inputs {
		id, st, err := v.Visit(in)
		if err != nil {
			return 0, nil, err
		}
		childIDs[i] = id
		childSchemas[i] = st.Schema
	}

	shallow := shallowClone(node, childSchemas)
	blob, err := v.planner.Plan(shallow)
	if err != nil {
		return 0, nil, err
	}

	ln := LogicalNode{
		OperatorKind: relationalKindName(node),
		ConfigBlob:   blob,
		OutputSchema: node.Schema(),
	}
	id := v.graph.AddNode(ln)
	for _, childID := range childIDs {
		v.graph.AddEdge(childID, id, ForwardEdge(v.streamingOf[childID].Schema))
	}

	st, err := deriveStreaming(node.Schema())
	if err != nil {
		return 0, nil, err
	}
	v.streamingOf[id] = st
	return id, st, nil
}

// deriveStreaming builds a keyless Streaming view of a plain output
// schema, for relational nodes and extensions that don't establish their
// own key indices.
func deriveStreaming(s *schema.Schema) (*schema.Streaming, error) {
	return schema.NewStreaming(s, nil)
}

// shallowClone copies node with its children replaced by leaf TableScan
// placeholders carrying the already-visited children's output schemas, so
// the physical planner bridge can type-check and lower node's own
// expressions without re-embedding already-materialized subtrees.
func shallowClone(node logicalplan.Node, childSchemas []*schema.Schema) logicalplan.Node {
	placeholder := func(i int) *logicalplan.TableScan {
		return &logicalplan.TableScan{Table: fmt.Sprintf("$input%d", i), OutputSchema: childSchemas[i]}
	}
	switch n := node.(type) {
	case *logicalplan.TableScan:
		cp := *n
		return &cp
	case *logicalplan.Projection:
		cp := *n
		cp.Input = placeholder(0)
		return &cp
	case *logicalplan.Filter:
		cp := *n
		cp.Input = placeholder(0)
		return &cp
	case *logicalplan.Union:
		cp := *n
		ins := make([]logicalplan.Node, len(n.UnionInputs))
		for i := range ins {
			ins[i] = placeholder(i)
		}
		cp.UnionInputs = ins
		return &cp
	default:
		return node
	}
}

func relationalKindName(node logicalplan.Node) string {
	switch node.(type) {
	case *logicalplan.TableScan:
		return "TableScan"
	case *logicalplan.Projection:
		return "Projection"
	case *logicalplan.Filter:
		return "Filter"
	case *logicalplan.Union:
		return "Union"
	default:
		return fmt.Sprintf("%T", node)
	}
}
