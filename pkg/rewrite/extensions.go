package rewrite

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/graph"
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// --- WindowExtension --------------------------------------------------

func (w *WindowExtension) Schema() *schema.Schema { return w.OutputSchema }
func (w *WindowExtension) Inputs() []logicalplan.Node { return []logicalplan.Node{w.Input} }
func (w *WindowExtension) StableName() (logicalplan.NamedNode, bool) {
	return logicalplan.NamedNode{}, false
}

func (w *WindowExtension) PlanNode(p logicalplan.Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	if len(in) != 1 || in[0] == nil {
		return graph.NodeWithEdges{}, planerr.Internal("window extension expects exactly one input schema, got %d", len(in))
	}
	var binningBlob []byte
	if w.Type.Kind == WindowTumble || w.Type.Kind == WindowHop {
		blob, err := p.BinningFunction(w.Type.Width, in[0].Schema)
		if err != nil {
			return graph.NodeWithEdges{}, err
		}
		binningBlob = blob
	}
	cfg := marshalWindowConfig(w.Type, binningBlob)
	return graph.NodeWithEdges{
		Node: graph.LogicalNode{
			OperatorKind: "Window:" + w.Type.Kind.String(),
			ConfigBlob:   cfg,
			OutputSchema: w.OutputSchema,
		},
		Edges: []graph.LogicalEdge{graph.ForwardEdge(in[0].Schema)},
	}, nil
}

func marshalWindowConfig(t WindowType, binningBlob []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Kind))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Width))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Slide))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.Gap))
	if binningBlob != nil {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, binningBlob)
	}
	return b
}

// --- AggregateExtension -------------------------------------------------

// AggregateExtension is the rewritten form of a relational Aggregate
// (§4.2.2, §4.3): Input is the keyed/windowed upstream plan, KeyIndices
// names the dense [0..k) prefix of GroupBy that constitutes the shuffle
// key (the window struct column, if any, plus any additional group-by
// columns).
type AggregateExtension struct {
	Input        logicalplan.Node
	GroupBy      []logicalplan.Expr
	AggrExprs    []logicalplan.Expr
	KeyIndices   []int
	OutputSchema *schema.Schema
}

func (a *AggregateExtension) Schema() *schema.Schema     { return a.OutputSchema }
func (a *AggregateExtension) Inputs() []logicalplan.Node { return []logicalplan.Node{a.Input} }
func (a *AggregateExtension) StableName() (logicalplan.NamedNode, bool) {
	return logicalplan.NamedNode{}, false
}

func (a *AggregateExtension) PlanNode(p logicalplan.Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	if len(in) != 1 || in[0] == nil {
		return graph.NodeWithEdges{}, planerr.Internal("aggregate extension expects exactly one input schema, got %d", len(in))
	}
	raw := &logicalplan.Aggregate{
		Input:        a.Input,
		GroupBy:      a.GroupBy,
		AggrExprs:    a.AggrExprs,
		OutputSchema: a.OutputSchema,
	}
	split, err := p.SplitAggregate(a.KeyIndices, raw)
	if err != nil {
		return graph.NodeWithEdges{}, err
	}
	cfg := marshalAggregateConfig(split)
	return graph.NodeWithEdges{
		Node: graph.LogicalNode{
			OperatorKind: "Aggregate",
			ConfigBlob:   cfg,
			OutputSchema: a.OutputSchema,
		},
		Edges: []graph.LogicalEdge{graph.ShuffleEdge(a.KeyIndices, in[0].Schema)},
	}, nil
}

func marshalAggregateConfig(s physicalplan.SplitAggregateResult) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, s.PartialPlanBlob)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, s.FinishPlanBlob)
	return b
}
