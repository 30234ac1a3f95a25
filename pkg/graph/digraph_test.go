package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arroyo-project/planner/pkg/graph"
	"github.com/arroyo-project/planner/pkg/schema"
)

func TestDiGraph_AddNodeAndEdge(t *testing.T) {
	g := graph.NewDiGraph()
	a := g.AddNode(graph.LogicalNode{OperatorKind: "Source:orders"})
	b := g.AddNode(graph.LogicalNode{OperatorKind: "Filter"})
	g.AddEdge(a, b, graph.ForwardEdge(schema.New()))

	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Edges, 1)
	assert.Equal(t, a, g.Edges[0].From)
	assert.Equal(t, b, g.Edges[0].To)
}

func TestDiGraph_InboundOutbound(t *testing.T) {
	g := graph.NewDiGraph()
	a := g.AddNode(graph.LogicalNode{OperatorKind: "Source:a"})
	b := g.AddNode(graph.LogicalNode{OperatorKind: "Source:b"})
	c := g.AddNode(graph.LogicalNode{OperatorKind: "Join"})
	g.AddEdge(a, c, graph.ShuffleEdge([]int{0}, schema.New()))
	g.AddEdge(b, c, graph.ShuffleEdge([]int{0}, schema.New()))

	assert.Len(t, g.Outbound(a), 1)
	assert.Len(t, g.Outbound(c), 0)
	assert.Len(t, g.Inbound(c), 2)
	assert.Len(t, g.Inbound(a), 0)
}

func TestShuffleKind_String(t *testing.T) {
	assert.Equal(t, "Forward", graph.Forward.String())
	assert.Equal(t, "Shuffle", graph.Shuffle.String())
	assert.Equal(t, "Broadcast", graph.Broadcast.String())
}

func TestShuffleEdge_CopiesKeyIndices(t *testing.T) {
	indices := []int{0, 1}
	e := graph.ShuffleEdge(indices, schema.New())
	indices[0] = 99
	assert.Equal(t, 0, e.KeyIndices[0])
}
