package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyo-project/planner/pkg/graph"
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/schema"
)

type fakePlanner struct{}

func (fakePlanner) Plan(node logicalplan.Node) ([]byte, error) { return []byte("plan"), nil }

func (fakePlanner) SplitAggregate(keyIndices []int, agg *logicalplan.Aggregate) (physicalplan.SplitAggregateResult, error) {
	return physicalplan.SplitAggregateResult{}, nil
}

func (fakePlanner) BinningFunction(width int64, input *schema.Schema) ([]byte, error) {
	return []byte("binning"), nil
}

func (fakePlanner) CompileExpr(e logicalplan.Expr, input *schema.Schema) ([]byte, error) {
	return []byte("expr"), nil
}

var _ logicalplan.Planner = fakePlanner{}

func ordersSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "id", Type: schema.Int64Type, Nullable: false},
		schema.Field{Name: schema.TimestampField, Type: schema.TimestampNanosType, Nullable: false},
	)
}

func TestVisitor_VisitsTableScan(t *testing.T) {
	v := graph.NewVisitor(fakePlanner{})
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	id, st, err := v.Visit(ts)
	require.NoError(t, err)
	assert.Equal(t, 0, id)
	assert.Equal(t, 1, st.TimestampIndex)
	assert.Equal(t, "TableScan", v.Graph().Nodes[0].OperatorKind)
}

func TestVisitor_DedupesSourceExtensionByStableName(t *testing.T) {
	v := graph.NewVisitor(fakePlanner{})
	srcA := &logicalplan.SourceExtension{Table: "orders", OutputSchema: ordersSchema()}
	srcB := &logicalplan.SourceExtension{Table: "orders", OutputSchema: ordersSchema()}
	union := &logicalplan.Union{UnionInputs: []logicalplan.Node{srcA, srcB}, OutputSchema: ordersSchema()}

	_, _, err := v.Visit(union)
	require.NoError(t, err)

	sourceCount := 0
	for _, n := range v.Graph().Nodes {
		if n.OperatorKind == "Source:orders" {
			sourceCount++
		}
	}
	assert.Equal(t, 1, sourceCount, "two references to the same table should dedupe into one graph node")
}

func TestVisitor_RejectsUnrewrittenJoin(t *testing.T) {
	v := graph.NewVisitor(fakePlanner{})
	left := &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	join := &logicalplan.Join{Left: left, Right: right, OutputSchema: ordersSchema()}

	_, _, err := v.Visit(join)
	assert.Error(t, err)
}

func TestVisitor_FilterAddsForwardEdgeFromInput(t *testing.T) {
	v := graph.NewVisitor(fakePlanner{})
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	f := &logicalplan.Filter{Input: ts, Predicate: logicalplan.Literal{Type: schema.BooleanType, Value: true}}

	id, _, err := v.Visit(f)
	require.NoError(t, err)
	inbound := v.Graph().Inbound(id)
	require.Len(t, inbound, 1)
	assert.Equal(t, graph.Forward, inbound[0].Kind)
}
