package physical_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/physical"
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

func ordersSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "id", Type: schema.Int64Type, Nullable: false},
		schema.Field{Name: "symbol", Type: schema.Utf8Type, Nullable: false},
		schema.Field{Name: schema.TimestampField, Type: schema.TimestampNanosType, Nullable: false},
	)
}

func TestBridge_Plan_LowersTableScan(t *testing.T) {
	b := physical.NewBridge()
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	blob, err := b.Plan(ts)
	require.NoError(t, err)

	node, err := physicalplan.Unmarshal(blob)
	require.NoError(t, err)
	got, ok := node.(*physicalplan.TableScanExec)
	require.True(t, ok)
	assert.Equal(t, "orders", got.Table)
}

func TestBridge_Plan_LowersFilterOverTableScan(t *testing.T) {
	b := physical.NewBridge()
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	f := &logicalplan.Filter{
		Input:     ts,
		Predicate: logicalplan.Eq(logicalplan.Column{Name: "id"}, logicalplan.Literal{Type: schema.Int64Type, Value: int64(1)}),
	}
	blob, err := b.Plan(f)
	require.NoError(t, err)

	node, err := physicalplan.Unmarshal(blob)
	require.NoError(t, err)
	got, ok := node.(*physicalplan.FilterExec)
	require.True(t, ok)
	assert.NotEmpty(t, got.PredicateBlob)
}

func TestBridge_Plan_LowersProjection(t *testing.T) {
	b := physical.NewBridge()
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	proj, err := logicalplan.NewProjection(ts, []logicalplan.Expr{logicalplan.Column{Name: "symbol"}})
	require.NoError(t, err)

	blob, err := b.Plan(proj)
	require.NoError(t, err)

	node, err := physicalplan.Unmarshal(blob)
	require.NoError(t, err)
	got, ok := node.(*physicalplan.ProjectionExec)
	require.True(t, ok)
	require.Len(t, got.ExprBlobs, 1)
}

func TestBridge_Plan_LowersUnion(t *testing.T) {
	b := physical.NewBridge()
	left := &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	u := &logicalplan.Union{UnionInputs: []logicalplan.Node{left, right}, OutputSchema: ordersSchema()}

	blob, err := b.Plan(u)
	require.NoError(t, err)

	node, err := physicalplan.Unmarshal(blob)
	require.NoError(t, err)
	got, ok := node.(*physicalplan.UnionExec)
	require.True(t, ok)
	assert.Len(t, got.UnionInputs, 2)
}

func TestBridge_Plan_RejectsExtensionNode(t *testing.T) {
	b := physical.NewBridge()
	src := &logicalplan.SourceExtension{Table: "orders", OutputSchema: ordersSchema()}
	_, err := b.Plan(src)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindPlan))
}

func TestBridge_CompileExpr_RejectsUnknownColumn(t *testing.T) {
	b := physical.NewBridge()
	_, err := b.CompileExpr(logicalplan.Column{Name: "nope"}, ordersSchema())
	assert.Error(t, err)
}

func TestBridge_CompileExpr_AcceptsKnownColumn(t *testing.T) {
	b := physical.NewBridge()
	blob, err := b.CompileExpr(logicalplan.Column{Name: "id"}, ordersSchema())
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

func TestBridge_BinningFunction_RequiresTimestampField(t *testing.T) {
	b := physical.NewBridge()
	noTimestamp := schema.New(schema.Field{Name: "id", Type: schema.Int64Type, Nullable: false})
	_, err := b.BinningFunction(60_000_000_000, noTimestamp)
	assert.Error(t, err)
}

func TestBridge_BinningFunction_SucceedsWithTimestampField(t *testing.T) {
	b := physical.NewBridge()
	blob, err := b.BinningFunction(60_000_000_000, ordersSchema())
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

func TestBridge_SplitAggregate_ProducesPartialAndFinalStages(t *testing.T) {
	b := physical.NewBridge()
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	agg := &logicalplan.Aggregate{
		Input:     ts,
		GroupBy:   []logicalplan.Expr{logicalplan.Column{Name: "symbol"}},
		AggrExprs: []logicalplan.Expr{logicalplan.AggregateFunctionCall{Name: "count", Star: true}},
		OutputSchema: schema.New(
			schema.Field{Name: "symbol", Type: schema.Utf8Type, Nullable: false},
			schema.Field{Name: "count_partial", Type: schema.Int64Type, Nullable: false},
		),
	}

	result, err := b.SplitAggregate([]int{0}, agg)
	require.NoError(t, err)
	require.NotNil(t, result.PartialSchema)
	assert.NotEmpty(t, result.PartialPlanBlob)
	assert.NotEmpty(t, result.FinishPlanBlob)

	partialNode, err := physicalplan.Unmarshal(result.PartialPlanBlob)
	require.NoError(t, err)
	partialExec, ok := partialNode.(*physicalplan.AggregateExec)
	require.True(t, ok)
	assert.Equal(t, physicalplan.Partial, partialExec.Mode)

	finishNode, err := physicalplan.Unmarshal(result.FinishPlanBlob)
	require.NoError(t, err)
	finishExec, ok := finishNode.(*physicalplan.AggregateExec)
	require.True(t, ok)
	assert.Equal(t, physicalplan.Final, finishExec.Mode)
	mem, ok := finishExec.Input.(*physicalplan.MemExecPlaceholder)
	require.True(t, ok)
	assert.Equal(t, "partial", mem.Table)
}

func TestBridge_SplitAggregate_RejectsNonAggregateCallExpr(t *testing.T) {
	b := physical.NewBridge()
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	agg := &logicalplan.Aggregate{
		Input:        ts,
		GroupBy:      []logicalplan.Expr{logicalplan.Column{Name: "symbol"}},
		AggrExprs:    []logicalplan.Expr{logicalplan.Column{Name: "id"}},
		OutputSchema: ordersSchema(),
	}
	_, err := b.SplitAggregate([]int{0}, agg)
	assert.Error(t, err)
}
