package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/rewrite"
	"github.com/arroyo-project/planner/pkg/schema"
)

func ordersSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "id", Type: schema.Int64Type, Nullable: false},
		schema.Field{Name: "symbol", Type: schema.Utf8Type, Nullable: false},
		schema.Field{Name: schema.TimestampField, Type: schema.TimestampNanosType, Nullable: false},
	)
}

func TestClassifyAggregate_PlainGroupByHasNoWindow(t *testing.T) {
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	agg := &logicalplan.Aggregate{
		Input:        ts,
		GroupBy:      []logicalplan.Expr{logicalplan.Column{Name: "symbol"}},
		AggrExprs:    []logicalplan.Expr{logicalplan.AggregateFunctionCall{Name: "count", Star: true}},
		OutputSchema: ordersSchema(),
	}
	node, err := rewrite.ClassifyAggregate(agg)
	require.NoError(t, err)
	ext, ok := node.(*rewrite.AggregateExtension)
	require.True(t, ok)
	assert.Same(t, ts, ext.Input)
	assert.Equal(t, []int{0}, ext.KeyIndices)
}

func TestClassifyAggregate_WindowedInsertsWindowExtension(t *testing.T) {
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	agg := &logicalplan.Aggregate{
		Input: ts,
		GroupBy: []logicalplan.Expr{
			logicalplan.ScalarFunctionCall{Name: "window", Args: []logicalplan.Expr{
				logicalplan.Column{Name: schema.TimestampField},
				logicalplan.Literal{Type: schema.Int64Type, Value: int64(60_000_000_000)},
			}},
		},
		AggrExprs:    []logicalplan.Expr{logicalplan.AggregateFunctionCall{Name: "count", Star: true}},
		OutputSchema: ordersSchema(),
	}
	node, err := rewrite.ClassifyAggregate(agg)
	require.NoError(t, err)
	ext, ok := node.(*rewrite.AggregateExtension)
	require.True(t, ok)
	win, ok := ext.Input.(*rewrite.WindowExtension)
	require.True(t, ok)
	assert.Equal(t, rewrite.WindowTumble, win.Type.Kind)
	assert.Equal(t, int64(60_000_000_000), win.Type.Width)
	assert.Equal(t, []int{0}, ext.KeyIndices)
}

func TestClassifyAggregate_RejectsTwoWindowConstructors(t *testing.T) {
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	windowCall := logicalplan.ScalarFunctionCall{Name: "window", Args: []logicalplan.Expr{
		logicalplan.Column{Name: schema.TimestampField},
		logicalplan.Literal{Type: schema.Int64Type, Value: int64(1)},
	}}
	agg := &logicalplan.Aggregate{
		Input:        ts,
		GroupBy:      []logicalplan.Expr{windowCall, windowCall},
		OutputSchema: ordersSchema(),
	}
	_, err := rewrite.ClassifyAggregate(agg)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindPlan))
}

func TestDetectWindow_NoneByDefault(t *testing.T) {
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	wt, err := rewrite.DetectWindow(ts)
	require.NoError(t, err)
	assert.Nil(t, wt)
}

func TestDetectWindow_InconsistentAcrossUnionBranchesErrors(t *testing.T) {
	left := &rewrite.WindowExtension{
		Input:        &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()},
		Type:         rewrite.WindowType{Kind: rewrite.WindowTumble, Width: 1},
		WindowColumn: "window",
		OutputSchema: ordersSchema(),
	}
	right := &rewrite.WindowExtension{
		Input:        &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()},
		Type:         rewrite.WindowType{Kind: rewrite.WindowTumble, Width: 2},
		WindowColumn: "window",
		OutputSchema: ordersSchema(),
	}
	union := &logicalplan.Union{UnionInputs: []logicalplan.Node{left, right}, OutputSchema: ordersSchema()}
	_, err := rewrite.DetectWindow(union)
	require.Error(t, err)
}

func TestRewriteJoin_RejectsMissingEquiJoinKey(t *testing.T) {
	left := &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	join := &logicalplan.Join{Left: left, Right: right, OutputSchema: ordersSchema()}
	_, err := rewrite.RewriteJoin(join)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindNotImplemented))
}

func TestRewriteJoin_RejectsRetractingStream(t *testing.T) {
	retracting := ordersSchema().WithFields(schema.Field{Name: schema.IsRetractField, Type: schema.BooleanType, Nullable: false})
	left := &logicalplan.TableScan{Table: "a", OutputSchema: retracting}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	join := &logicalplan.Join{
		Left: left, Right: right,
		On:           []logicalplan.JoinCondition{{Left: logicalplan.Column{Name: "id"}, Right: logicalplan.Column{Name: "id"}}},
		OutputSchema: ordersSchema(),
	}
	_, err := rewrite.RewriteJoin(join)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindNotImplemented))
}

func TestRewriteJoin_RejectsNullEqualsNull(t *testing.T) {
	left := &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	join := &logicalplan.Join{
		Left: left, Right: right,
		On:             []logicalplan.JoinCondition{{Left: logicalplan.Column{Name: "id"}, Right: logicalplan.Column{Name: "id"}}},
		NullEqualsNull: true,
		OutputSchema:   ordersSchema(),
	}
	_, err := rewrite.RewriteJoin(join)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindNotImplemented))
}

func TestRewriteJoin_RejectsSessionWindowedSides(t *testing.T) {
	left := &rewrite.WindowExtension{
		Input:        &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()},
		Type:         rewrite.WindowType{Kind: rewrite.WindowSession, Gap: 1},
		WindowColumn: "window",
		OutputSchema: ordersSchema(),
	}
	right := &rewrite.WindowExtension{
		Input:        &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()},
		Type:         rewrite.WindowType{Kind: rewrite.WindowSession, Gap: 1},
		WindowColumn: "window",
		OutputSchema: ordersSchema(),
	}
	join := &logicalplan.Join{
		Left: left, Right: right,
		On:           []logicalplan.JoinCondition{{Left: logicalplan.Column{Name: "id"}, Right: logicalplan.Column{Name: "id"}}},
		OutputSchema: ordersSchema(),
	}
	_, err := rewrite.RewriteJoin(join)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindNotImplemented))
}

func TestRewriteJoin_RejectsNonInnerJoinWithoutWindows(t *testing.T) {
	left := &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	join := &logicalplan.Join{
		Left: left, Right: right,
		On:           []logicalplan.JoinCondition{{Left: logicalplan.Column{Name: "id"}, Right: logicalplan.Column{Name: "id"}}},
		Type:         logicalplan.LeftJoin,
		OutputSchema: ordersSchema(),
	}
	_, err := rewrite.RewriteJoin(join)
	require.Error(t, err)
	assert.True(t, planerr.Of(err, planerr.KindNotImplemented))
}

func TestRewriteJoin_BuildsKeyedJoinWithTimestampProjection(t *testing.T) {
	left := &logicalplan.TableScan{Table: "a", OutputSchema: ordersSchema()}
	right := &logicalplan.TableScan{Table: "b", OutputSchema: ordersSchema()}
	join := &logicalplan.Join{
		Left: left, Right: right,
		On:           []logicalplan.JoinCondition{{Left: logicalplan.Column{Name: "id"}, Right: logicalplan.Column{Name: "id"}}},
		Type:         logicalplan.InnerJoin,
		OutputSchema: ordersSchema(),
	}
	node, err := rewrite.RewriteJoin(join)
	require.NoError(t, err)
	proj, ok := node.(*logicalplan.Projection)
	require.True(t, ok)
	joinExt, ok := proj.Input.(*rewrite.JoinExtension)
	require.True(t, ok)
	assert.True(t, joinExt.IsInstant)

	lastExpr := proj.Exprs[len(proj.Exprs)-1]
	alias, ok := lastExpr.(logicalplan.Alias)
	require.True(t, ok)
	assert.Equal(t, schema.TimestampField, alias.Name)
}

func TestRewrite_ClassifiesAggregateBeneathProjection(t *testing.T) {
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	agg := &logicalplan.Aggregate{
		Input:        ts,
		GroupBy:      []logicalplan.Expr{logicalplan.Column{Name: "symbol"}},
		AggrExprs:    []logicalplan.Expr{logicalplan.AggregateFunctionCall{Name: "count", Star: true}},
		OutputSchema: ordersSchema(),
	}
	proj, err := logicalplan.NewProjection(agg, []logicalplan.Expr{logicalplan.Column{Name: "symbol"}})
	require.NoError(t, err)

	rewritten, err := rewrite.Rewrite(proj)
	require.NoError(t, err)
	outerProj, ok := rewritten.(*logicalplan.Projection)
	require.True(t, ok)
	_, ok = outerProj.Input.(*rewrite.AggregateExtension)
	assert.True(t, ok)
}

func TestRewrite_PassesThroughTableScan(t *testing.T) {
	ts := &logicalplan.TableScan{Table: "orders", OutputSchema: ordersSchema()}
	rewritten, err := rewrite.Rewrite(ts)
	require.NoError(t, err)
	assert.Same(t, ts, rewritten)
}
