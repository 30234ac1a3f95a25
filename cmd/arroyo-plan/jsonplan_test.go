package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/schema"
)

func TestParsePlan_TableScan(t *testing.T) {
	raw := []byte(`{
		"kind": "table_scan",
		"table": "orders",
		"schema": [
			{"name": "id", "type": "Int64"},
			{"name": "symbol", "type": "Utf8"},
			{"name": "_timestamp", "type": "Timestamp(ns)"}
		]
	}`)
	node, err := parsePlan(raw)
	require.NoError(t, err)
	ts, ok := node.(*logicalplan.TableScan)
	require.True(t, ok)
	assert.Equal(t, "orders", ts.Table)
	assert.Equal(t, 3, ts.OutputSchema.Len())
}

func TestParsePlan_UnknownNodeKindErrors(t *testing.T) {
	_, err := parsePlan([]byte(`{"kind": "join"}`))
	assert.Error(t, err)
}

func TestParsePlan_InvalidJSONErrors(t *testing.T) {
	_, err := parsePlan([]byte(`not json`))
	assert.Error(t, err)
}

func TestParsePlan_ProjectionOverFilter(t *testing.T) {
	raw := []byte(`{
		"kind": "projection",
		"exprs": [{"kind": "column", "name": "symbol"}],
		"input": {
			"kind": "filter",
			"predicate": {
				"kind": "binary", "op": "=",
				"left": {"kind": "column", "name": "id"},
				"right": {"kind": "literal", "type": "Int64", "value": 1}
			},
			"input": {
				"kind": "table_scan",
				"table": "orders",
				"schema": [
					{"name": "id", "type": "Int64"},
					{"name": "symbol", "type": "Utf8"},
					{"name": "_timestamp", "type": "Timestamp(ns)"}
				]
			}
		}
	}`)
	node, err := parsePlan(raw)
	require.NoError(t, err)
	proj, ok := node.(*logicalplan.Projection)
	require.True(t, ok)
	assert.Equal(t, 1, proj.Schema().Len())

	filter, ok := proj.Input.(*logicalplan.Filter)
	require.True(t, ok)
	be, ok := filter.Predicate.(logicalplan.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, logicalplan.OpEq, be.Op)
	lit, ok := be.Right.(logicalplan.Literal)
	require.True(t, ok)
	assert.Equal(t, int64(1), lit.Value)
}

func TestParsePlan_AggregateWithAggregateCall(t *testing.T) {
	raw := []byte(`{
		"kind": "aggregate",
		"group_by": [{"kind": "column", "name": "symbol"}],
		"aggr_exprs": [{"kind": "aggregate_call", "name": "count", "star": true}],
		"schema": [
			{"name": "symbol", "type": "Utf8"},
			{"name": "count", "type": "Int64"}
		],
		"input": {
			"kind": "table_scan",
			"table": "orders",
			"schema": [
				{"name": "id", "type": "Int64"},
				{"name": "symbol", "type": "Utf8"},
				{"name": "_timestamp", "type": "Timestamp(ns)"}
			]
		}
	}`)
	node, err := parsePlan(raw)
	require.NoError(t, err)
	agg, ok := node.(*logicalplan.Aggregate)
	require.True(t, ok)
	require.Len(t, agg.AggrExprs, 1)
	call, ok := agg.AggrExprs[0].(logicalplan.AggregateFunctionCall)
	require.True(t, ok)
	assert.Equal(t, "count", call.Name)
	assert.True(t, call.Star)
}

func TestParsePlan_UnionOfTwoTableScans(t *testing.T) {
	scan := `{
		"kind": "table_scan", "table": "%s",
		"schema": [
			{"name": "id", "type": "Int64"},
			{"name": "_timestamp", "type": "Timestamp(ns)"}
		]
	}`
	raw := []byte(`{
		"kind": "union",
		"schema": [
			{"name": "id", "type": "Int64"},
			{"name": "_timestamp", "type": "Timestamp(ns)"}
		],
		"inputs": [` + fmt.Sprintf(scan, "a") + `, ` + fmt.Sprintf(scan, "b") + `]
	}`)
	node, err := parsePlan(raw)
	require.NoError(t, err)
	u, ok := node.(*logicalplan.Union)
	require.True(t, ok)
	require.Len(t, u.UnionInputs, 2)
}

func TestCoerceLiteralValue_Int64FromFloat(t *testing.T) {
	v, err := coerceLiteralValue(schema.Int64, float64(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestCoerceLiteralValue_RejectsWrongGoType(t *testing.T) {
	_, err := coerceLiteralValue(schema.Utf8, float64(1))
	assert.Error(t, err)
}

func TestParseTypeID_UnknownErrors(t *testing.T) {
	_, err := parseTypeID("Decimal128")
	assert.Error(t, err)
}
