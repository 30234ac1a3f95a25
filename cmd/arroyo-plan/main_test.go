package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tableScanPlan = `{
	"kind": "table_scan",
	"table": "orders",
	"schema": [
		{"name": "id", "type": "Int64"},
		{"name": "symbol", "type": "Utf8"},
		{"name": "_timestamp", "type": "Timestamp(ns)"}
	]
}`

func TestRun_EncodesGraphForTableScan(t *testing.T) {
	var out bytes.Buffer
	err := run("", strings.NewReader(tableScanPlan), &out)
	require.NoError(t, err)

	var decoded struct {
		Nodes []struct {
			OperatorKind string `json:"OperatorKind"`
		} `json:"Nodes"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	require.Len(t, decoded.Nodes, 1)
	assert.Equal(t, "TableScan", decoded.Nodes[0].OperatorKind)
}

func TestRun_InvalidPlanReturnsError(t *testing.T) {
	var out bytes.Buffer
	err := run("", strings.NewReader("not json"), &out)
	assert.Error(t, err)
}

func TestRun_RejectsUnrewrittenJoinPlan(t *testing.T) {
	var out bytes.Buffer
	err := run("", strings.NewReader(`{"kind": "join"}`), &out)
	assert.Error(t, err)
}

func TestRun_MissingFileReturnsError(t *testing.T) {
	var out bytes.Buffer
	err := run("/nonexistent/plan.json", strings.NewReader(""), &out)
	assert.Error(t, err)
}
