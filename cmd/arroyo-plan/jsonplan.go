// jsonplan.go decodes the small JSON logical-plan format this harness
// accepts on stdin. It covers the plain relational node and expression
// kinds a hand-authored test plan plausibly uses (TableScan, Projection,
// Filter, Aggregate, Union; Column, Literal, Alias, BinaryExpr,
// AggregateFunctionCall, ScalarFunctionCall) -- not the full surface
// pkg/logicalplan exposes. Join and the opaque SourceExtension/
// WatermarkExtension/etc. kinds a real SQL front-end emits are out of
// scope for this harness: this core has no SQL parser of its own (§1
// Non-goals), and a hand-authored JSON join would need to duplicate a
// planner's join-rewriting prerequisites just to reach RewriteJoin, which
// this demo isn't trying to be.
package main

import (
	"encoding/json"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

type jsonField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func (f jsonField) toField() (schema.Field, error) {
	t, err := parseTypeID(f.Type)
	if err != nil {
		return schema.Field{}, err
	}
	return schema.Field{Name: f.Name, Type: schema.Scalar(t), Nullable: f.Nullable}, nil
}

func parseTypeID(name string) (schema.TypeID, error) {
	switch name {
	case "Boolean":
		return schema.Boolean, nil
	case "Int32":
		return schema.Int32, nil
	case "Int64":
		return schema.Int64, nil
	case "Float64":
		return schema.Float64, nil
	case "Utf8":
		return schema.Utf8, nil
	case "Timestamp(ns)":
		return schema.TimestampNanos, nil
	default:
		return schema.Invalid, planerr.Plan("jsonplan: unknown scalar type %q", name)
	}
}

func parseSchema(fields []jsonField) (*schema.Schema, error) {
	out := make([]schema.Field, len(fields))
	for i, f := range fields {
		sf, err := f.toField()
		if err != nil {
			return nil, err
		}
		out[i] = sf
	}
	return schema.New(out...), nil
}

type jsonExpr struct {
	Kind      string      `json:"kind"`
	Qualifier string      `json:"qualifier,omitempty"`
	Name      string      `json:"name,omitempty"`
	Type      string      `json:"type,omitempty"`
	Value     any         `json:"value,omitempty"`
	Inner     *jsonExpr   `json:"inner,omitempty"`
	Op        string      `json:"op,omitempty"`
	Left      *jsonExpr   `json:"left,omitempty"`
	Right     *jsonExpr   `json:"right,omitempty"`
	Args      []*jsonExpr `json:"args,omitempty"`
	Star      bool        `json:"star,omitempty"`
	Distinct  bool        `json:"distinct,omitempty"`
}

func parseOperator(s string) (logicalplan.Operator, error) {
	switch s {
	case "=":
		return logicalplan.OpEq, nil
	case ">=":
		return logicalplan.OpGtEq, nil
	case "AND":
		return logicalplan.OpAnd, nil
	default:
		return 0, planerr.Plan("jsonplan: unknown operator %q", s)
	}
}

func (e *jsonExpr) toExpr() (logicalplan.Expr, error) {
	if e == nil {
		return nil, planerr.Plan("jsonplan: missing expression")
	}
	switch e.Kind {
	case "column":
		return logicalplan.Column{Qualifier: e.Qualifier, Name: e.Name}, nil
	case "literal":
		t, err := parseTypeID(e.Type)
		if err != nil {
			return nil, err
		}
		value, err := coerceLiteralValue(t, e.Value)
		if err != nil {
			return nil, err
		}
		return logicalplan.Literal{Type: schema.Scalar(t), Value: value}, nil
	case "alias":
		inner, err := e.Inner.toExpr()
		if err != nil {
			return nil, err
		}
		return logicalplan.Alias{Inner: inner, Qualifier: e.Qualifier, Name: e.Name}, nil
	case "binary":
		op, err := parseOperator(e.Op)
		if err != nil {
			return nil, err
		}
		left, err := e.Left.toExpr()
		if err != nil {
			return nil, err
		}
		right, err := e.Right.toExpr()
		if err != nil {
			return nil, err
		}
		return logicalplan.BinaryExpr{Left: left, Right: right, Op: op}, nil
	case "scalar_call":
		args, err := toExprs(e.Args)
		if err != nil {
			return nil, err
		}
		return logicalplan.ScalarFunctionCall{Name: e.Name, Args: args}, nil
	case "aggregate_call":
		args, err := toExprs(e.Args)
		if err != nil {
			return nil, err
		}
		return logicalplan.AggregateFunctionCall{Name: e.Name, Args: args, Star: e.Star, Distinct: e.Distinct}, nil
	default:
		return nil, planerr.Plan("jsonplan: unknown expression kind %q", e.Kind)
	}
}

func toExprs(in []*jsonExpr) ([]logicalplan.Expr, error) {
	out := make([]logicalplan.Expr, len(in))
	for i, e := range in {
		v, err := e.toExpr()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// coerceLiteralValue normalizes encoding/json's float64-for-every-number
// default into the Go type pkg/physical's expression compiler expects for
// each declared literal type.
func coerceLiteralValue(t schema.TypeID, raw any) (any, error) {
	switch t {
	case schema.Int64, schema.Int32:
		f, ok := raw.(float64)
		if !ok {
			return nil, planerr.Plan("jsonplan: literal of type %s must be a number", t)
		}
		return int64(f), nil
	case schema.Float64:
		f, ok := raw.(float64)
		if !ok {
			return nil, planerr.Plan("jsonplan: literal of type %s must be a number", t)
		}
		return f, nil
	case schema.Utf8:
		s, ok := raw.(string)
		if !ok {
			return nil, planerr.Plan("jsonplan: literal of type %s must be a string", t)
		}
		return s, nil
	case schema.Boolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, planerr.Plan("jsonplan: literal of type %s must be a bool", t)
		}
		return b, nil
	default:
		return nil, planerr.Plan("jsonplan: literal of type %s is not supported", t)
	}
}

type jsonNode struct {
	Kind      string      `json:"kind"`
	Table     string      `json:"table,omitempty"`
	Schema    []jsonField `json:"schema,omitempty"`
	Input     *jsonNode   `json:"input,omitempty"`
	Inputs    []*jsonNode `json:"inputs,omitempty"`
	Exprs     []*jsonExpr `json:"exprs,omitempty"`
	Predicate *jsonExpr   `json:"predicate,omitempty"`
	GroupBy   []*jsonExpr `json:"group_by,omitempty"`
	AggrExprs []*jsonExpr `json:"aggr_exprs,omitempty"`
}

func (n *jsonNode) toNode() (logicalplan.Node, error) {
	if n == nil {
		return nil, planerr.Plan("jsonplan: missing node")
	}
	switch n.Kind {
	case "table_scan":
		sch, err := parseSchema(n.Schema)
		if err != nil {
			return nil, err
		}
		return &logicalplan.TableScan{Table: n.Table, OutputSchema: sch}, nil
	case "projection":
		input, err := n.Input.toNode()
		if err != nil {
			return nil, err
		}
		exprs, err := toExprs(n.Exprs)
		if err != nil {
			return nil, err
		}
		return logicalplan.NewProjection(input, exprs)
	case "filter":
		input, err := n.Input.toNode()
		if err != nil {
			return nil, err
		}
		predicate, err := n.Predicate.toExpr()
		if err != nil {
			return nil, err
		}
		return &logicalplan.Filter{Input: input, Predicate: predicate}, nil
	case "aggregate":
		input, err := n.Input.toNode()
		if err != nil {
			return nil, err
		}
		groupBy, err := toExprs(n.GroupBy)
		if err != nil {
			return nil, err
		}
		aggrExprs, err := toExprs(n.AggrExprs)
		if err != nil {
			return nil, err
		}
		sch, err := parseSchema(n.Schema)
		if err != nil {
			return nil, err
		}
		return &logicalplan.Aggregate{Input: input, GroupBy: groupBy, AggrExprs: aggrExprs, OutputSchema: sch}, nil
	case "union":
		inputs := make([]logicalplan.Node, len(n.Inputs))
		for i, in := range n.Inputs {
			v, err := in.toNode()
			if err != nil {
				return nil, err
			}
			inputs[i] = v
		}
		sch, err := parseSchema(n.Schema)
		if err != nil {
			return nil, err
		}
		return &logicalplan.Union{UnionInputs: inputs, OutputSchema: sch}, nil
	default:
		return nil, planerr.Plan("jsonplan: unknown node kind %q", n.Kind)
	}
}

// parsePlan decodes raw as a jsonNode tree and converts it to a
// logicalplan.Node.
func parsePlan(raw []byte) (logicalplan.Node, error) {
	var n jsonNode
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, planerr.Wrap(planerr.KindPlan, err, "jsonplan: invalid JSON")
	}
	node, err := n.toNode()
	if err != nil {
		return nil, err
	}
	return node, nil
}
