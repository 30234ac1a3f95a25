// Package logicalplan defines the immutable logical plan tree (§3): the
// standard relational operators plus the Extension seam streaming
// rewriters hang their nodes off of, and the small expression tree needed
// to rewrite joins and projections.
package logicalplan

import (
	"fmt"
	"strings"

	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// Expr is a logical scalar expression. The set of variants here is
// deliberately small: exactly what the join rewriter (§4.2.1) and key/
// timestamp projections need to construct, not a general SQL expression
// language (parsing and general expression typing are the external SQL
// front-end's job, per §1).
type Expr interface {
	String() string
	// DataType resolves the expression's type against an input schema.
	// Only the subset of expressions the rewriters actually type-check
	// (columns, get_field, literals) need to support this fully; others
	// return a best-effort type or an error.
	DataType(input *schema.Schema) (schema.DataType, error)
}

// Column references a field by optional qualifier (table/alias) and name.
type Column struct {
	Qualifier string // "" if unqualified
	Name      string
}

func (c Column) String() string {
	if c.Qualifier == "" {
		return c.Name
	}
	return c.Qualifier + "." + c.Name
}

func (c Column) DataType(input *schema.Schema) (schema.DataType, error) {
	i, ok := input.IndexOf(c.Name)
	if !ok {
		return schema.DataType{}, planerr.Plan("column %s not found in schema", c)
	}
	return input.Field(i).Type, nil
}

// Literal is a constant value of a known type.
type Literal struct {
	Type  schema.DataType
	Value any
}

func (l Literal) String() string { return fmt.Sprintf("%v", l.Value) }

func (l Literal) DataType(*schema.Schema) (schema.DataType, error) { return l.Type, nil }

// Alias renames the result of Inner to Qualifier.Name.
type Alias struct {
	Inner     Expr
	Qualifier string
	Name      string
}

func (a Alias) String() string {
	if a.Qualifier == "" {
		return fmt.Sprintf("%s AS %s", a.Inner, a.Name)
	}
	return fmt.Sprintf("%s AS %s.%s", a.Inner, a.Qualifier, a.Name)
}

func (a Alias) DataType(input *schema.Schema) (schema.DataType, error) { return a.Inner.DataType(input) }

// Operator is a binary comparison/logic operator.
type Operator int

const (
	OpEq Operator = iota
	OpGtEq
	OpAnd
)

func (o Operator) String() string {
	switch o {
	case OpEq:
		return "="
	case OpGtEq:
		return ">="
	case OpAnd:
		return "AND"
	default:
		return "?"
	}
}

// BinaryExpr is a two-operand operator application.
type BinaryExpr struct {
	Left, Right Expr
	Op          Operator
}

func (b BinaryExpr) String() string { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }

func (b BinaryExpr) DataType(*schema.Schema) (schema.DataType, error) { return schema.BooleanType, nil }

// Eq is sugar for BinaryExpr{Op: OpEq}.
func Eq(l, r Expr) Expr { return BinaryExpr{Left: l, Right: r, Op: OpEq} }

// And is sugar for BinaryExpr{Op: OpAnd}; chains left-associatively.
func And(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return Literal{Type: schema.BooleanType, Value: true}
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = BinaryExpr{Left: out, Right: e, Op: OpAnd}
	}
	return out
}

// GetField extracts a named field from a single-level struct expression
// (§4.2.1 step 1's structural-equality expansion target).
type GetField struct {
	Inner     Expr
	FieldName string
}

func (g GetField) String() string { return fmt.Sprintf("get_field(%s, %q)", g.Inner, g.FieldName) }

func (g GetField) DataType(input *schema.Schema) (schema.DataType, error) {
	t, err := g.Inner.DataType(input)
	if err != nil {
		return schema.DataType{}, err
	}
	if t.ID != schema.StructType {
		return schema.DataType{}, planerr.Plan("get_field applied to non-struct type %s", t)
	}
	for _, f := range t.Fields {
		if f.Name == g.FieldName {
			return f.Type, nil
		}
	}
	return schema.DataType{}, planerr.Plan("struct type %s has no field %q", t, g.FieldName)
}

// WhenThen is one arm of a Case expression.
type WhenThen struct {
	When Expr
	Then Expr
}

// Case is a CASE WHEN ... THEN ... ELSE ... END expression, used to build
// the post-join timestamp projection (§4.2.1 step 4).
type Case struct {
	Expr     Expr // the shared condition subject, or nil
	WhenThen []WhenThen
	Else     Expr
}

func (c Case) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	if c.Expr != nil {
		fmt.Fprintf(&b, " %s", c.Expr)
	}
	for _, wt := range c.WhenThen {
		fmt.Fprintf(&b, " WHEN %s THEN %s", wt.When, wt.Then)
	}
	if c.Else != nil {
		fmt.Fprintf(&b, " ELSE %s", c.Else)
	}
	b.WriteString(" END")
	return b.String()
}

func (c Case) DataType(input *schema.Schema) (schema.DataType, error) {
	if len(c.WhenThen) == 0 {
		return schema.DataType{}, planerr.Plan("CASE expression has no WHEN arms")
	}
	return c.WhenThen[0].Then.DataType(input)
}

// ScalarFunctionCall invokes a registered scalar function (§4.1), e.g.
// window(_timestamp, _timestamp + interval) or coalesce(a, b).
type ScalarFunctionCall struct {
	Name string
	Args []Expr
}

func (s ScalarFunctionCall) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(parts, ", "))
}

func (s ScalarFunctionCall) DataType(input *schema.Schema) (schema.DataType, error) {
	// The join rewriter constructs coalesce(); window() calls come in with
	// the front-end's plan. Every call resolves to its first argument's
	// type here (for window() that is not its struct return type); callers
	// that need the registry's declared return type look it up directly via
	// schema.Registry.Lookup(s.Name).
	if len(s.Args) == 0 {
		return schema.DataType{}, planerr.Plan("scalar function %s called with no arguments", s.Name)
	}
	return s.Args[0].DataType(input)
}

// AggregateFunctionCall invokes an aggregate function such as count(*).
type AggregateFunctionCall struct {
	Name     string
	Args     []Expr
	Star     bool // true for count(*)
	Distinct bool
}

func (a AggregateFunctionCall) String() string {
	if a.Star {
		return fmt.Sprintf("%s(*)", a.Name)
	}
	parts := make([]string, len(a.Args))
	for i, e := range a.Args {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%s(%s)", a.Name, strings.Join(parts, ", "))
}

func (a AggregateFunctionCall) DataType(*schema.Schema) (schema.DataType, error) {
	return schema.Int64Type, nil
}

// ExprOutputField returns the single output schema field expression e
// produces over input, used by the generic Projection node to derive its
// output schema from its expression list.
func ExprOutputField(e Expr, input *schema.Schema) (schema.Field, error) {
	switch v := e.(type) {
	case Column:
		i, ok := input.IndexOf(v.Name)
		if !ok {
			return schema.Field{}, planerr.Plan("column %s not found in schema", v)
		}
		return input.Field(i), nil
	case Alias:
		t, err := v.DataType(input)
		if err != nil {
			return schema.Field{}, err
		}
		return schema.Field{Name: v.Name, Type: t}, nil
	default:
		t, err := e.DataType(input)
		if err != nil {
			return schema.Field{}, err
		}
		return schema.Field{Name: e.String(), Type: t}, nil
	}
}
