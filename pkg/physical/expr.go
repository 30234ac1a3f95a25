package physical

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// exprKind tags the variant of a serialized physical expression blob.
// Unlike pkg/physicalplan's wire format, field numbers here are never
// reused across kinds (the expression tree is small and flat enough that
// there's no benefit to it), so decoding can switch on field number
// directly without deferring to a known kind first.
type exprKind int32

const (
	exprColumn exprKind = iota + 1
	exprLiteral
	exprAlias
	exprBinary
	exprGetField
	exprCase
	exprScalarCall
	exprAggregateCall
)

const (
	fieldExprKind = 1

	fieldColumnQualifier = 2
	fieldColumnName      = 3

	fieldLiteralType  = 4
	fieldLiteralValue = 5

	fieldAliasQualifier = 6
	fieldAliasName      = 7
	fieldAliasInner     = 8

	fieldBinaryOp    = 9
	fieldBinaryLeft  = 10
	fieldBinaryRight = 11

	fieldGetFieldInner = 12
	fieldGetFieldName  = 13

	fieldCaseSubject  = 14
	fieldCaseWhenThen = 15
	fieldCaseElse     = 16

	fieldScalarCallName = 17
	fieldScalarCallArgs = 18

	fieldAggCallName     = 19
	fieldAggCallArgs     = 20
	fieldAggCallStar     = 21
	fieldAggCallDistinct = 22
)

// CompileExpr lowers a single logical expression into a serialized
// physical expression blob evaluable against rows of input (§4.3). The
// blob is opaque to the rest of this core; only the embedding runtime
// ever evaluates it, so compilation here is pure type-checking (does the
// expression resolve against input?) plus a faithful structural encoding.
func (b *Bridge) CompileExpr(e logicalplan.Expr, input *schema.Schema) ([]byte, error) {
	if _, err := e.DataType(input); err != nil {
		return nil, err
	}
	return compileExpr(e)
}

// BinningFunction serializes date_bin(width_ns, _timestamp) as a physical
// expression (§4.3), the bucketing function a Tumble/Hop WindowExtension's
// config carries. The width is encoded as an Int64 nanosecond literal, not
// as an interval value: the schema package has no interval type.
func (b *Bridge) BinningFunction(width int64, input *schema.Schema) ([]byte, error) {
	call := logicalplan.ScalarFunctionCall{
		Name: "date_bin",
		Args: []logicalplan.Expr{
			logicalplan.Literal{Type: schema.Int64Type, Value: width},
			logicalplan.Column{Name: schema.TimestampField},
		},
	}
	if _, ok := input.IndexOf(schema.TimestampField); !ok {
		return nil, planerr.Plan("binning function requires a %q field in the input schema", schema.TimestampField)
	}
	return compileExpr(call)
}

func compileExpr(e logicalplan.Expr) ([]byte, error) {
	switch v := e.(type) {
	case logicalplan.Column:
		var b []byte
		b = appendKind(b, exprColumn)
		if v.Qualifier != "" {
			b = appendStringField(b, fieldColumnQualifier, v.Qualifier)
		}
		b = appendStringField(b, fieldColumnName, v.Name)
		return b, nil
	case logicalplan.Literal:
		valueBlob, err := encodeLiteralValue(v.Type, v.Value)
		if err != nil {
			return nil, err
		}
		var b []byte
		b = appendKind(b, exprLiteral)
		b = appendBytesField(b, fieldLiteralType, v.Type.Marshal())
		b = appendBytesField(b, fieldLiteralValue, valueBlob)
		return b, nil
	case logicalplan.Alias:
		inner, err := compileExpr(v.Inner)
		if err != nil {
			return nil, err
		}
		var b []byte
		b = appendKind(b, exprAlias)
		if v.Qualifier != "" {
			b = appendStringField(b, fieldAliasQualifier, v.Qualifier)
		}
		b = appendStringField(b, fieldAliasName, v.Name)
		b = appendBytesField(b, fieldAliasInner, inner)
		return b, nil
	case logicalplan.BinaryExpr:
		left, err := compileExpr(v.Left)
		if err != nil {
			return nil, err
		}
		right, err := compileExpr(v.Right)
		if err != nil {
			return nil, err
		}
		var b []byte
		b = appendKind(b, exprBinary)
		b = protowire.AppendTag(b, fieldBinaryOp, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Op))
		b = appendBytesField(b, fieldBinaryLeft, left)
		b = appendBytesField(b, fieldBinaryRight, right)
		return b, nil
	case logicalplan.GetField:
		inner, err := compileExpr(v.Inner)
		if err != nil {
			return nil, err
		}
		var b []byte
		b = appendKind(b, exprGetField)
		b = appendBytesField(b, fieldGetFieldInner, inner)
		b = appendStringField(b, fieldGetFieldName, v.FieldName)
		return b, nil
	case logicalplan.Case:
		var b []byte
		b = appendKind(b, exprCase)
		if v.Expr != nil {
			subj, err := compileExpr(v.Expr)
			if err != nil {
				return nil, err
			}
			b = appendBytesField(b, fieldCaseSubject, subj)
		}
		for _, wt := range v.WhenThen {
			pair, err := compileWhenThen(wt)
			if err != nil {
				return nil, err
			}
			b = appendBytesField(b, fieldCaseWhenThen, pair)
		}
		if v.Else != nil {
			els, err := compileExpr(v.Else)
			if err != nil {
				return nil, err
			}
			b = appendBytesField(b, fieldCaseElse, els)
		}
		return b, nil
	case logicalplan.ScalarFunctionCall:
		var b []byte
		b = appendKind(b, exprScalarCall)
		b = appendStringField(b, fieldScalarCallName, v.Name)
		for _, arg := range v.Args {
			argBlob, err := compileExpr(arg)
			if err != nil {
				return nil, err
			}
			b = appendBytesField(b, fieldScalarCallArgs, argBlob)
		}
		return b, nil
	case logicalplan.AggregateFunctionCall:
		var b []byte
		b = appendKind(b, exprAggregateCall)
		b = appendStringField(b, fieldAggCallName, v.Name)
		for _, arg := range v.Args {
			argBlob, err := compileExpr(arg)
			if err != nil {
				return nil, err
			}
			b = appendBytesField(b, fieldAggCallArgs, argBlob)
		}
		b = protowire.AppendTag(b, fieldAggCallStar, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(v.Star))
		b = protowire.AppendTag(b, fieldAggCallDistinct, protowire.VarintType)
		b = protowire.AppendVarint(b, boolVarint(v.Distinct))
		return b, nil
	default:
		return nil, planerr.NotImplemented("physical planner bridge cannot compile expression of type %T", e)
	}
}

func compileWhenThen(wt logicalplan.WhenThen) ([]byte, error) {
	when, err := compileExpr(wt.When)
	if err != nil {
		return nil, err
	}
	then, err := compileExpr(wt.Then)
	if err != nil {
		return nil, err
	}
	var b []byte
	b = appendBytesField(b, 1, when)
	b = appendBytesField(b, 2, then)
	return b, nil
}

// encodeLiteralValue serializes the fixed set of Go value types the
// rewriters and front-end are expected to produce for Literal.Value
// (§4.1's function catalog only ever constant-folds integers, floats,
// strings, and booleans).
func encodeLiteralValue(t schema.DataType, v any) ([]byte, error) {
	var b []byte
	switch val := v.(type) {
	case int64:
		b = protowire.AppendVarint(b, uint64(val))
	case int:
		b = protowire.AppendVarint(b, uint64(int64(val)))
	case float64:
		b = protowire.AppendFixed64(b, math.Float64bits(val))
	case string:
		b = protowire.AppendString(b, val)
	case bool:
		b = protowire.AppendVarint(b, boolVarint(val))
	default:
		return nil, planerr.TypeMismatch("literal value of type %T has no physical encoding (declared type %s)", v, t)
	}
	return b, nil
}

func boolVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func appendKind(b []byte, k exprKind) []byte {
	b = protowire.AppendTag(b, fieldExprKind, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(k))
}

func appendStringField(b []byte, field int, s string) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, field int, v []byte) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendBytes(b, v)
}
