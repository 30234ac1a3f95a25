package rewrite

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/graph"
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// RewriteJoin replaces a raw relational Join with its keyed, windowed form
// (§4.2.1): a KeyCalculationExtension materializing each side's join-key
// columns as a dense [0..k) prefix, a JoinExtension consuming both keyed
// sides, and a trailing Projection that recomputes _timestamp from the
// two sides' event times (joined streams otherwise carry two competing
// timestamps). Grounded on join.rs in original_source/.
func RewriteJoin(raw *logicalplan.Join) (logicalplan.Node, error) {
	if raw.Left.Schema().HasIsRetract() || raw.Right.Schema().HasIsRetract() {
		return nil, planerr.NotImplemented("joins over updating (retracting) streams are not supported")
	}
	if len(raw.On) == 0 {
		return nil, planerr.NotImplemented("joins without an equi-join key are not supported")
	}
	if raw.NullEqualsNull {
		return nil, planerr.NotImplemented("joins with null_equals_null are not supported")
	}

	leftWindow, err := DetectWindow(raw.Left)
	if err != nil {
		return nil, err
	}
	rightWindow, err := DetectWindow(raw.Right)
	if err != nil {
		return nil, err
	}
	isInstant := leftWindow == nil && rightWindow == nil
	if leftWindow != nil && rightWindow != nil && (leftWindow.Kind == WindowSession || rightWindow.Kind == WindowSession) {
		return nil, planerr.NotImplemented("can't handle session windows in joins")
	}
	if leftWindow != nil && rightWindow != nil && !leftWindow.Equal(*rightWindow) {
		return nil, planerr.NotImplemented("join sides have inconsistent window assignments: %s vs %s", leftWindow.Kind, rightWindow.Kind)
	}
	if (leftWindow == nil) != (rightWindow == nil) {
		return nil, planerr.NotImplemented("joining a windowed stream with a non-windowed stream is not supported")
	}
	if isInstant && raw.Type != logicalplan.InnerJoin {
		return nil, planerr.NotImplemented("can't handle non-inner joins without windows")
	}

	leftKeys := make([]logicalplan.Expr, len(raw.On))
	rightKeys := make([]logicalplan.Expr, len(raw.On))
	for i, cond := range raw.On {
		leftKeys[i] = cond.Left
		rightKeys[i] = cond.Right
	}

	leftCalc, err := newKeyCalculation(raw.Left, leftKeys)
	if err != nil {
		return nil, err
	}
	rightCalc, err := newKeyCalculation(raw.Right, rightKeys)
	if err != nil {
		return nil, err
	}

	joinSchema := leftCalc.OutputSchema.WithFields(rightCalc.OutputSchema.Fields...)
	joinExt := &JoinExtension{
		Left:         leftCalc,
		Right:        rightCalc,
		Filter:       raw.Filter,
		Type:         raw.Type,
		IsInstant:    isInstant,
		OutputSchema: joinSchema,
	}

	leftTsIdx, ok := raw.Left.Schema().IndexOf(schema.TimestampField)
	if !ok {
		return nil, planerr.Plan("join left input is missing required event-time field %q", schema.TimestampField)
	}
	rightTsIdx, ok := raw.Right.Schema().IndexOf(schema.TimestampField)
	if !ok {
		return nil, planerr.Plan("join right input is missing required event-time field %q", schema.TimestampField)
	}
	leftTs := logicalplan.Column{Qualifier: "left", Name: raw.Left.Schema().Field(leftTsIdx).Name}
	rightTs := logicalplan.Column{Qualifier: "right", Name: raw.Right.Schema().Field(rightTsIdx).Name}

	exprs := make([]logicalplan.Expr, 0, raw.OutputSchema.Len())
	for _, f := range raw.OutputSchema.Fields {
		if f.Name == schema.TimestampField {
			continue
		}
		exprs = append(exprs, logicalplan.Column{Name: f.Name})
	}
	exprs = append(exprs, logicalplan.Alias{
		Name: schema.TimestampField,
		Inner: logicalplan.Case{
			WhenThen: []logicalplan.WhenThen{
				{When: logicalplan.BinaryExpr{Left: leftTs, Right: rightTs, Op: logicalplan.OpGtEq}, Then: leftTs},
				{When: logicalplan.BinaryExpr{Left: rightTs, Right: leftTs, Op: logicalplan.OpGtEq}, Then: rightTs},
			},
			Else: logicalplan.ScalarFunctionCall{Name: "coalesce", Args: []logicalplan.Expr{leftTs, rightTs}},
		},
	})

	return logicalplan.NewProjection(joinExt, exprs)
}

// KeyCalculationExtension materializes a side's equi-join key expressions
// as a dense [0..k) prefix of output columns named _key_0.._key_{k-1}
// (§3's dense-key-index invariant). It has no stable name: unlike
// Source/Watermark/RemoteTable, a key-calculation projection is specific
// to one join and is never legitimately shared across branches.
type KeyCalculationExtension struct {
	Input        logicalplan.Node
	KeyExprs     []logicalplan.Expr
	KeyIndices   []int
	OutputSchema *schema.Schema
}

func newKeyCalculation(input logicalplan.Node, keyExprs []logicalplan.Expr) (*KeyCalculationExtension, error) {
	keyFields := make([]schema.Field, len(keyExprs))
	for i, e := range keyExprs {
		t, err := e.DataType(input.Schema())
		if err != nil {
			return nil, err
		}
		keyFields[i] = schema.Field{Name: schema.KeyFieldName(i), Type: t, Nullable: false}
	}
	out := schema.New(keyFields...).WithFields(input.Schema().Fields...)
	indices := make([]int, len(keyExprs))
	for i := range indices {
		indices[i] = i
	}
	return &KeyCalculationExtension{
		Input:        input,
		KeyExprs:     keyExprs,
		KeyIndices:   indices,
		OutputSchema: out,
	}, nil
}

func (k *KeyCalculationExtension) Schema() *schema.Schema     { return k.OutputSchema }
func (k *KeyCalculationExtension) Inputs() []logicalplan.Node { return []logicalplan.Node{k.Input} }
func (k *KeyCalculationExtension) StableName() (logicalplan.NamedNode, bool) {
	return logicalplan.NamedNode{}, false
}

func (k *KeyCalculationExtension) PlanNode(p logicalplan.Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	if len(in) != 1 || in[0] == nil {
		return graph.NodeWithEdges{}, planerr.Internal("key-calculation extension expects exactly one input schema, got %d", len(in))
	}
	blobs := make([][]byte, len(k.KeyExprs))
	for i, e := range k.KeyExprs {
		blob, err := p.CompileExpr(e, k.Input.Schema())
		if err != nil {
			return graph.NodeWithEdges{}, err
		}
		blobs[i] = blob
	}
	cfg := marshalKeyCalcConfig(blobs)
	return graph.NodeWithEdges{
		Node: graph.LogicalNode{
			OperatorKind: "KeyCalculation",
			ConfigBlob:   cfg,
			OutputSchema: k.OutputSchema,
		},
		Edges: []graph.LogicalEdge{graph.ForwardEdge(in[0].Schema)},
	}, nil
}

// JoinExtension is the equi-join operator over two already-keyed sides
// (§4.2.1). IsInstant marks a join with no window assignment on either
// side (an interval/temporal join over raw event time rather than a
// keyed-window join).
type JoinExtension struct {
	Left, Right  logicalplan.Node
	Filter       logicalplan.Expr
	Type         logicalplan.JoinType
	IsInstant    bool
	OutputSchema *schema.Schema
}

func (j *JoinExtension) Schema() *schema.Schema { return j.OutputSchema }
func (j *JoinExtension) Inputs() []logicalplan.Node {
	return []logicalplan.Node{j.Left, j.Right}
}
func (j *JoinExtension) StableName() (logicalplan.NamedNode, bool) {
	return logicalplan.NamedNode{}, false
}

func (j *JoinExtension) PlanNode(p logicalplan.Planner, nodeCount int, in []*schema.Streaming) (graph.NodeWithEdges, error) {
	if len(in) != 2 || in[0] == nil || in[1] == nil {
		return graph.NodeWithEdges{}, planerr.Internal("join extension expects exactly two input schemas, got %d", len(in))
	}
	var filterBlob []byte
	if j.Filter != nil {
		combined := in[0].Schema.WithFields(in[1].Schema.Fields...)
		blob, err := p.CompileExpr(j.Filter, combined)
		if err != nil {
			return graph.NodeWithEdges{}, err
		}
		filterBlob = blob
	}
	cfg := marshalJoinConfig(j.Type, j.IsInstant, filterBlob)
	return graph.NodeWithEdges{
		Node: graph.LogicalNode{
			OperatorKind: fmt.Sprintf("Join:%s", j.Type),
			ConfigBlob:   cfg,
			OutputSchema: j.OutputSchema,
		},
		Edges: []graph.LogicalEdge{
			graph.ShuffleEdge(in[0].KeyIndices, in[0].Schema),
			graph.ShuffleEdge(in[1].KeyIndices, in[1].Schema),
		},
	}, nil
}

func marshalKeyCalcConfig(exprBlobs [][]byte) []byte {
	var b []byte
	for _, blob := range exprBlobs {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, blob)
	}
	return b
}

func marshalJoinConfig(t logicalplan.JoinType, isInstant bool, filterBlob []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	instant := uint64(0)
	if isInstant {
		instant = 1
	}
	b = protowire.AppendVarint(b, instant)
	if filterBlob != nil {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, filterBlob)
	}
	return b
}
