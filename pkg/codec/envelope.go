package codec

import (
	"github.com/Masterminds/semver/v3"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// ArroyoExecNode is the bit-stable envelope around a physical plan blob
// (§6): the one artifact in this core required to keep decoding correctly
// across releases. FormatVersion gates that: a blob whose version falls
// outside the range this build understands is rejected outright rather
// than decoded best-effort, since a physical plan's field layout is free
// to change between major format versions.
const (
	fieldEnvelopeVersion = 1
	fieldEnvelopePlan    = 2
)

// CurrentFormatVersion is stamped into every blob this build produces.
const CurrentFormatVersion = "1.0.0"

// supportedFormatRange is the constraint a decoded blob's FormatVersion
// must satisfy. A 1.x blob's physical plan tree is understood by this
// build; a 2.x blob's is not, even if individual node kinds happen to
// overlap -- the version gate is deliberately coarse.
var supportedFormatRange = mustConstraint(">=1.0.0, <2.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic("codec: invalid format version constraint: " + err.Error())
	}
	return c
}

// Encode wraps a physical plan's wire bytes in the ArroyoExecNode
// envelope, stamping the current format version.
func Encode(n physicalplan.Node) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldEnvelopeVersion, protowire.BytesType)
	b = protowire.AppendString(b, CurrentFormatVersion)
	b = protowire.AppendTag(b, fieldEnvelopePlan, protowire.BytesType)
	b = protowire.AppendBytes(b, physicalplan.Marshal(n))
	return b
}

// Decode parses an ArroyoExecNode envelope, checks its format version,
// decodes the physical plan tree, and resolves every MemExec/UnnestExec
// leaf against ctx (§4.4).
func Decode(buf []byte, ctx DecodingContext) (ExecNode, error) {
	var version string
	var planBytes []byte
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, planerr.Internal("codec: malformed envelope tag")
		}
		buf = buf[n:]
		switch num {
		case fieldEnvelopeVersion:
			v, n := protowire.ConsumeString(buf)
			if n < 0 {
				return nil, planerr.Internal("codec: malformed envelope version field")
			}
			version = v
			buf = buf[n:]
		case fieldEnvelopePlan:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, planerr.Internal("codec: malformed envelope plan field")
			}
			planBytes = v
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, planerr.Internal("codec: malformed envelope field %d", num)
			}
			buf = buf[n:]
		}
	}

	if version == "" {
		return nil, planerr.Internal("codec: envelope missing format version")
	}
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return nil, planerr.Wrap(planerr.KindInternal, err, "codec: envelope format version %q is not valid semver", version)
	}
	if !supportedFormatRange.Check(parsed) {
		return nil, planerr.Internal("codec: envelope format version %s is outside the supported range %s", version, supportedFormatRange)
	}

	node, err := physicalplan.Unmarshal(planBytes)
	if err != nil {
		return nil, planerr.Wrap(planerr.KindInternal, err, "codec: decoding physical plan tree failed")
	}
	return resolve(node, ctx)
}

// resolve walks a decoded physicalplan.Node tree bottom-up, rebuilding it
// as an ExecNode tree: MemExecPlaceholder and UnnestExecPlaceholder leaves
// resolve against ctx (or the rest of the already-resolved tree, for
// UnnestExec's input); every other kind is wrapped as a passthrough so the
// whole tree is uniformly an ExecNode.
func resolve(n physicalplan.Node, ctx DecodingContext) (ExecNode, error) {
	switch v := n.(type) {
	case *physicalplan.MemExecPlaceholder:
		if err := schema.ValidateDecoded(v.Schema); err != nil {
			return nil, err
		}
		return ctx.resolveMem(v.Table, v.Schema)
	case *physicalplan.UnnestExecPlaceholder:
		input, err := resolve(v.Input, ctx)
		if err != nil {
			return nil, err
		}
		if err := schema.ValidateDecoded(v.Schema); err != nil {
			return nil, err
		}
		return &resolvedUnnest{input: input, column: v.Column, sch: v.Schema}, nil
	case *physicalplan.TableScanExec:
		return &passthroughExec{Node: v}, nil
	case *physicalplan.FilterExec:
		input, err := resolve(v.Input, ctx)
		if err != nil {
			return nil, err
		}
		return &passthroughExec{Node: &physicalplan.FilterExec{Input: input, PredicateBlob: v.PredicateBlob}}, nil
	case *physicalplan.ProjectionExec:
		input, err := resolve(v.Input, ctx)
		if err != nil {
			return nil, err
		}
		return &passthroughExec{Node: &physicalplan.ProjectionExec{Input: input, ExprBlobs: v.ExprBlobs, Schema: v.Schema}}, nil
	case *physicalplan.AggregateExec:
		input, err := resolve(v.Input, ctx)
		if err != nil {
			return nil, err
		}
		return &passthroughExec{Node: &physicalplan.AggregateExec{
			Input: input, Mode: v.Mode, GroupByBlobs: v.GroupByBlobs, AggrBlobs: v.AggrBlobs, Schema: v.Schema,
		}}, nil
	case *physicalplan.UnionExec:
		inputs := make([]physicalplan.Node, len(v.UnionInputs))
		for i, c := range v.UnionInputs {
			r, err := resolve(c, ctx)
			if err != nil {
				return nil, err
			}
			inputs[i] = r
		}
		return &passthroughExec{Node: &physicalplan.UnionExec{UnionInputs: inputs, Schema: v.Schema}}, nil
	default:
		return nil, planerr.Internal("codec: unknown decoded node type %T", n)
	}
}
