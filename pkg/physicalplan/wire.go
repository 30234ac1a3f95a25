package physicalplan

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// Envelope field numbers shared by every Node's wire representation: kind,
// partition count, output schema, then kind-specific payload fields starting
// at 10. Field numbers in the payload range are reused across kinds (each
// kind only ever appears with its own kind tag), so decoding defers
// interpretation of the raw payload fields until the kind is known rather
// than switching on field number directly.
const (
	fieldKind       = 1
	fieldPartitions = 2
	fieldSchema     = 3

	fieldScanTable = 10

	fieldFilterInput     = 10
	fieldFilterPredicate = 11

	fieldProjInput = 10
	fieldProjExprs = 11

	fieldAggInput   = 10
	fieldAggMode    = 11
	fieldAggGroupBy = 12
	fieldAggExprs   = 13

	fieldMemTable = 10

	fieldUnnestInput  = 10
	fieldUnnestColumn = 11

	fieldUnionInputs = 10
)

// Marshal encodes a physical plan tree (§4.4). The encoding is this core's
// own concern (only the ArroyoExecNode leaf owned by pkg/codec carries a
// bit-stability requirement), so it reuses the same protowire-primitive
// approach rather than introducing a second scheme.
func Marshal(n Node) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Kind()))
	b = protowire.AppendTag(b, fieldPartitions, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(n.Partitions()))
	b = protowire.AppendTag(b, fieldSchema, protowire.BytesType)
	b = protowire.AppendBytes(b, n.OutputSchema().Marshal())

	switch v := n.(type) {
	case *TableScanExec:
		b = appendStringField(b, fieldScanTable, v.Table)
	case *FilterExec:
		b = appendChildField(b, fieldFilterInput, v.Input)
		b = appendBytesField(b, fieldFilterPredicate, v.PredicateBlob)
	case *ProjectionExec:
		b = appendChildField(b, fieldProjInput, v.Input)
		for _, e := range v.ExprBlobs {
			b = appendBytesField(b, fieldProjExprs, e)
		}
	case *AggregateExec:
		b = appendChildField(b, fieldAggInput, v.Input)
		b = protowire.AppendTag(b, fieldAggMode, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Mode))
		for _, e := range v.GroupByBlobs {
			b = appendBytesField(b, fieldAggGroupBy, e)
		}
		for _, e := range v.AggrBlobs {
			b = appendBytesField(b, fieldAggExprs, e)
		}
	case *UnionExec:
		for _, c := range v.UnionInputs {
			b = appendChildField(b, fieldUnionInputs, c)
		}
	case *MemExecPlaceholder:
		b = appendStringField(b, fieldMemTable, v.Table)
	case *UnnestExecPlaceholder:
		b = appendChildField(b, fieldUnnestInput, v.Input)
		b = appendStringField(b, fieldUnnestColumn, v.Column)
	}
	return b
}

func appendStringField(b []byte, field int, s string) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytesField(b []byte, field int, v []byte) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendChildField(b []byte, field int, child Node) []byte {
	b = protowire.AppendTag(b, protowire.Number(field), protowire.BytesType)
	return protowire.AppendBytes(b, Marshal(child))
}

// Unmarshal decodes a physical plan tree produced by Marshal. Header fields
// (kind, partitions, schema) are interpreted as they're seen; everything at
// field 10+ is collected raw first and only interpreted once kind is known,
// since the same field number means different things for different kinds
// (field 10 is a table name for TableScan but a child plan blob for
// Filter).
func Unmarshal(buf []byte) (Node, error) {
	var kind NodeKind
	var outSchema *schema.Schema
	bytesFields := map[int][][]byte{}
	varintFields := map[int][]uint64{}

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, planerr.Internal("physical plan: malformed tag")
		}
		buf = buf[n:]
		switch num {
		case fieldKind:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, planerr.Internal("physical plan: malformed kind")
			}
			buf = buf[n:]
			kind = NodeKind(v)
		case fieldPartitions:
			// Partition counts are recomputed from children on decode
			// (leaves report 1, UnionExec sums its inputs, every other
			// node delegates to its input); the wire field exists for forward
			// compatibility with a future node kind that overrides it.
			_, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, planerr.Internal("physical plan: malformed partitions")
			}
			buf = buf[n:]
		case fieldSchema:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, planerr.Internal("physical plan: malformed schema")
			}
			buf = buf[n:]
			s, err := schema.UnmarshalSchema(v)
			if err != nil {
				return nil, err
			}
			outSchema = s
		default:
			switch typ {
			case protowire.BytesType:
				v, n := protowire.ConsumeBytes(buf)
				if n < 0 {
					return nil, planerr.Internal("physical plan: malformed payload field %d", num)
				}
				buf = buf[n:]
				bytesFields[int(num)] = append(bytesFields[int(num)], append([]byte(nil), v...))
			case protowire.VarintType:
				v, n := protowire.ConsumeVarint(buf)
				if n < 0 {
					return nil, planerr.Internal("physical plan: malformed payload field %d", num)
				}
				buf = buf[n:]
				varintFields[int(num)] = append(varintFields[int(num)], v)
			default:
				n := protowire.ConsumeFieldValue(num, typ, buf)
				if n < 0 {
					return nil, planerr.Internal("physical plan: malformed unknown field")
				}
				buf = buf[n:]
			}
		}
	}

	firstBytes := func(field int) []byte {
		vs := bytesFields[field]
		if len(vs) == 0 {
			return nil
		}
		return vs[0]
	}
	firstString := func(field int) string { return string(firstBytes(field)) }
	child := func(field int) (Node, error) {
		v := firstBytes(field)
		if v == nil {
			return nil, nil
		}
		return Unmarshal(v)
	}

	switch kind {
	case KindTableScan:
		return &TableScanExec{Table: firstString(fieldScanTable), Schema: outSchema}, nil
	case KindFilter:
		c, err := child(fieldFilterInput)
		if err != nil {
			return nil, err
		}
		return &FilterExec{Input: c, PredicateBlob: firstBytes(fieldFilterPredicate)}, nil
	case KindProjection:
		c, err := child(fieldProjInput)
		if err != nil {
			return nil, err
		}
		return &ProjectionExec{Input: c, ExprBlobs: bytesFields[fieldProjExprs], Schema: outSchema}, nil
	case KindAggregate:
		c, err := child(fieldAggInput)
		if err != nil {
			return nil, err
		}
		var mode AggregateMode
		if vs := varintFields[fieldAggMode]; len(vs) > 0 {
			mode = AggregateMode(vs[0])
		}
		return &AggregateExec{
			Input:        c,
			Mode:         mode,
			GroupByBlobs: bytesFields[fieldAggGroupBy],
			AggrBlobs:    bytesFields[fieldAggExprs],
			Schema:       outSchema,
		}, nil
	case KindUnion:
		blobs := bytesFields[fieldUnionInputs]
		inputs := make([]Node, len(blobs))
		for i, blob := range blobs {
			c, err := Unmarshal(blob)
			if err != nil {
				return nil, err
			}
			inputs[i] = c
		}
		return &UnionExec{UnionInputs: inputs, Schema: outSchema}, nil
	case KindMemExecPlaceholder:
		return &MemExecPlaceholder{Schema: outSchema, Table: firstString(fieldMemTable)}, nil
	case KindUnnestExecPlaceholder:
		c, err := child(fieldUnnestInput)
		if err != nil {
			return nil, err
		}
		return &UnnestExecPlaceholder{Input: c, Column: firstString(fieldUnnestColumn), Schema: outSchema}, nil
	default:
		return nil, planerr.Internal("physical plan: unknown node kind %d", kind)
	}
}
