package schema

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/planerr"
)

// Marshal/Unmarshal give Schema and DataType a stable byte encoding so they
// can travel inside physical plan blobs and the ArroyoExecNode envelope
// (§6) without requiring protoc-generated types: the same
// protowire-primitives-by-hand approach the teacher's wire-facing packages
// use, applied to this core's own message shapes.

const (
	fieldTypeID     = 1
	fieldTypeFields = 2

	fieldFieldName     = 1
	fieldFieldType     = 2
	fieldFieldNullable = 3
)

// Marshal encodes a DataType.
func (t DataType) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTypeID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(t.ID))
	for _, f := range t.Fields {
		b = protowire.AppendTag(b, fieldTypeFields, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Marshal())
	}
	return b
}

// UnmarshalDataType decodes bytes produced by DataType.Marshal.
func UnmarshalDataType(buf []byte) (DataType, error) {
	var t DataType
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return DataType{}, planerr.Internal("data type: malformed tag")
		}
		buf = buf[n:]
		switch num {
		case fieldTypeID:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 || typ != protowire.VarintType {
				return DataType{}, planerr.Internal("data type: malformed id field")
			}
			buf = buf[n:]
			t.ID = TypeID(v)
		case fieldTypeFields:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 || typ != protowire.BytesType {
				return DataType{}, planerr.Internal("data type: malformed fields entry")
			}
			buf = buf[n:]
			f, err := UnmarshalField(v)
			if err != nil {
				return DataType{}, err
			}
			t.Fields = append(t.Fields, f)
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return DataType{}, planerr.Internal("data type: malformed unknown field")
			}
			buf = buf[n:]
		}
	}
	return t, nil
}

// Marshal encodes a Field.
func (f Field) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFieldName, protowire.BytesType)
	b = protowire.AppendString(b, f.Name)
	b = protowire.AppendTag(b, fieldFieldType, protowire.BytesType)
	b = protowire.AppendBytes(b, f.Type.Marshal())
	b = protowire.AppendTag(b, fieldFieldNullable, protowire.VarintType)
	b = protowire.AppendVarint(b, boolVarint(f.Nullable))
	return b
}

// UnmarshalField decodes bytes produced by Field.Marshal.
func UnmarshalField(buf []byte) (Field, error) {
	var f Field
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return Field{}, planerr.Internal("field: malformed tag")
		}
		buf = buf[n:]
		switch num {
		case fieldFieldName:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 || typ != protowire.BytesType {
				return Field{}, planerr.Internal("field: malformed name")
			}
			buf = buf[n:]
			f.Name = string(v)
		case fieldFieldType:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 || typ != protowire.BytesType {
				return Field{}, planerr.Internal("field: malformed type")
			}
			buf = buf[n:]
			dt, err := UnmarshalDataType(v)
			if err != nil {
				return Field{}, err
			}
			f.Type = dt
		case fieldFieldNullable:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 || typ != protowire.VarintType {
				return Field{}, planerr.Internal("field: malformed nullable")
			}
			buf = buf[n:]
			f.Nullable = v != 0
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return Field{}, planerr.Internal("field: malformed unknown field")
			}
			buf = buf[n:]
		}
	}
	return f, nil
}

// Marshal encodes a Schema as a sequence of length-prefixed Field messages.
func (s *Schema) Marshal() []byte {
	var b []byte
	for _, f := range s.Fields {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, f.Marshal())
	}
	return b
}

// UnmarshalSchema decodes bytes produced by Schema.Marshal.
func UnmarshalSchema(buf []byte) (*Schema, error) {
	var fields []Field
	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, planerr.Internal("schema: malformed tag")
		}
		buf = buf[n:]
		if num != 1 || typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, planerr.Internal("schema: malformed unknown field")
			}
			buf = buf[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(buf)
		if n < 0 {
			return nil, planerr.Internal("schema: malformed field entry")
		}
		buf = buf[n:]
		f, err := UnmarshalField(v)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return New(fields...), nil
}

func boolVarint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
