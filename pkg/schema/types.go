package schema

import "fmt"

// TypeID enumerates the logical scalar/struct types the planning core needs
// to reason about. It is intentionally a small, closed set: the core never
// interprets column values except to type-check the fixed function catalog
// (§4.1).
type TypeID int

const (
	Invalid TypeID = iota
	Boolean
	Int32
	Int64
	Float64
	Utf8
	TimestampNanos
	StructType
)

func (t TypeID) String() string {
	switch t {
	case Boolean:
		return "Boolean"
	case Int32:
		return "Int32"
	case Int64:
		return "Int64"
	case Float64:
		return "Float64"
	case Utf8:
		return "Utf8"
	case TimestampNanos:
		return "Timestamp(ns)"
	case StructType:
		return "Struct"
	default:
		return "Invalid"
	}
}

// DataType is a logical type: a scalar TypeID, or a Struct with named
// sub-fields. Structs are compared structurally by Equal.
type DataType struct {
	ID     TypeID
	Fields []Field // only populated when ID == StructType
}

func Scalar(id TypeID) DataType { return DataType{ID: id} }

func Struct(fields ...Field) DataType { return DataType{ID: StructType, Fields: fields} }

// IsNested reports whether a struct type has a struct-typed field directly
// in its field list. RewriteJoin does not call it: join key types are not
// inspected.
func (t DataType) IsNested() bool {
	if t.ID != StructType {
		return false
	}
	for _, f := range t.Fields {
		if f.Type.ID == StructType {
			return true
		}
	}
	return false
}

// Equal is structural: two struct types are equal iff their field lists are
// equal in order, name, type, and nullability. Scalars are equal iff their
// TypeID matches.
func (t DataType) Equal(other DataType) bool {
	if t.ID != other.ID {
		return false
	}
	if t.ID != StructType {
		return true
	}
	if len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		if !t.Fields[i].Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}

func (t DataType) String() string {
	if t.ID != StructType {
		return t.ID.String()
	}
	s := "Struct{"
	for i, f := range t.Fields {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return s + "}"
}

// Field is a named, typed, nullable schema column.
type Field struct {
	Name     string
	Type     DataType
	Nullable bool
}

func (f Field) Equal(other Field) bool {
	return f.Name == other.Name && f.Nullable == other.Nullable && f.Type.Equal(other.Type)
}

// Common built-in data types referenced throughout the core.
var (
	TimestampNanosType = Scalar(TimestampNanos)
	BooleanType        = Scalar(Boolean)
	Int64Type          = Scalar(Int64)
	Utf8Type           = Scalar(Utf8)
)

// WindowStructType is the struct{start,end} type window() returns.
var WindowStructType = Struct(
	Field{Name: "start", Type: TimestampNanosType, Nullable: false},
	Field{Name: "end", Type: TimestampNanosType, Nullable: false},
)
