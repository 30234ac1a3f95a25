package schema

import (
	"strconv"

	"github.com/arroyo-project/planner/pkg/planerr"
)

// Reserved schema field names (§6).
const (
	TimestampField  = "_timestamp"
	IsRetractField  = "_is_retract"
	KeyFieldPrefix  = "_key_"
	ArroyoQualifier = "_arroyo"
)

// Schema is an ordered sequence of named, typed fields (§3).
type Schema struct {
	Fields []Field
}

func New(fields ...Field) *Schema {
	return &Schema{Fields: append([]Field(nil), fields...)}
}

func (s *Schema) Len() int { return len(s.Fields) }

func (s *Schema) IndexOf(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (s *Schema) Field(i int) Field { return s.Fields[i] }

// Equal is structural equality over the ordered field list, used to
// enforce the stable-name invariant (§3: "For any two nodes sharing a
// stable name within one plan, their output schemas are structurally
// equal").
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.Fields) != len(other.Fields) {
		return false
	}
	for i := range s.Fields {
		if !s.Fields[i].Equal(other.Fields[i]) {
			return false
		}
	}
	return true
}

// WithFields returns a new Schema with additional trailing fields.
func (s *Schema) WithFields(fields ...Field) *Schema {
	out := append([]Field(nil), s.Fields...)
	out = append(out, fields...)
	return &Schema{Fields: out}
}

// AddTimestampField appends a non-nullable _timestamp field, mirroring the
// original's add_timestamp_field_arrow used when deriving a split
// aggregate's partial_schema (§4.3 step 3).
func (s *Schema) AddTimestampField() *Schema {
	return s.WithFields(Field{Name: TimestampField, Type: TimestampNanosType, Nullable: false})
}

// Streaming designates event-time, key, and retract metadata over a plain
// Schema (§3). Exactly one event-time field named _timestamp of
// Timestamp(ns) type is required; key indices, when present, must be dense
// [0..k) after rewriting.
type Streaming struct {
	Schema         *Schema
	TimestampIndex int
	KeyIndices     []int
	IsRetract      bool
}

// NewStreaming validates and constructs a Streaming schema over s.
func NewStreaming(s *Schema, keyIndices []int) (*Streaming, error) {
	idx, ok := s.IndexOf(TimestampField)
	if !ok {
		return nil, planerr.Plan("schema is missing required event-time field %q", TimestampField)
	}
	if !s.Fields[idx].Type.Equal(TimestampNanosType) {
		return nil, planerr.Plan("event-time field %q must be Timestamp(ns), got %s", TimestampField, s.Fields[idx].Type)
	}
	for i, ki := range keyIndices {
		if ki != i {
			return nil, planerr.Plan("key indices must be dense [0..k) after rewriting, got %v", keyIndices)
		}
		if ki < 0 || ki >= s.Len() {
			return nil, planerr.Plan("key index %d out of range for schema of length %d", ki, s.Len())
		}
	}
	_, isRetract := s.IndexOf(IsRetractField)
	return &Streaming{
		Schema:         s,
		TimestampIndex: idx,
		KeyIndices:     append([]int(nil), keyIndices...),
		IsRetract:      isRetract,
	}, nil
}

// NewKeyed mirrors ArroyoSchema::new_keyed: build a Streaming schema with an
// explicit event-time index (used by split_aggregate, which appends
// _timestamp itself rather than relying on IndexOf to find it already
// present at a particular position).
func NewKeyed(s *Schema, timestampIndex int, keyIndices []int) (*Streaming, error) {
	if timestampIndex < 0 || timestampIndex >= s.Len() {
		return nil, planerr.Plan("timestamp index %d out of range for schema of length %d", timestampIndex, s.Len())
	}
	if !s.Fields[timestampIndex].Type.Equal(TimestampNanosType) {
		return nil, planerr.Plan("event-time field at index %d must be Timestamp(ns), got %s", timestampIndex, s.Fields[timestampIndex].Type)
	}
	for i, ki := range keyIndices {
		if ki != i {
			return nil, planerr.Plan("key indices must be dense [0..k) after rewriting, got %v", keyIndices)
		}
	}
	_, isRetract := s.IndexOf(IsRetractField)
	return &Streaming{
		Schema:         s,
		TimestampIndex: timestampIndex,
		KeyIndices:     append([]int(nil), keyIndices...),
		IsRetract:      isRetract,
	}, nil
}

// HasIsRetract reports whether s carries the updating-stream marker column,
// used by the join rewriter to reject updating-stream joins (§4.2.1).
func (s *Schema) HasIsRetract() bool {
	_, ok := s.IndexOf(IsRetractField)
	return ok
}

// KeyFieldName returns the alias used for the i'th join key column,
// e.g. "_key_0".
func KeyFieldName(i int) string {
	return KeyFieldPrefix + strconv.Itoa(i)
}
