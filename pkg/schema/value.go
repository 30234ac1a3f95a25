package schema

// Value is a columnar value passed to a registered scalar function: either
// a single scalar or an array of a given length, matching §4.1's "given any
// mix of array/scalar inputs" contract. It intentionally carries payloads
// as `any` rather than typed slices: this core evaluates the fixed
// function catalog at plan-validation time (e.g. in tests exercising
// window()'s boundary behaviors), not on live record batches, which is the
// runtime's job and out of scope (§1).
type Value struct {
	Type   DataType
	scalar bool
	data   []any
}

// ScalarValue constructs a single-row value.
func ScalarValue(t DataType, v any) Value {
	return Value{Type: t, scalar: true, data: []any{v}}
}

// ArrayValue constructs a multi-row value.
func ArrayValue(t DataType, vs []any) Value {
	return Value{Type: t, scalar: false, data: vs}
}

func (v Value) IsScalar() bool { return v.scalar }

// Len returns 1 for a scalar, or the array length otherwise.
func (v Value) Len() int {
	if v.scalar {
		return 1
	}
	return len(v.data)
}

// At returns the i'th logical row: for a scalar, every index returns the
// same single value (broadcast).
func (v Value) At(i int) any {
	if v.scalar {
		return v.data[0]
	}
	return v.data[i]
}
