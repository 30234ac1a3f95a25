package schema

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"

	"github.com/arroyo-project/planner/pkg/planerr"
)

// ScalarFunction is a registered catalog entry: a fixed signature plus an
// evaluator. The planner's job is limited to arity/type-checking a call
// against Signature and, where the core itself needs to evaluate a
// constant-folded call (tests exercise this for window()), running Eval.
type ScalarFunction struct {
	Name      string
	Signature []DataType
	Return    DataType
	Eval      func(args []Value) (Value, error)
}

// Registry is the fixed catalog of streaming scalar functions (§4.1).
// Lookups for anything not registered fail with NotImplemented, matching
// the contract for unknown UDFs/UDAFs/UDWFs.
type Registry struct {
	scalars map[string]*ScalarFunction
}

// NewRegistry builds the catalog: the mandatory window() constructor plus
// the JSON function family.
func NewRegistry() *Registry {
	r := &Registry{scalars: map[string]*ScalarFunction{}}
	r.register(windowFunction())
	for _, f := range jsonFunctions() {
		r.register(f)
	}
	return r
}

func (r *Registry) register(f *ScalarFunction) { r.scalars[f.Name] = f }

// Lookup resolves a scalar function by name, or fails NotImplemented(name)
// per §4.1.
func (r *Registry) Lookup(name string) (*ScalarFunction, error) {
	f, ok := r.scalars[name]
	if !ok {
		return nil, planerr.NotImplemented("udf %s not implemented", name)
	}
	return f, nil
}

// LookupAggregate always fails: this core registers no UDAFs.
func (r *Registry) LookupAggregate(name string) error {
	return planerr.NotImplemented("udaf %s not implemented", name)
}

// LookupWindowFunction always fails: this core registers no UDWFs.
func (r *Registry) LookupWindowFunction(name string) error {
	return planerr.NotImplemented("udwf %s not implemented", name)
}

// Names returns the registered scalar function names, sorted for
// deterministic diagnostics.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.scalars))
	for n := range r.scalars {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// windowFunction implements window(start, end) -> Struct{start,end}, the
// per-row window descriptor constructor every windowed aggregate rewrites
// to (§4.1). Evaluation preserves per-row semantics: the output is an array
// iff either input is an array (and shares the input's length); when both
// are scalars the result is a scalar struct. Grounded directly on
// arroyo-df/src/physical.rs's window_function, including its broadcast
// rules for mixed array/scalar arguments.
func windowFunction() *ScalarFunction {
	return &ScalarFunction{
		Name:      "window",
		Signature: []DataType{TimestampNanosType, TimestampNanosType},
		Return:    WindowStructType,
		Eval:      evalWindow,
	}
}

// WindowPair is the {start,end} struct value window() produces.
type WindowPair struct {
	Start, End int64
}

func evalWindow(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, planerr.TypeMismatch("window() expects 2 arguments, got %d", len(args))
	}
	start, end := args[0], args[1]
	if !start.Type.Equal(TimestampNanosType) || !end.Type.Equal(TimestampNanosType) {
		return Value{}, planerr.TypeMismatch(
			"window() arguments must both be Timestamp(ns), got %s and %s", start.Type, end.Type)
	}

	if start.IsScalar() && end.IsScalar() {
		return ScalarValue(WindowStructType, WindowPair{
			Start: start.At(0).(int64),
			End:   end.At(0).(int64),
		}), nil
	}

	n := start.Len()
	if end.Len() > n {
		n = end.Len()
	}
	if !start.IsScalar() && !end.IsScalar() && start.Len() != end.Len() {
		return Value{}, planerr.Internal(
			"window() array arguments have mismatched length (%d vs %d)", start.Len(), end.Len())
	}

	out := make([]any, n)
	for i := 0; i < n; i++ {
		si, ei := 0, 0
		if !start.IsScalar() {
			si = i
		}
		if !end.IsScalar() {
			ei = i
		}
		out[i] = WindowPair{Start: start.At(si).(int64), End: end.At(ei).(int64)}
	}
	return ArrayValue(WindowStructType, out), nil
}

// jsonFunctions builds the get_json_object family by compiling a CEL
// program once per row-shape, the same "compile env, register a variable,
// run Program.Eval per input" shape as kernel/celdp.Evaluator in the
// teacher. CEL has no built-in JSONPath extraction, so a custom function
// (jsonExtract) backs the path-walking logic; CEL is still doing the real
// work of binding, type-checking, and evaluating the expression against
// per-row input, rather than this core hand-rolling its own interpreter.
func jsonFunctions() []*ScalarFunction {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.StringType),
		cel.Variable("path", cel.StringType),
		cel.Function("jsonExtract",
			cel.Overload("jsonExtract_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.StringType,
				cel.BinaryBinding(func(docVal, pathVal ref.Val) ref.Val {
					doc, ok := docVal.Value().(string)
					if !ok {
						return types.NewErr("jsonExtract: doc must be a string")
					}
					path, ok := pathVal.Value().(string)
					if !ok {
						return types.NewErr("jsonExtract: path must be a string")
					}
					return types.String(jsonExtractPath(doc, path))
				}),
			),
		),
	)
	if err != nil {
		// The catalog is fixed and built at process start; a malformed
		// built-in environment is a programming error, not a runtime one.
		panic("schema: failed to build JSON function CEL environment: " + err.Error())
	}
	ast, iss := env.Compile(`jsonExtract(doc, path)`)
	if iss != nil && iss.Err() != nil {
		panic("schema: failed to compile get_json_object expression: " + iss.Err().Error())
	}
	prg, err := env.Program(ast)
	if err != nil {
		panic("schema: failed to build get_json_object program: " + err.Error())
	}

	eval := func(args []Value) (Value, error) {
		if len(args) != 2 {
			return Value{}, planerr.TypeMismatch("get_json_object() expects 2 arguments, got %d", len(args))
		}
		if !args[0].Type.Equal(Utf8Type) || !args[1].Type.Equal(Utf8Type) {
			return Value{}, planerr.TypeMismatch("get_json_object() arguments must be Utf8, got %s and %s", args[0].Type, args[1].Type)
		}
		n := args[0].Len()
		if args[1].Len() > n {
			n = args[1].Len()
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			di, pi := 0, 0
			if !args[0].IsScalar() {
				di = i
			}
			if !args[1].IsScalar() {
				pi = i
			}
			val, _, err := prg.Eval(map[string]any{
				"doc":  args[0].At(di),
				"path": args[1].At(pi),
			})
			if err != nil {
				return Value{}, planerr.Internal("get_json_object evaluation failed: %v", err)
			}
			out[i] = val.Value()
		}
		if args[0].IsScalar() && args[1].IsScalar() {
			return ScalarValue(Utf8Type, out[0]), nil
		}
		return ArrayValue(Utf8Type, out), nil
	}

	return []*ScalarFunction{{
		Name:      "get_json_object",
		Signature: []DataType{Utf8Type, Utf8Type},
		Return:    Utf8Type,
		Eval:      eval,
	}}
}

// jsonExtractPath walks a "$.a.b.c"-style path of object keys over decoded
// JSON, returning "" when any segment is missing (get_json_object's
// documented null-on-miss behavior). Array indexing is not supported: a
// segment such as "b[0]" is looked up as an object key.
func jsonExtractPath(doc, path string) string {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return ""
	}
	segments := splitJSONPath(path)
	for _, seg := range segments {
		m, ok := v.(map[string]any)
		if !ok {
			return ""
		}
		v, ok = m[seg]
		if !ok {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		var unquoted string
		if err := json.Unmarshal(b, &unquoted); err == nil {
			return unquoted
		}
	}
	return s
}

func splitJSONPath(path string) []string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}
