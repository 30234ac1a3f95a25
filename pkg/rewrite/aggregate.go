package rewrite

import (
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

const windowOutputColumn = "window"

// ClassifyAggregate rewrites a raw relational Aggregate into its keyed,
// and — if windowed — time-windowed form (§4.2.2). When GroupBy contains
// a recognized window constructor call, a WindowExtension materializing
// the window struct column is inserted between Input and the resulting
// AggregateExtension, and the window column becomes the aggregate's
// leading (and, absent other group-by columns, only) shuffle key.
func ClassifyAggregate(raw *logicalplan.Aggregate) (logicalplan.Node, error) {
	wt, idx, err := detectWindowCall(raw.GroupBy)
	if err != nil {
		return nil, err
	}
	if wt == nil {
		keyIndices := make([]int, len(raw.GroupBy))
		for i := range keyIndices {
			keyIndices[i] = i
		}
		return &AggregateExtension{
			Input:        raw.Input,
			GroupBy:      raw.GroupBy,
			AggrExprs:    raw.AggrExprs,
			KeyIndices:   keyIndices,
			OutputSchema: raw.OutputSchema,
		}, nil
	}

	remaining := make([]logicalplan.Expr, 0, len(raw.GroupBy)-1)
	for i, e := range raw.GroupBy {
		if i != idx {
			remaining = append(remaining, e)
		}
	}

	windowSchema := raw.Input.Schema().WithFields(schema.Field{
		Name: windowOutputColumn, Type: schema.WindowStructType, Nullable: false,
	})
	win := &WindowExtension{
		Input:        raw.Input,
		Type:         *wt,
		WindowColumn: windowOutputColumn,
		OutputSchema: windowSchema,
	}

	newGroupBy := make([]logicalplan.Expr, 0, 1+len(remaining))
	newGroupBy = append(newGroupBy, logicalplan.Column{Name: windowOutputColumn})
	newGroupBy = append(newGroupBy, remaining...)

	keyIndices := make([]int, len(newGroupBy))
	for i := range keyIndices {
		keyIndices[i] = i
	}

	return &AggregateExtension{
		Input:        win,
		GroupBy:      newGroupBy,
		AggrExprs:    raw.AggrExprs,
		KeyIndices:   keyIndices,
		OutputSchema: raw.OutputSchema,
	}, nil
}

// detectWindowCall scans group_by for a recognized window constructor,
// returning its WindowType and position; (nil, -1, nil) if none is
// present. Recognizes window(ts, width), hop(ts, width, slide), and
// session(ts, gap), where width/slide/gap are literal durations in
// nanoseconds — the fixed call shapes the external SQL front-end is
// expected to lower windowing syntax into (§4.2.2 leaves exact SQL syntax
// to the front-end; the core only needs a fixed, recognizable call
// shape).
func detectWindowCall(groupBy []logicalplan.Expr) (*WindowType, int, error) {
	found := -1
	var wt WindowType
	for i, e := range groupBy {
		call, ok := e.(logicalplan.ScalarFunctionCall)
		if !ok {
			continue
		}
		var candidate WindowType
		switch call.Name {
		case "window":
			if len(call.Args) != 2 {
				return nil, -1, planerr.Plan("window() expects 2 arguments, got %d", len(call.Args))
			}
			width, err := literalDuration(call.Args[1])
			if err != nil {
				return nil, -1, err
			}
			candidate = WindowType{Kind: WindowTumble, Width: width}
		case "hop":
			if len(call.Args) != 3 {
				return nil, -1, planerr.Plan("hop() expects 3 arguments, got %d", len(call.Args))
			}
			width, err := literalDuration(call.Args[1])
			if err != nil {
				return nil, -1, err
			}
			slide, err := literalDuration(call.Args[2])
			if err != nil {
				return nil, -1, err
			}
			candidate = WindowType{Kind: WindowHop, Width: width, Slide: slide}
		case "session":
			if len(call.Args) != 2 {
				return nil, -1, planerr.Plan("session() expects 2 arguments, got %d", len(call.Args))
			}
			gap, err := literalDuration(call.Args[1])
			if err != nil {
				return nil, -1, err
			}
			candidate = WindowType{Kind: WindowSession, Gap: gap}
		default:
			continue
		}
		if found != -1 {
			return nil, -1, planerr.Plan("aggregate group-by contains more than one window constructor")
		}
		found = i
		wt = candidate
	}
	if found == -1 {
		return nil, -1, nil
	}
	return &wt, found, nil
}

func literalDuration(e logicalplan.Expr) (int64, error) {
	lit, ok := e.(logicalplan.Literal)
	if !ok {
		return 0, planerr.Plan("window constructor argument must be a literal duration, got %s", e)
	}
	switch v := lit.Value.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	default:
		return 0, planerr.TypeMismatch("window constructor duration literal must be an integer nanosecond count, got %T", lit.Value)
	}
}
