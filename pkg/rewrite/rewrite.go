package rewrite

import "github.com/arroyo-project/planner/pkg/logicalplan"

// Rewrite applies the full Component B pipeline to a raw logical plan
// tree, bottom-up: every Aggregate node is classified (windowed or not)
// before any Join node above it is rewritten, matching the original's
// TreeNodeRewriter traversal order — a join rewriter inspecting a side
// needs that side's windowing already resolved (§4.2.1, §4.2.2).
func Rewrite(node logicalplan.Node) (logicalplan.Node, error) {
	rewrittenChildren, err := rewriteChildren(node)
	if err != nil {
		return nil, err
	}
	switch n := rewrittenChildren.(type) {
	case *logicalplan.Aggregate:
		return ClassifyAggregate(n)
	case *logicalplan.Join:
		return RewriteJoin(n)
	default:
		return rewrittenChildren, nil
	}
}

// rewriteChildren returns a copy of node with each of its inputs replaced
// by its rewritten form, preserving node's own type so the switch in
// Rewrite can still match on it.
func rewriteChildren(node logicalplan.Node) (logicalplan.Node, error) {
	switch n := node.(type) {
	case *logicalplan.TableScan:
		return n, nil
	case *logicalplan.Projection:
		in, err := Rewrite(n.Input)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Input = in
		return &cp, nil
	case *logicalplan.Filter:
		in, err := Rewrite(n.Input)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Input = in
		return &cp, nil
	case *logicalplan.Join:
		left, err := Rewrite(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := Rewrite(n.Right)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Left, cp.Right = left, right
		return &cp, nil
	case *logicalplan.Aggregate:
		in, err := Rewrite(n.Input)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Input = in
		return &cp, nil
	case *logicalplan.Union:
		ins := make([]logicalplan.Node, len(n.UnionInputs))
		for i, in := range n.UnionInputs {
			r, err := Rewrite(in)
			if err != nil {
				return nil, err
			}
			ins[i] = r
		}
		cp := *n
		cp.UnionInputs = ins
		return &cp, nil
	case *logicalplan.SourceExtension, *logicalplan.RemoteTableExtension:
		return n, nil
	case *logicalplan.WatermarkExtension:
		in, err := Rewrite(n.Input)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Input = in
		return &cp, nil
	case *logicalplan.SinkExtension:
		in, err := Rewrite(n.Input)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Input = in
		return &cp, nil
	case *logicalplan.UnnestExtension:
		in, err := Rewrite(n.Input)
		if err != nil {
			return nil, err
		}
		cp := *n
		cp.Input = in
		return &cp, nil
	default:
		// Already-rewritten extensions (WindowExtension, AggregateExtension,
		// KeyCalculationExtension, JoinExtension) and anything else with no
		// rewrite rule pass through unchanged.
		return n, nil
	}
}
