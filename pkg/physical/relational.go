package physical

import (
	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
)

// Plan lowers a side-effect-free relational subtree (no Extension nodes --
// the graph visitor always shallow-clones its children into TableScan
// placeholders before calling Plan, §4.5) into a serialized physical plan
// blob (§4.3 "plan"). The original disables all repartitioning passes and
// runs zero physical optimizer passes for exactly this reason: the
// streaming runtime, not the batch optimizer, owns partitioning. This
// lowering has no optimizer to disable (it is a direct structural
// translation, not a cost-based planner), which trivially satisfies the
// same rationale -- there is nothing here that could insert a repartition.
func (b *Bridge) Plan(node logicalplan.Node) ([]byte, error) {
	return runScoped(func() ([]byte, error) {
		p, err := b.lower(node)
		if err != nil {
			return nil, err
		}
		return physicalplan.Marshal(p), nil
	})
}

// lower translates the fixed set of plain relational node kinds the graph
// visitor ever hands to Plan directly into their physicalplan.Node
// counterparts.
func (b *Bridge) lower(node logicalplan.Node) (physicalplan.Node, error) {
	switch n := node.(type) {
	case *logicalplan.TableScan:
		return &physicalplan.TableScanExec{Table: n.Table, Schema: n.OutputSchema}, nil
	case *logicalplan.Projection:
		input, err := b.lower(n.Input)
		if err != nil {
			return nil, err
		}
		blobs := make([][]byte, len(n.Exprs))
		for i, e := range n.Exprs {
			blob, err := b.CompileExpr(e, n.Input.Schema())
			if err != nil {
				return nil, err
			}
			blobs[i] = blob
		}
		return &physicalplan.ProjectionExec{Input: input, ExprBlobs: blobs, Schema: n.OutputSchema}, nil
	case *logicalplan.Filter:
		input, err := b.lower(n.Input)
		if err != nil {
			return nil, err
		}
		blob, err := b.CompileExpr(n.Predicate, n.Input.Schema())
		if err != nil {
			return nil, err
		}
		return &physicalplan.FilterExec{Input: input, PredicateBlob: blob}, nil
	case *logicalplan.Union:
		inputs := make([]physicalplan.Node, len(n.UnionInputs))
		for i, u := range n.UnionInputs {
			p, err := b.lower(u)
			if err != nil {
				return nil, err
			}
			inputs[i] = p
		}
		return &physicalplan.UnionExec{UnionInputs: inputs, Schema: n.OutputSchema}, nil
	default:
		return nil, planerr.Plan("unexpected physical plan type: %T reached the physical planner bridge directly", node)
	}
}
