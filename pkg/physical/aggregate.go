package physical

import (
	"fmt"

	"github.com/arroyo-project/planner/pkg/logicalplan"
	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/planerr"
	"github.com/arroyo-project/planner/pkg/schema"
)

// SplitAggregate lowers agg into its two-phase Partial/Final physical form
// (§4.3 split_aggregate). It is ported operation-for-operation from the
// original's split_physical_plan: plan the aggregate, pull the Final
// stage's Partial child out as its own serialized plan, derive the
// between-stages streaming schema by appending _timestamp to the
// partial's output, then rebuild the Final stage with its input replaced
// by a placeholder reading from that schema.
//
// This port's aggregate lowering builds the Partial/Final pair directly
// (§4.3 step 1's "plan, then require the root be Final-over-Partial, else
// fail" is how the original validates an externally-produced physical
// plan shape it doesn't control; this bridge constructs that shape
// itself, so there's nothing to validate against).
func (b *Bridge) SplitAggregate(keyIndices []int, agg *logicalplan.Aggregate) (physicalplan.SplitAggregateResult, error) {
	return runScoped(func() (physicalplan.SplitAggregateResult, error) {
		return b.splitAggregate(keyIndices, agg)
	})
}

func (b *Bridge) splitAggregate(keyIndices []int, agg *logicalplan.Aggregate) (physicalplan.SplitAggregateResult, error) {
	inputSchema := agg.Input.Schema()
	inputPhysical, err := b.lowerAggregateInput(agg.Input)
	if err != nil {
		return physicalplan.SplitAggregateResult{}, err
	}

	groupByFields := make([]schema.Field, len(agg.GroupBy))
	groupByBlobs := make([][]byte, len(agg.GroupBy))
	for i, e := range agg.GroupBy {
		f, err := logicalplan.ExprOutputField(e, inputSchema)
		if err != nil {
			return physicalplan.SplitAggregateResult{}, err
		}
		groupByFields[i] = f
		blob, err := b.CompileExpr(e, inputSchema)
		if err != nil {
			return physicalplan.SplitAggregateResult{}, err
		}
		groupByBlobs[i] = blob
	}

	aggrPartialFields := make([]schema.Field, len(agg.AggrExprs))
	aggrBlobs := make([][]byte, len(agg.AggrExprs))
	for i, e := range agg.AggrExprs {
		call, ok := e.(logicalplan.AggregateFunctionCall)
		if !ok {
			return physicalplan.SplitAggregateResult{}, planerr.Plan(
				"aggregate expression %s is not an aggregate function call", e)
		}
		blob, err := b.CompileExpr(e, inputSchema)
		if err != nil {
			return physicalplan.SplitAggregateResult{}, err
		}
		aggrBlobs[i] = blob
		aggrPartialFields[i] = schema.Field{
			Name: fmt.Sprintf("%s_partial", call.Name), Type: schema.Int64Type, Nullable: false,
		}
	}

	partialBaseSchema := schema.New(append(append([]schema.Field{}, groupByFields...), aggrPartialFields...)...)

	partialExec := &physicalplan.AggregateExec{
		Input:        inputPhysical,
		Mode:         physicalplan.Partial,
		GroupByBlobs: groupByBlobs,
		AggrBlobs:    aggrBlobs,
		Schema:       partialBaseSchema,
	}

	// add_timestamp_field: the between-stages streaming schema appends
	// _timestamp to the partial stage's plain output (§4.3 step 3).
	partialWithTimestamp := partialBaseSchema.AddTimestampField()
	partialStreaming, err := schema.NewKeyed(partialWithTimestamp, partialBaseSchema.Len(), keyIndices)
	if err != nil {
		return physicalplan.SplitAggregateResult{}, err
	}

	// The Final stage reads the Partial stage's own output columns by
	// name, not the original input's columns.
	finishGroupByBlobs := make([][]byte, len(groupByFields))
	for i, f := range groupByFields {
		blob, err := b.CompileExpr(logicalplan.Column{Name: f.Name}, partialBaseSchema)
		if err != nil {
			return physicalplan.SplitAggregateResult{}, err
		}
		finishGroupByBlobs[i] = blob
	}
	finishAggrBlobs := make([][]byte, len(aggrPartialFields))
	for i, f := range aggrPartialFields {
		blob, err := b.CompileExpr(logicalplan.Column{Name: f.Name}, partialBaseSchema)
		if err != nil {
			return physicalplan.SplitAggregateResult{}, err
		}
		finishAggrBlobs[i] = blob
	}

	finishExec := &physicalplan.AggregateExec{
		// Step 4: "replace the final aggregate's input with a placeholder
		// MemExec named 'partial' of schema partial_schema (without the
		// appended _timestamp)".
		Input:        &physicalplan.MemExecPlaceholder{Schema: partialBaseSchema, Table: "partial"},
		Mode:         physicalplan.Final,
		GroupByBlobs: finishGroupByBlobs,
		AggrBlobs:    finishAggrBlobs,
		Schema:       agg.OutputSchema,
	}

	return physicalplan.SplitAggregateResult{
		PartialSchema:   partialStreaming,
		PartialPlanBlob: physicalplan.Marshal(partialExec),
		FinishPlanBlob:  physicalplan.Marshal(finishExec),
	}, nil
}

// lowerAggregateInput lowers agg's upstream input to a physical tree when
// it is a plain relational node, or -- when it is an extension this
// bridge doesn't own the execution of (e.g. a WindowExtension, which
// materializes the window struct column ahead of the keyed aggregate,
// §4.2.2 S1) -- stands in a schema-typed placeholder leaf. The upstream
// extension is planned into its own graph node independently by the
// graph visitor; split_aggregate only needs a schema-correct input to
// type-check the aggregate's own expressions against, not to re-embed
// that extension's execution inside the aggregate's own physical plan.
func (b *Bridge) lowerAggregateInput(input logicalplan.Node) (physicalplan.Node, error) {
	switch input.(type) {
	case *logicalplan.TableScan, *logicalplan.Projection, *logicalplan.Filter, *logicalplan.Union:
		return b.lower(input)
	default:
		return &physicalplan.TableScanExec{Table: "$aggInput", Schema: input.Schema()}, nil
	}
}
