package physicalplan

import "github.com/arroyo-project/planner/pkg/schema"

// TableScanExec reads a resolved table, matching DataFusion's
// ExecutionPlan::TableScan shape as far as this core cares: a leaf with a
// fixed output schema and an UnknownPartitioning(1) contract (§4.4).
type TableScanExec struct {
	Table  string
	Schema *schema.Schema
}

func (t *TableScanExec) Kind() NodeKind            { return KindTableScan }
func (t *TableScanExec) Children() []Node          { return nil }
func (t *TableScanExec) OutputSchema() *schema.Schema { return t.Schema }
func (t *TableScanExec) Partitions() int           { return 1 }

// FilterExec evaluates a physical predicate expression over its input's
// rows. The predicate itself is opaque to this core (it is whatever the
// physical planner bridge produced); Node only needs to carry it as bytes
// for wire round-tripping.
type FilterExec struct {
	Input         Node
	PredicateBlob []byte
}

func (f *FilterExec) Kind() NodeKind               { return KindFilter }
func (f *FilterExec) Children() []Node             { return []Node{f.Input} }
func (f *FilterExec) OutputSchema() *schema.Schema { return f.Input.OutputSchema() }
func (f *FilterExec) Partitions() int              { return f.Input.Partitions() }

// ProjectionExec computes a fixed output row shape from its input via a
// list of opaque physical expression blobs, one per output column.
type ProjectionExec struct {
	Input      Node
	ExprBlobs  [][]byte
	Schema     *schema.Schema
}

func (p *ProjectionExec) Kind() NodeKind            { return KindProjection }
func (p *ProjectionExec) Children() []Node          { return []Node{p.Input} }
func (p *ProjectionExec) OutputSchema() *schema.Schema { return p.Schema }
func (p *ProjectionExec) Partitions() int           { return p.Input.Partitions() }

// AggregateMode distinguishes the two stages split_aggregate produces
// (§4.3): Partial runs pre-shuffle and emits running accumulator state,
// Final runs post-shuffle and emits finished aggregate values.
type AggregateMode int

const (
	Partial AggregateMode = iota
	Final
)

func (m AggregateMode) String() string {
	if m == Partial {
		return "Partial"
	}
	return "Final"
}

// AggregateExec is one stage (Partial or Final) of a split aggregate
// (§4.3). GroupByBlobs/AggrBlobs are opaque physical expression blobs in
// the same order as the originating logical Aggregate's GroupBy/AggrExprs.
type AggregateExec struct {
	Input         Node
	Mode          AggregateMode
	GroupByBlobs  [][]byte
	AggrBlobs     [][]byte
	Schema        *schema.Schema
}

func (a *AggregateExec) Kind() NodeKind            { return KindAggregate }
func (a *AggregateExec) Children() []Node          { return []Node{a.Input} }
func (a *AggregateExec) OutputSchema() *schema.Schema { return a.Schema }
func (a *AggregateExec) Partitions() int           { return a.Input.Partitions() }

// UnionExec concatenates same-schema inputs.
type UnionExec struct {
	UnionInputs []Node
	Schema      *schema.Schema
}

func (u *UnionExec) Kind() NodeKind            { return KindUnion }
func (u *UnionExec) Children() []Node          { return u.UnionInputs }
func (u *UnionExec) OutputSchema() *schema.Schema { return u.Schema }
func (u *UnionExec) Partitions() int {
	total := 0
	for _, c := range u.UnionInputs {
		total += c.Partitions()
	}
	if total == 0 {
		return 1
	}
	return total
}

// MemExecPlaceholder stands in for an in-memory table scan supplied by the
// embedding runtime at decode time (§4.4: "a placeholder MemExec,
// table_name + JSON-encoded schema"). Table is the key pkg/codec's
// DecodingContext dispatches on (e.g. "partial" for a split aggregate's
// finish stage, "left"/"right" for a join's build sides); this core never
// interprets the rows themselves.
type MemExecPlaceholder struct {
	Schema *schema.Schema
	Table  string
}

func (m *MemExecPlaceholder) Kind() NodeKind            { return KindMemExecPlaceholder }
func (m *MemExecPlaceholder) Children() []Node          { return nil }
func (m *MemExecPlaceholder) OutputSchema() *schema.Schema { return m.Schema }
func (m *MemExecPlaceholder) Partitions() int           { return 1 }

// UnnestExecPlaceholder stands in for UNNEST execution, likewise opaque.
type UnnestExecPlaceholder struct {
	Input  Node
	Column string
	Schema *schema.Schema
}

func (u *UnnestExecPlaceholder) Kind() NodeKind            { return KindUnnestExecPlaceholder }
func (u *UnnestExecPlaceholder) Children() []Node          { return []Node{u.Input} }
func (u *UnnestExecPlaceholder) OutputSchema() *schema.Schema { return u.Schema }
func (u *UnnestExecPlaceholder) Partitions() int           { return u.Input.Partitions() }
