package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/arroyo-project/planner/pkg/physicalplan"
	"github.com/arroyo-project/planner/pkg/schema"
)

func partialSchema() *schema.Schema {
	return schema.New(
		schema.Field{Name: "user_id", Type: schema.Int64Type, Nullable: false},
		schema.Field{Name: "count_partial", Type: schema.Int64Type, Nullable: false},
	)
}

func TestDecode_MemExecResolvesAgainstSingleLockedBatch(t *testing.T) {
	sch := partialSchema()
	plan := &physicalplan.MemExecPlaceholder{Schema: sch, Table: "partial"}
	buf := Encode(plan)

	slot := NewBatchSlot("row-data")
	node, err := Decode(buf, SingleLockedBatchContext{Slot: slot})
	require.NoError(t, err)

	mem, ok := node.(*resolvedMemExec)
	require.True(t, ok)
	assert.Equal(t, "partial", mem.Table())
	assert.Equal(t, VariantSingleLockedBatch.String(), mem.ResolvedAs())
	assert.True(t, sch.Equal(mem.OutputSchema()))
	assert.Equal(t, "row-data", mem.Slot().(*BatchSlot).Take())
}

func TestDecode_MemExecWithNoneContextFails(t *testing.T) {
	plan := &physicalplan.MemExecPlaceholder{Schema: partialSchema(), Table: "partial"}
	buf := Encode(plan)

	_, err := Decode(buf, NoneContext{})
	assert.Error(t, err)
}

func TestDecode_JoinPairDispatchesByTableName(t *testing.T) {
	sch := partialSchema()
	union := &physicalplan.UnionExec{
		UnionInputs: []physicalplan.Node{
			&physicalplan.MemExecPlaceholder{Schema: sch, Table: "left"},
			&physicalplan.MemExecPlaceholder{Schema: sch, Table: "right"},
		},
		Schema: sch,
	}
	buf := Encode(union)

	left := NewBatchSlot("left-rows")
	right := NewBatchSlot("right-rows")
	node, err := Decode(buf, LockedJoinPairContext{Left: left, Right: right})
	require.NoError(t, err)

	u, ok := node.(*passthroughExec)
	require.True(t, ok)
	children := u.Children()
	require.Len(t, children, 2)

	leftNode := children[0].(*resolvedMemExec)
	rightNode := children[1].(*resolvedMemExec)
	assert.Equal(t, "left-rows", leftNode.Slot().(*BatchSlot).Take())
	assert.Equal(t, "right-rows", rightNode.Slot().(*BatchSlot).Take())
}

func TestBatchSlot_DoubleTakePanics(t *testing.T) {
	slot := NewBatchSlot(1)
	slot.Take()
	assert.Panics(t, func() { slot.Take() })
}

func TestDecode_RejectsUnsupportedFormatVersion(t *testing.T) {
	plan := &physicalplan.MemExecPlaceholder{Schema: partialSchema(), Table: "partial"}

	var buf []byte
	buf = protowire.AppendTag(buf, fieldEnvelopeVersion, protowire.BytesType)
	buf = protowire.AppendString(buf, "2.0.0")
	buf = protowire.AppendTag(buf, fieldEnvelopePlan, protowire.BytesType)
	buf = protowire.AppendBytes(buf, physicalplan.Marshal(plan))

	_, err := Decode(buf, PlanningContext{})
	assert.Error(t, err)
}

func TestDecode_RejectsMalformedSchemaBlob(t *testing.T) {
	badSchema := schema.New(schema.Field{Name: "", Type: schema.Int64Type, Nullable: false})
	plan := &physicalplan.MemExecPlaceholder{Schema: badSchema, Table: "partial"}
	buf := Encode(plan)

	_, err := Decode(buf, PlanningContext{})
	assert.Error(t, err)
}
