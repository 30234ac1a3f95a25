package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyo-project/planner/pkg/schema"
)

func TestValidateDecoded_AcceptsWellFormedSchema(t *testing.T) {
	err := schema.ValidateDecoded(orderSchema())
	require.NoError(t, err)
}

func TestValidateDecoded_RejectsEmptyFieldName(t *testing.T) {
	s := schema.New(schema.Field{Name: "", Type: schema.Int64Type, Nullable: false})
	err := schema.ValidateDecoded(s)
	require.Error(t, err)
}

func TestValidateDecoded_AcceptsInvalidTypeID(t *testing.T) {
	s := schema.New(schema.Field{Name: "ok", Type: schema.DataType{}, Nullable: false})
	err := schema.ValidateDecoded(s)
	// DataType{}.ID is the zero value Invalid, whose String() is "Invalid",
	// so this still has a non-empty type string -- this case documents
	// that ValidateDecoded only checks structural shape, not semantic
	// type validity (UnmarshalDataType likewise stores whatever TypeID
	// value it reads without checking it).
	require.NoError(t, err)
}
