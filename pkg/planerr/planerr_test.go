package planerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyo-project/planner/pkg/planerr"
)

func TestConstructors_SetKindAndMessage(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind planerr.Kind
	}{
		{"NotImplemented", planerr.NotImplemented("unsupported %s", "join"), planerr.KindNotImplemented},
		{"Plan", planerr.Plan("missing input %d", 2), planerr.KindPlan},
		{"TypeMismatch", planerr.TypeMismatch("expected %s got %s", "Int64", "Utf8"), planerr.KindTypeMismatch},
		{"Internal", planerr.Internal("codec decode failed"), planerr.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var pe *planerr.Error
			require.ErrorAs(t, tc.err, &pe)
			assert.Equal(t, tc.kind, pe.Kind)
			assert.True(t, planerr.Of(tc.err, tc.kind))
		})
	}
}

func TestIs_MatchesSentinelByKindOnly(t *testing.T) {
	err := planerr.Plan("duplicate stable name %s", "Source(orders)")

	assert.True(t, errors.Is(err, planerr.PlanKind))
	assert.False(t, errors.Is(err, planerr.InternalKind))
}

func TestWrap_PreservesCauseAndSetsKind(t *testing.T) {
	cause := errors.New("boom")
	err := planerr.Wrap(planerr.KindInternal, cause, "codec: decoding physical plan tree failed")

	assert.True(t, errors.Is(err, planerr.InternalKind))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "codec: decoding physical plan tree failed")
}

func TestOf_FalseForPlainError(t *testing.T) {
	assert.False(t, planerr.Of(errors.New("not ours"), planerr.KindPlan))
}

func TestOf_FalseForNil(t *testing.T) {
	assert.False(t, planerr.Of(nil, planerr.KindPlan))
}
