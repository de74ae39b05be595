package pidl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSkipPredicateNilWhenUnconfigured(t *testing.T) {
	t.Parallel()

	pred, err := newSkipPredicate()
	require.NoError(t, err)
	require.Nil(t, pred)
}

func TestSkipPredicateRejectsMultipleSources(t *testing.T) {
	t.Parallel()

	_, err := newSkipPredicate(SkipIf(true), SkipIfFunc(func() bool { return true }))
	require.Error(t, err)
}

func TestSkipPredicateValue(t *testing.T) {
	t.Parallel()

	pred, err := newSkipPredicate(SkipIf(true))
	require.NoError(t, err)
	require.False(t, pred.skip(), "truthy predicate means run, not skip")

	pred, err = newSkipPredicate(SkipIf(false))
	require.NoError(t, err)
	require.True(t, pred.skip())
}

func TestSkipPredicateFunc(t *testing.T) {
	t.Parallel()

	pred, err := newSkipPredicate(SkipIfFunc(func() bool { return false }))
	require.NoError(t, err)
	require.True(t, pred.skip())
}

func TestSkipPredicateKey(t *testing.T) {
	t.Parallel()

	ctx := NewContext()
	pred, err := newSkipPredicate(SkipIfKey("enabled", ctx))
	require.NoError(t, err)
	require.True(t, pred.skip(), "key unset means falsey means skip")

	ctx.Set("enabled", true)
	require.False(t, pred.skip())
}

func TestNilSkipPredicateNeverSkips(t *testing.T) {
	t.Parallel()

	var pred *skipPredicate
	require.False(t, pred.skip())
}
