package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgumentErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("conflicting options")
	err := NewArgumentError("concurrency", "must be a non-negative integer", underlying)

	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	require.Equal(t, "concurrency", argErr.Subject)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "concurrency")
}

func TestKeyErrorNamesViewAndKey(t *testing.T) {
	t.Parallel()

	err := NewKeyError("config", "missing_key")

	var keyErr *KeyError
	require.ErrorAs(t, err, &keyErr)
	require.Equal(t, "config", keyErr.View)
	require.Equal(t, "missing_key", keyErr.Key)
	require.Contains(t, err.Error(), "missing_key")
}

func TestNoMethodErrorNamesView(t *testing.T) {
	t.Parallel()

	err := NewNoMethodError("params")

	var noMethodErr *NoMethodError
	require.ErrorAs(t, err, &noMethodErr)
	require.Equal(t, "params", noMethodErr.View)
}

func TestRuntimeErrorIncludesCause(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("cycle detected")
	err := NewRuntimeError("plan validation failed", underlying)

	var runtimeErr *RuntimeError
	require.ErrorAs(t, err, &runtimeErr)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "plan validation failed")
}
