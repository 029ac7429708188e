package result_test

import (
	"errors"
	"testing"

	"github.com/on-the-ground/calcgraph_go/engine/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_WrapsPlainValuesAsSuccess(t *testing.T) {
	res := result.From(42, nil)
	assert.True(t, res.IsSuccess())
	assert.Equal(t, 42, res.Value())
	assert.Nil(t, res.Failure())
}

func TestFrom_PassesResultsThrough(t *testing.T) {
	failed := result.FailureOf(result.StatusMissingData, "no curve %s", "USD")
	res := result.From(failed, nil)
	assert.False(t, res.IsSuccess())
	assert.Equal(t, result.StatusMissingData, res.Status())
	assert.Equal(t, "no curve USD", res.Failure().Message)
}

func TestFromError_KeepsFailureStatus(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), result.Failure{Status: result.StatusPermissionDenied, Message: "denied"})
	res := result.FromError(wrapped)
	assert.Equal(t, result.StatusPermissionDenied, res.Status())

	plain := errors.New("boom")
	res = result.FromError(plain)
	assert.Equal(t, result.StatusError, res.Status())
	assert.ErrorIs(t, res.Err(), plain)
}

func TestFromPanic(t *testing.T) {
	res := result.FromPanic("kaboom")
	assert.Equal(t, result.StatusError, res.Status())
	assert.Contains(t, res.Failure().Message, "kaboom")
}

func TestValueAs(t *testing.T) {
	v, err := result.ValueAs[float64](result.Success(1.5))
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	_, err = result.ValueAs[string](result.Success(1.5))
	assert.Error(t, err)

	_, err = result.ValueAs[float64](result.FailureOf(result.StatusError, "nope"))
	assert.Error(t, err)
}
