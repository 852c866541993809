package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMethodError(t *testing.T) {
	assert.Nil(t, ToMethodError(nil))
	assert.Nil(t, ToMethodError(fmt.Errorf("%w: foo", ErrNotImplemented)))

	me := ToMethodError(fmt.Errorf("setVolume: %w", ErrControlUnavailable))
	require.NotNil(t, me)
	assert.Equal(t, CodeControlUnavailable, me.Code)
	assert.ErrorIs(t, me, ErrControlUnavailable)

	me = ToMethodError(fmt.Errorf("%w: volume", ErrInvalidArguments))
	require.NotNil(t, me)
	assert.Equal(t, CodeInvalidArguments, me.Code)

	me = ToMethodError(ErrDisposed)
	require.NotNil(t, me)
	assert.Equal(t, CodeUnavailable, me.Code)

	me = ToMethodError(errors.New("boom"))
	require.NotNil(t, me)
	assert.Equal(t, CodeInternal, me.Code)
	assert.Equal(t, "internal: boom", me.Error())
}

func TestToMethodError_PassesThroughExisting(t *testing.T) {
	orig := &MethodError{Code: "custom", Message: "m"}
	assert.Same(t, orig, ToMethodError(fmt.Errorf("wrapped: %w", orig)))
}

func TestSentinelForCode(t *testing.T) {
	assert.ErrorIs(t, SentinelForCode(CodeControlUnavailable), ErrControlUnavailable)
	assert.ErrorIs(t, SentinelForCode(CodeInvalidArguments), ErrInvalidArguments)
	assert.Nil(t, SentinelForCode("other"))
}
