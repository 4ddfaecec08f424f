package xerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrorTypeQuery, "select failed")

	assert.Equal(t, "query: select failed", err.Error())
	assert.Equal(t, ErrorTypeQuery, err.Type)
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, ErrorTypeConnection, "postgres unreachable")

	assert.Equal(t, "connection: postgres unreachable: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeConnection, "ignored"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeQuery, "inner")
	outer := Wrap(inner, ErrorTypeData, "outer")

	require.NotEmpty(t, outer.Stack)
	assert.Equal(t, inner.Stack, outer.Stack)
}

func TestIsType(t *testing.T) {
	err := New(ErrorTypePublish, "upload failed")
	wrapped := fmt.Errorf("run aborted: %w", err)

	assert.True(t, IsType(wrapped, ErrorTypePublish))
	assert.False(t, IsType(wrapped, ErrorTypeConnection))
	assert.False(t, IsType(errors.New("plain"), ErrorTypePublish))
}

func TestIsNoData(t *testing.T) {
	err := Wrap(ErrNoData, ErrorTypeData, "staging collection empty")

	assert.True(t, IsNoData(err))
	assert.False(t, IsNoData(New(ErrorTypeData, "unrelated")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrorTypeQuery, "select failed").
		WithDetail("table", "public.customers").
		WithDetail("limit", 100)

	assert.Equal(t, "public.customers", err.Details["table"])
	assert.Equal(t, 100, err.Details["limit"])
}
