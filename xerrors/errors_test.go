package xerrors

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapMatchesSentinelAndCause(t *testing.T) {
	err := Wrap(io.ErrUnexpectedEOF, ErrModelFormat, "decode model")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelFormat)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, ErrPersistence, err.Type)
	assert.Equal(t, ErrModelFormat.Code, err.Code)
	assert.NotEmpty(t, err.Stack)

	// 哨兵本身不能被修改
	assert.Equal(t, "invalid model format", ErrModelFormat.Message)
	assert.Nil(t, ErrModelFormat.Cause)
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrTreeBuild, "noop"))
}

func TestDerive(t *testing.T) {
	err := Derive(ErrLabelNotFound, "label column %q not found", "class")

	assert.ErrorIs(t, err, ErrLabelNotFound)
	assert.False(t, errors.Is(err, ErrShapeMismatch))
	assert.Contains(t, err.Error(), `label column "class" not found`)
}

func TestFromError(t *testing.T) {
	wrapped := Wrap(errors.New("boom"), ErrTreeBuild, "tree 3")
	e, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrConstruction, e.Type)

	_, ok = FromError(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithContext(t *testing.T) {
	err := InvalidArg("bad row").WithContext("row", 7).WithDetail("expected %d fields", 4)
	assert.Equal(t, 7, err.Context["row"])
	assert.Equal(t, "expected 4 fields", err.Detail)
	assert.Equal(t, "InvalidArg", err.Type.String())
	assert.Equal(t, "Unknown", ErrorType(99).String())
}
