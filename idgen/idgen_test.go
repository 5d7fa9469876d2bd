package idgen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/randforest/config"
)

func TestSnowflakeUnique(t *testing.T) {
	g, err := NewGenerator(config.SnowflakeConfig{MachineID: 3})
	require.NoError(t, err)

	seen := make(map[int64]struct{})
	for range 1000 {
		id, err := g.Generate()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestSonyflake(t *testing.T) {
	g, err := NewGenerator(config.SnowflakeConfig{Type: "sonyflake", MachineID: 7, StartTime: "2021-06-01"})
	require.NoError(t, err)
	a, err := g.Generate()
	require.NoError(t, err)
	b, err := g.Generate()
	require.NoError(t, err)
	assert.Greater(t, b, a)
}

func TestGeneratorErrors(t *testing.T) {
	_, err := NewGenerator(config.SnowflakeConfig{Type: "uuid"})
	assert.True(t, errors.Is(err, ErrUnsupportedType))

	_, err = NewGenerator(config.SnowflakeConfig{MachineID: 5000})
	assert.True(t, errors.Is(err, ErrInvalidMachineID))

	_, err = NewGenerator(config.SnowflakeConfig{Type: "sonyflake", StartTime: "yesterday"})
	assert.True(t, errors.Is(err, ErrParseTime))
}

func TestModelID(t *testing.T) {
	g, err := Default()
	require.NoError(t, err)
	id, err := ModelID(g)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "M"))
	assert.Greater(t, len(id), 5)
}
