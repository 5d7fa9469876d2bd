package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/randforest/config"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ok, err := s.Exists(ctx, "models/a.rf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Download(ctx, "models/a.rf")
	assert.True(t, errors.Is(err, ErrNotExist))

	require.NoError(t, s.Upload(ctx, "models/a.rf", strings.NewReader("blob"), 4, "application/octet-stream"))
	ok, err = s.Exists(ctx, "models/a.rf")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Download(ctx, "models/a.rf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "blob", string(data))

	require.NoError(t, s.Delete(ctx, "models/a.rf"))
	require.NoError(t, s.Delete(ctx, "models/a.rf"))
	ok, err = s.Exists(ctx, "models/a.rf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalStorageConfinesPaths(t *testing.T) {
	root := t.TempDir()
	s, err := NewLocalStorage(root)
	require.NoError(t, err)

	p, err := s.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root))

	_, err = s.path("")
	assert.Error(t, err)
}

func TestMinIOClientNilGuards(t *testing.T) {
	var c *MinIOClient
	_, err := c.Exists(context.Background(), "x")
	assert.Error(t, err)
	assert.Error(t, c.UpdateConfig(config.MinioConfig{}))
}

func TestNewMinIOClient(t *testing.T) {
	c, err := NewMinIOClient(config.MinioConfig{Endpoint: "localhost:9000", AccessKeyID: "k", SecretAccessKey: "s", BucketName: "models"})
	require.NoError(t, err)
	assert.Equal(t, "models", c.bucket)

	require.NoError(t, c.UpdateConfig(config.MinioConfig{Endpoint: "localhost:9001", BucketName: "other"}))
	assert.Equal(t, "other", c.bucket)

	_, err = NewMinIOClient(config.MinioConfig{Endpoint: "localhost:9000/bucket/path"})
	assert.Error(t, err)
}

var _ Storage = (*LocalStorage)(nil)
var _ Storage = (*MinIOClient)(nil)
