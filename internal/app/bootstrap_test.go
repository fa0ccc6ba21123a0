package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-repository/internal/docrepo"
	"doc-repository/pkg/config"
	pkgerrors "doc-repository/pkg/errors"
)

func TestBootstrap_MemoryRepository(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Repository: config.RepositoryConfig{Bucket: "docs", Prefix: "orders", RateLimit: 1000},
		Storage: config.StorageConfig{
			Object: config.ObjectConfig{Type: "memory", PageSize: 2},
			Index:  config.IndexConfig{Type: "none"},
		},
	}
	b, err := NewBootstrap(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(ctx) })

	repo, err := OpenRepository[map[string]any](ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "docs", repo.Bucket())
	assert.Equal(t, "orders/", repo.Prefix())
	_, isScan := repo.Locator().(*docrepo.MetadataLocator)
	assert.True(t, isScan)

	_, err = repo.Save(ctx, "1", map[string]any{"total": 9.99})
	require.NoError(t, err)
	got, ok, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9.99, got["total"])
}

func TestBootstrap_MemoryIndex(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Repository: config.RepositoryConfig{Bucket: "docs"},
		Storage: config.StorageConfig{
			Index: config.IndexConfig{Type: "memory"},
		},
	}
	b, err := NewBootstrap(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(ctx) })

	repo, err := OpenRepository[map[string]any](ctx, b)
	require.NoError(t, err)
	_, isIndex := repo.Locator().(*docrepo.IndexLocator)
	assert.True(t, isIndex)
}

func TestBootstrap_UnsupportedStore(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Object: config.ObjectConfig{Type: "tape"}}}
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}

func TestBootstrap_UnresolvedSecret(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{Object: config.ObjectConfig{Type: "postgres", DSN: "secret://DOCREPO_TEST_UNSET_DSN"}},
		Secrets: config.SecretsConfig{Provider: "env"},
	}
	_, err := NewBootstrap(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestBootstrap_UnsupportedSecretProvider(t *testing.T) {
	cfg := &config.Config{Secrets: config.SecretsConfig{Provider: "hsm"}}
	_, err := NewBootstrap(context.Background(), cfg)
	assert.Error(t, err)
}
