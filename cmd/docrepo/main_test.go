package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-repository/internal/app"
	"doc-repository/internal/storage/object"
	"doc-repository/pkg/config"
)

func newTestCLI(t *testing.T, indexType string) (*cli, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()
	boot, err := app.NewBootstrap(ctx, &config.Config{
		Repository: config.RepositoryConfig{Bucket: "docs", Prefix: "orders"},
		Storage: config.StorageConfig{
			Object: config.ObjectConfig{Type: "memory"},
			Index:  config.IndexConfig{Type: indexType},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = boot.Close(ctx) })

	var stdout, stderr bytes.Buffer
	return &cli{boot: boot, stdin: strings.NewReader(""), stdout: &stdout, stderr: &stderr}, &stdout, &stderr
}

func TestCLI_PutGetListDelete(t *testing.T) {
	ctx := context.Background()
	c, stdout, stderr := newTestCLI(t, "none")

	c.stdin = strings.NewReader(`{"total":9.99}`)
	require.Equal(t, 0, c.run(ctx, "put", []string{"42", "-"}), stderr.String())
	var coords map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &coords))
	assert.Equal(t, "42", coords["id"])
	assert.True(t, strings.HasPrefix(coords["key"], "orders/year="))
	assert.True(t, strings.HasSuffix(coords["key"], "/id=42"))

	stdout.Reset()
	require.Equal(t, 0, c.run(ctx, "get", []string{"42"}), stderr.String())
	assert.JSONEq(t, `{"total":9.99}`, stdout.String())

	stdout.Reset()
	require.Equal(t, 0, c.run(ctx, "list", nil), stderr.String())
	var doc struct {
		ID   string          `json:"id"`
		Key  string          `json:"key"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	assert.Equal(t, "42", doc.ID)
	assert.False(t, strings.HasPrefix(doc.Key, "orders/"))

	require.Equal(t, 0, c.run(ctx, "delete", []string{"42"}), stderr.String())
	assert.Equal(t, 1, c.run(ctx, "get", []string{"42"}))
	assert.Contains(t, stderr.String(), "not found")
}

func TestCLI_PutFromFileWithGeneratedID(t *testing.T) {
	ctx := context.Background()
	c, stdout, stderr := newTestCLI(t, "none")
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a":1}`), 0644))

	require.Equal(t, 0, c.run(ctx, "put", []string{"-", path}), stderr.String())
	var coords map[string]string
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &coords))
	assert.Len(t, coords["id"], 36)
}

func TestCLI_PutRejectsInvalidJSON(t *testing.T) {
	c, _, stderr := newTestCLI(t, "none")
	c.stdin = strings.NewReader(`{oops`)
	assert.Equal(t, 1, c.run(context.Background(), "put", []string{"1", "-"}))
	assert.Contains(t, stderr.String(), "invalid argument")
}

func TestCLI_DuplicateReportedAndPurged(t *testing.T) {
	ctx := context.Background()
	c, stdout, stderr := newTestCLI(t, "none")
	store := c.boot.ObjectStore
	require.NoError(t, store.Put(ctx, "docs", "orders/a/id=X", []byte(`{}`), object.Metadata{object.MetadataKeyID: "X"}))
	require.NoError(t, store.Put(ctx, "docs", "orders/b/id=X", []byte(`{}`), object.Metadata{object.MetadataKeyID: "X"}))

	assert.Equal(t, 3, c.run(ctx, "get", []string{"X"}))
	assert.Contains(t, stderr.String(), "orders/a/id=X")

	require.Equal(t, 0, c.run(ctx, "locate", []string{"X"}))
	assert.Equal(t, "orders/a/id=X\norders/b/id=X\n", stdout.String())

	stdout.Reset()
	require.Equal(t, 0, c.run(ctx, "purge", []string{"X"}))
	assert.Equal(t, "purged 2\n", stdout.String())
}

func TestCLI_Reindex(t *testing.T) {
	ctx := context.Background()
	c, stdout, stderr := newTestCLI(t, "memory")
	require.NoError(t, c.boot.ObjectStore.Put(ctx, "docs", "orders/id=7", []byte(`{"n":7}`), object.Metadata{object.MetadataKeyID: "7"}))

	assert.Equal(t, 1, c.run(ctx, "get", []string{"7"}), "index is empty before reindex")
	stderr.Reset()

	require.Equal(t, 0, c.run(ctx, "reindex", nil), stderr.String())
	assert.Equal(t, "indexed 1\n", stdout.String())

	stdout.Reset()
	require.Equal(t, 0, c.run(ctx, "get", []string{"7"}), stderr.String())
	assert.JSONEq(t, `{"n":7}`, stdout.String())
}

func TestCLI_ReindexWithoutIndex(t *testing.T) {
	c, _, _ := newTestCLI(t, "none")
	assert.Equal(t, 1, c.run(context.Background(), "reindex", nil))
}

func TestCLI_UsageErrors(t *testing.T) {
	c, _, stderr := newTestCLI(t, "none")
	assert.Equal(t, 1, c.run(context.Background(), "get", nil))
	assert.Contains(t, stderr.String(), "Usage: docrepo get <id>")
	assert.Equal(t, 1, c.run(context.Background(), "bogus", nil))
}

func TestCLI_Config(t *testing.T) {
	c, stdout, _ := newTestCLI(t, "none")
	require.Equal(t, 0, c.run(context.Background(), "config", nil))
	assert.Contains(t, stdout.String(), "repository.prefix=orders/")
	assert.Contains(t, stdout.String(), "storage.object.type=memory")
}
