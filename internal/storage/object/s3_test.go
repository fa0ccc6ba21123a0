package object

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要可写 bucket：TEST_S3_BUCKET，可选 TEST_S3_ENDPOINT（MinIO 等）
func newTestS3Store(t *testing.T) (*S3Store, string) {
	bucket := os.Getenv("TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("TEST_S3_BUCKET not set, skipping S3 object store tests")
	}
	endpoint := os.Getenv("TEST_S3_ENDPOINT")
	s, err := NewS3Store(context.Background(), S3Options{
		Region:    os.Getenv("AWS_REGION"),
		Endpoint:  endpoint,
		PathStyle: endpoint != "",
		PageSize:  2,
	})
	require.NoError(t, err)
	return s, bucket
}

func TestS3Store_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, bucket := newTestS3Store(t)
	prefix := "docrepo-test/" + uuid.New().String() + "/"

	keys := []string{prefix + "id=1", prefix + "id=2", prefix + "id=3"}
	for i, key := range keys {
		require.NoError(t, s.Put(ctx, bucket, key, []byte(`{}`), Metadata{MetadataKeyID: string(rune('1' + i))}))
	}
	t.Cleanup(func() {
		for _, key := range keys {
			_ = s.Delete(context.Background(), bucket, key)
		}
	})

	md, err := s.Head(ctx, bucket, keys[0])
	require.NoError(t, err)
	id, ok := md.ID()
	assert.True(t, ok)
	assert.Equal(t, "1", id)

	var listed []string
	token := ""
	for {
		page, err := s.ListPage(ctx, bucket, prefix, token)
		require.NoError(t, err)
		listed = append(listed, page.Keys...)
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	assert.Equal(t, keys, listed)

	_, err = s.Get(ctx, bucket, prefix+"missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = s.Head(ctx, bucket, prefix+"missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}
