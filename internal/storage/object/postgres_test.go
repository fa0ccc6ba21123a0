// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package object

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDSN(t *testing.T) string {
	dsn := os.Getenv("TEST_BLOB_DSN")
	if dsn == "" {
		t.Skip("TEST_BLOB_DSN not set, skipping Postgres object store tests")
	}
	return dsn
}

func newTestPgStore(t *testing.T) (*PostgresStore, string) {
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, testDSN(t), 2)
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	bucket := "test-" + uuid.New().String()
	t.Cleanup(func() {
		_, _ = s.pool.Exec(context.Background(), `DELETE FROM blob_objects WHERE bucket = $1`, bucket)
		s.Close()
	})
	return s, bucket
}

func TestPostgresStore_PutGetHeadDelete(t *testing.T) {
	ctx := context.Background()
	s, bucket := newTestPgStore(t)

	require.NoError(t, s.Put(ctx, bucket, "a/id=1", []byte(`{"n":1}`), Metadata{MetadataKeyID: "1"}))

	obj, err := s.Get(ctx, bucket, "a/id=1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(obj.Body))
	assert.Equal(t, "1", obj.Metadata[MetadataKeyID])

	md, err := s.Head(ctx, bucket, "a/id=1")
	require.NoError(t, err)
	assert.Equal(t, Metadata{MetadataKeyID: "1"}, md)

	require.NoError(t, s.Delete(ctx, bucket, "a/id=1"))
	_, err = s.Get(ctx, bucket, "a/id=1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, bucket, "a/id=1"), ErrNotFound))
}

func TestPostgresStore_ListPage(t *testing.T) {
	ctx := context.Background()
	s, bucket := newTestPgStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, bucket, fmt.Sprintf("p/k%d", i), nil, nil))
	}
	require.NoError(t, s.Put(ctx, bucket, "q/k", nil, nil))

	var all []string
	token := ""
	for {
		page, err := s.ListPage(ctx, bucket, "p/", token)
		require.NoError(t, err)
		all = append(all, page.Keys...)
		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}
	assert.Equal(t, []string{"p/k0", "p/k1", "p/k2", "p/k3", "p/k4"}, all)
}
