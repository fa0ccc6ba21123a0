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
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"doc-repository/pkg/metrics"
	"doc-repository/pkg/utils"
)

// DefaultPageSize 与 S3 ListObjectsV2 的默认单页上限一致
const DefaultPageSize = 1000

// MemoryStore 内存对象存储实现
type MemoryStore struct {
	buckets  map[string]map[string]*object
	pageSize int
	mu       sync.RWMutex
}

// object 内存对象实现
type object struct {
	data      []byte
	metadata  Metadata
	createdAt int64
}

// NewMemoryStore 创建新的内存对象存储；pageSize<=0 使用 DefaultPageSize
func NewMemoryStore(pageSize int) *MemoryStore {
	pageSize = utils.PositiveOr(pageSize, DefaultPageSize)
	return &MemoryStore{
		buckets:  make(map[string]map[string]*object),
		pageSize: pageSize,
	}
}

// Put 上传对象
func (s *MemoryStore) Put(ctx context.Context, bucket, key string, body []byte, metadata Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metrics.BlobRequestTotal.WithLabelValues("memory", "put").Inc()

	data := make([]byte, len(body))
	copy(data, body)

	s.mu.Lock()
	defer s.mu.Unlock()

	objs, ok := s.buckets[bucket]
	if !ok {
		objs = make(map[string]*object)
		s.buckets[bucket] = objs
	}
	objs[key] = &object{
		data:      data,
		metadata:  metadata.Clone(),
		createdAt: time.Now().Unix(),
	}
	return nil
}

func (s *MemoryStore) lookup(bucket, key string) (*object, error) {
	obj, exists := s.buckets[bucket][key]
	if !exists {
		return nil, fmt.Errorf("object %s/%s: %w", bucket, key, ErrNotFound)
	}
	return obj, nil
}

// Get 下载对象
func (s *MemoryStore) Get(ctx context.Context, bucket, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.BlobRequestTotal.WithLabelValues("memory", "get").Inc()

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return &Object{Key: key, Body: data, Metadata: obj.metadata.Clone()}, nil
}

// Head 获取对象元数据
func (s *MemoryStore) Head(ctx context.Context, bucket, key string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.BlobRequestTotal.WithLabelValues("memory", "head").Inc()

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, err := s.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	return obj.metadata.Clone(), nil
}

// Delete 删除对象
func (s *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metrics.BlobRequestTotal.WithLabelValues("memory", "delete").Inc()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(bucket, key); err != nil {
		return err
	}
	delete(s.buckets[bucket], key)
	return nil
}

// ListPage 列出一页对象键；token 为上一页最后一个键（start-after 语义）
func (s *MemoryStore) ListPage(ctx context.Context, bucket, prefix, token string) (*ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.BlobRequestTotal.WithLabelValues("memory", "list").Inc()

	s.mu.RLock()
	var keys []string
	for key := range s.buckets[bucket] {
		if strings.HasPrefix(key, prefix) && key > token {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)

	page := &ListPage{}
	if len(keys) > s.pageSize {
		keys = keys[:s.pageSize]
		page.NextToken = keys[len(keys)-1]
	}
	page.Keys = keys
	return page, nil
}

// Close 关闭存储连接
func (s *MemoryStore) Close() error {
	return nil
}
