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

package index

import (
	"context"
	"sort"

	"github.com/redis/go-redis/v9"

	"doc-repository/pkg/config"
)

// DefaultNamespace Redis 键前缀
const DefaultNamespace = "docrepo:idx"

// RedisIndex 每个 (scope, id) 对应一个 Redis Set，成员为物理键
type RedisIndex struct {
	client    redis.UniversalClient
	namespace string
}

// RedisOptionsFromIndexConfig 从 IndexConfig 构造 redis.Options
func RedisOptionsFromIndexConfig(cfg config.IndexConfig) *redis.Options {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Addr == "" {
		opts.Addr = "localhost:6379"
	}
	return opts
}

// NewRedisIndex 使用已有 client 创建侧表；namespace 为空使用 DefaultNamespace
func NewRedisIndex(client redis.UniversalClient, namespace string) *RedisIndex {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisIndex{client: client, namespace: namespace}
}

func (x *RedisIndex) setKey(scope, id string) string {
	return x.namespace + ":" + scope + ":" + id
}

// Add SADD
func (x *RedisIndex) Add(ctx context.Context, scope, id, key string) error {
	return x.client.SAdd(ctx, x.setKey(scope, id), key).Err()
}

// Remove SREM；集合为空时 Redis 自动删除该键
func (x *RedisIndex) Remove(ctx context.Context, scope, id, key string) error {
	return x.client.SRem(ctx, x.setKey(scope, id), key).Err()
}

// Keys SMEMBERS，结果排序以与元数据扫描的顺序一致
func (x *RedisIndex) Keys(ctx context.Context, scope, id string) ([]string, error) {
	keys, err := x.client.SMembers(ctx, x.setKey(scope, id)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Close 关闭 Redis 连接
func (x *RedisIndex) Close() error {
	return x.client.Close()
}
