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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"doc-repository/pkg/metrics"
	"doc-repository/pkg/utils"
)

// PostgresSchema blob_objects 表结构；key 按 "C" 排序以保证与 S3 相同的字节序分页
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS blob_objects (
	bucket     TEXT        NOT NULL,
	key        TEXT        COLLATE "C" NOT NULL,
	body       BYTEA       NOT NULL,
	metadata   JSONB       NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (bucket, key)
)`

// PostgresStore PostgreSQL 实现：一张表模拟扁平对象存储，keyset 分页
type PostgresStore struct {
	pool     *pgxpool.Pool
	pageSize int
}

// NewPostgresStore 创建基于 PostgreSQL 的对象存储；pageSize<=0 使用 DefaultPageSize
func NewPostgresStore(ctx context.Context, dsn string, pageSize int) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &PostgresStore{pool: pool, pageSize: utils.PositiveOr(pageSize, DefaultPageSize)}, nil
}

// EnsureSchema 创建 blob_objects 表（幂等）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("exec schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, bucket, key string, body []byte, metadata Metadata) error {
	metrics.BlobRequestTotal.WithLabelValues("postgres", "put").Inc()
	if metadata == nil {
		metadata = Metadata{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if body == nil {
		body = []byte{}
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO blob_objects (bucket, key, body, metadata, created_at) VALUES ($1, $2, $3, $4::jsonb, now())
		 ON CONFLICT (bucket, key) DO UPDATE SET body = EXCLUDED.body, metadata = EXCLUDED.metadata, created_at = EXCLUDED.created_at`,
		bucket, key, body, string(metaJSON))
	return err
}

func (s *PostgresStore) Get(ctx context.Context, bucket, key string) (*Object, error) {
	metrics.BlobRequestTotal.WithLabelValues("postgres", "get").Inc()
	var body []byte
	var metaJSON string
	err := s.pool.QueryRow(ctx,
		`SELECT body, metadata::text FROM blob_objects WHERE bucket = $1 AND key = $2`,
		bucket, key).Scan(&body, &metaJSON)
	if err != nil {
		return nil, notFoundOr(err, bucket, key)
	}
	md, err := decodeMetadata(metaJSON)
	if err != nil {
		return nil, err
	}
	return &Object{Key: key, Body: body, Metadata: md}, nil
}

func (s *PostgresStore) Head(ctx context.Context, bucket, key string) (Metadata, error) {
	metrics.BlobRequestTotal.WithLabelValues("postgres", "head").Inc()
	var metaJSON string
	err := s.pool.QueryRow(ctx,
		`SELECT metadata::text FROM blob_objects WHERE bucket = $1 AND key = $2`,
		bucket, key).Scan(&metaJSON)
	if err != nil {
		return nil, notFoundOr(err, bucket, key)
	}
	return decodeMetadata(metaJSON)
}

func (s *PostgresStore) Delete(ctx context.Context, bucket, key string) error {
	metrics.BlobRequestTotal.WithLabelValues("postgres", "delete").Inc()
	tag, err := s.pool.Exec(ctx, `DELETE FROM blob_objects WHERE bucket = $1 AND key = $2`, bucket, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("object %s/%s: %w", bucket, key, ErrNotFound)
	}
	return nil
}

// ListPage 多取一行判断是否还有下一页；token 为上一页最后一个键
func (s *PostgresStore) ListPage(ctx context.Context, bucket, prefix, token string) (*ListPage, error) {
	metrics.BlobRequestTotal.WithLabelValues("postgres", "list").Inc()
	rows, err := s.pool.Query(ctx,
		`SELECT key FROM blob_objects
		 WHERE bucket = $1 AND starts_with(key, $2) AND key > $3
		 ORDER BY key
		 LIMIT $4`,
		bucket, prefix, token, s.pageSize+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0, s.pageSize)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &ListPage{}
	if len(keys) > s.pageSize {
		keys = keys[:s.pageSize]
		page.NextToken = keys[len(keys)-1]
	}
	page.Keys = keys
	return page, nil
}

// Close 关闭连接池
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func notFoundOr(err error, bucket, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("object %s/%s: %w", bucket, key, ErrNotFound)
	}
	return err
}

func decodeMetadata(raw string) (Metadata, error) {
	md := Metadata{}
	if len(raw) == 0 {
		return md, nil
	}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return md, nil
}
