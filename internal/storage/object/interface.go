package object

import (
	"context"

	pkgerrors "doc-repository/pkg/errors"
)

// ErrNotFound 对象不存在；各后端统一映射到 pkg/errors.ErrNotFound
var ErrNotFound = pkgerrors.ErrNotFound

// MetadataKeyID 写入时记录 logical id 的元数据键
const MetadataKeyID = "id"

// Store 对象存储接口：只提供扁平键空间、按前缀分页列举与对象级元数据
type Store interface {
	// Put 单次原子写入对象正文与元数据，已存在则覆盖
	Put(ctx context.Context, bucket, key string, body []byte, metadata Metadata) error
	// Get 读取正文与元数据；不存在返回 ErrNotFound
	Get(ctx context.Context, bucket, key string) (*Object, error)
	// Head 仅读取元数据，不传输正文；不存在返回 ErrNotFound
	Head(ctx context.Context, bucket, key string) (Metadata, error)
	// Delete 删除对象；后端可能对不存在的键返回 ErrNotFound，调用方应视为已完成
	Delete(ctx context.Context, bucket, key string) error
	// ListPage 按前缀列举一页键（字典序）；token 为空表示从头开始，返回 NextToken 为空表示已列举完
	ListPage(ctx context.Context, bucket, prefix, token string) (*ListPage, error)
	// Close 关闭存储连接
	Close() error
}

// Metadata 对象元数据
type Metadata map[string]string

// ID 返回 logical id 元数据
func (m Metadata) ID() (string, bool) {
	if m == nil {
		return "", false
	}
	id, ok := m[MetadataKeyID]
	return id, ok
}

// Clone 返回副本，nil 保持 nil
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Object 对象正文与元数据
type Object struct {
	Key      string
	Body     []byte
	Metadata Metadata
}

// ListPage 单页列举结果
type ListPage struct {
	Keys      []string
	NextToken string
}
