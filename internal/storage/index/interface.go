package index

import (
	"context"
)

// Index logical id -> physical key 侧表；同一 id 可记录多个键，以便读路径检测重复
type Index interface {
	// Add 记录 id 对应的物理键（幂等）
	Add(ctx context.Context, scope, id, key string) error
	// Remove 移除 id 对应的物理键（幂等）
	Remove(ctx context.Context, scope, id, key string) error
	// Keys 返回 id 对应的全部物理键，按字典序；不存在返回空切片
	Keys(ctx context.Context, scope, id string) ([]string, error)
	// Close 关闭连接
	Close() error
}

// Scope 由 bucket 与已规范化的 prefix 组成，区分同一侧表中的不同仓库
func Scope(bucket, prefix string) string {
	return bucket + "/" + prefix
}
