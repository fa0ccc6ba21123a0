package index

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"doc-repository/pkg/config"
)

// NewIndex 根据配置创建侧表；type 为空或 none 时返回 nil, nil，表示使用元数据扫描
func NewIndex(ctx context.Context, cfg config.IndexConfig) (Index, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryIndex(), nil
	case "redis":
		client := redis.NewClient(RedisOptionsFromIndexConfig(cfg))
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisIndex(client, cfg.Namespace), nil
	default:
		return nil, fmt.Errorf("不支持的索引类型: %s", cfg.Type)
	}
}
