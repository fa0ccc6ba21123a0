package object

import (
	"context"
	"fmt"

	"doc-repository/pkg/config"
)

// NewStore 根据配置创建对象存储
func NewStore(ctx context.Context, cfg config.ObjectConfig) (Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(cfg.PageSize), nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("storage.object.dsn 不能为空（type=postgres）")
		}
		s, err := NewPostgresStore(ctx, cfg.DSN, cfg.PageSize)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
			PageSize:  cfg.PageSize,
		})
	default:
		return nil, fmt.Errorf("不支持的对象存储类型: %s", cfg.Type)
	}
}
