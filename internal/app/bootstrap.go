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

package app

import (
	"context"
	"errors"
	"fmt"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"doc-repository/internal/docrepo"
	"doc-repository/internal/storage/index"
	"doc-repository/internal/storage/object"
	"doc-repository/pkg/config"
	"doc-repository/pkg/log"
	"doc-repository/pkg/secrets"
	"doc-repository/pkg/tracing"
	"doc-repository/pkg/utils"
)

// Bootstrap 统一初始化：日志、链路追踪、对象存储与索引侧表，cmd 内只做参数解析
type Bootstrap struct {
	Config         *config.Config
	Logger         *log.Logger
	ObjectStore    object.Store
	Index          index.Index
	Secrets        secrets.Store
	TracerProvider *sdktrace.TracerProvider
}

// NewBootstrap 根据配置创建 Bootstrap
func NewBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}
	logger, err := log.NewLogger(&log.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化日志 failed: %w", err)
	}
	b := &Bootstrap{Config: cfg, Logger: logger}

	if cfg.Monitoring.Tracing.Enable {
		tp, err := tracing.InitTracer(tracing.OTelConfig{
			ServiceName:    utils.CoalesceString(cfg.Monitoring.Tracing.ServiceName, "doc-repository"),
			ExportEndpoint: cfg.Monitoring.Tracing.ExportEndpoint,
			Insecure:       cfg.Monitoring.Tracing.Insecure,
		})
		if err != nil {
			_ = b.Close(ctx)
			return nil, fmt.Errorf("初始化链路追踪 failed: %w", err)
		}
		b.TracerProvider = tp
	}

	b.Secrets, err = secrets.NewStore(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Address:  cfg.Secrets.Address,
		Token:    cfg.Secrets.Token,
		Mount:    cfg.Secrets.Mount,
		Dir:      cfg.Secrets.Dir,
	})
	if err != nil {
		_ = b.Close(ctx)
		return nil, fmt.Errorf("初始化密钥源 failed: %w", err)
	}

	// 解析后的凭据只传给存储层，不回写 Config
	objectCfg := cfg.Storage.Object
	if objectCfg.DSN, err = secrets.Resolve(ctx, b.Secrets, objectCfg.DSN); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}
	indexCfg := cfg.Storage.Index
	if indexCfg.Password, err = secrets.Resolve(ctx, b.Secrets, indexCfg.Password); err != nil {
		_ = b.Close(ctx)
		return nil, err
	}

	b.ObjectStore, err = object.NewStore(ctx, objectCfg)
	if err != nil {
		_ = b.Close(ctx)
		return nil, fmt.Errorf("初始化对象存储 failed: %w", err)
	}

	b.Index, err = index.NewIndex(ctx, indexCfg)
	if err != nil {
		_ = b.Close(ctx)
		return nil, fmt.Errorf("初始化索引侧表 failed: %w", err)
	}

	logger.Debug("bootstrap ready",
		"object_store", utils.CoalesceString(cfg.Storage.Object.Type, "memory"),
		"index", utils.CoalesceString(cfg.Storage.Index.Type, "none"))
	return b, nil
}

// RepositoryOptions 由配置生成仓库参数
func (b *Bootstrap) RepositoryOptions() []docrepo.Option {
	rc := b.Config.Repository
	opts := []docrepo.Option{
		docrepo.WithStore(b.ObjectStore),
		docrepo.WithPrefix(rc.Prefix),
		docrepo.WithLogger(b.Logger),
		docrepo.WithListConcurrency(utils.PositiveOr(rc.ListConcurrency, 8)),
	}
	if rc.RateLimit > 0 {
		opts = append(opts, docrepo.WithRateLimit(rc.RateLimit, utils.PositiveOr(rc.Burst, utils.PositiveOr(rc.ListConcurrency, 8))))
	}
	if b.Index != nil {
		opts = append(opts, docrepo.WithIndex(b.Index))
	}
	return opts
}

// OpenRepository 按配置创建文档类型为 T 的仓库
func OpenRepository[T any](ctx context.Context, b *Bootstrap) (*docrepo.Repository[T], error) {
	bucket := utils.CoalesceString(b.Config.Repository.Bucket, b.Config.Storage.Object.Bucket)
	return docrepo.New[T](ctx, bucket, b.RepositoryOptions()...)
}

// Close 释放存储连接并刷新 trace
func (b *Bootstrap) Close(ctx context.Context) error {
	var errs []error
	if b.Index != nil {
		errs = append(errs, b.Index.Close())
	}
	if b.ObjectStore != nil {
		errs = append(errs, b.ObjectStore.Close())
	}
	if b.TracerProvider != nil {
		errs = append(errs, b.TracerProvider.Shutdown(ctx))
	}
	errs = append(errs, b.Logger.Close())
	return errors.Join(errs...)
}
