package docrepo

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"doc-repository/internal/storage/index"
	"doc-repository/internal/storage/object"
	"doc-repository/pkg/metrics"
	"doc-repository/pkg/utils"
)

const defaultScanConcurrency = 8

// Locator 将 logical id 翻译为零个、一个或多个物理键
type Locator interface {
	Locate(ctx context.Context, id string) ([]string, error)
}

// IndexWriter 需要在写入/删除时同步维护的 Locator（如侧表索引）
type IndexWriter interface {
	Record(ctx context.Context, id, key string) error
	Forget(ctx context.Context, id, key string) error
}

// MetadataLocator 通过列举 prefix 下全部键并逐个读取元数据来定位。
// 每次 Locate 都是 O(n) 扫描，n 为仓库中对象总数。
type MetadataLocator struct {
	store       object.Store
	bucket      string
	prefix      string
	concurrency int
	limiter     *rate.Limiter
}

// NewMetadataLocator concurrency<=0 使用默认 8；limiter 可为 nil
func NewMetadataLocator(store object.Store, bucket, prefix string, concurrency int, limiter *rate.Limiter) *MetadataLocator {
	return &MetadataLocator{
		store:       store,
		bucket:      bucket,
		prefix:      prefix,
		concurrency: utils.PositiveOr(concurrency, defaultScanConcurrency),
		limiter:     limiter,
	}
}

// Locate 按元数据 id 过滤
func (l *MetadataLocator) Locate(ctx context.Context, id string) ([]string, error) {
	return l.find(ctx, object.MetadataKeyID, id)
}

// FindByMetadata 返回 prefix 下元数据 metadataKey 等于 metadataValue 的全部键（字典序）
func FindByMetadata(ctx context.Context, store object.Store, bucket, prefix, metadataKey, metadataValue string) ([]string, error) {
	return NewMetadataLocator(store, bucket, prefix, 0, nil).find(ctx, metadataKey, metadataValue)
}

func (l *MetadataLocator) find(ctx context.Context, metadataKey, metadataValue string) ([]string, error) {
	var matches []string
	var cur Cursor
	for !cur.Done() {
		keys, err := cur.Next(ctx, l.store, l.bucket, l.prefix)
		if err != nil {
			return nil, err
		}
		hits, err := l.scanPage(ctx, keys, metadataKey, metadataValue)
		if err != nil {
			return nil, err
		}
		matches = append(matches, hits...)
	}
	return matches, nil
}

// scanPage 并发 Head 一页键，保持原有顺序；列举后被删除的键直接跳过
func (l *MetadataLocator) scanPage(ctx context.Context, keys []string, metadataKey, metadataValue string) ([]string, error) {
	matched := make([]bool, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			if l.limiter != nil {
				if err := l.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			md, err := l.store.Head(gctx, l.bucket, key)
			if err != nil {
				if errors.Is(err, object.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("head %s: %w", key, err)
			}
			matched[i] = md[metadataKey] == metadataValue
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	metrics.LocatorScannedKeys.Add(float64(len(keys)))

	var hits []string
	for i, ok := range matched {
		if ok {
			hits = append(hits, keys[i])
		}
	}
	return hits, nil
}

// IndexLocator 由侧表直接给出物理键，查找代价与仓库规模无关
type IndexLocator struct {
	idx   index.Index
	scope string
}

// NewIndexLocator scope 通常为 index.Scope(bucket, prefix)
func NewIndexLocator(idx index.Index, scope string) *IndexLocator {
	return &IndexLocator{idx: idx, scope: scope}
}

func (l *IndexLocator) Locate(ctx context.Context, id string) ([]string, error) {
	return l.idx.Keys(ctx, l.scope, id)
}

func (l *IndexLocator) Record(ctx context.Context, id, key string) error {
	return l.idx.Add(ctx, l.scope, id, key)
}

func (l *IndexLocator) Forget(ctx context.Context, id, key string) error {
	return l.idx.Remove(ctx, l.scope, id, key)
}

// Rebuild 扫描 prefix 下全部对象，按元数据 id 回填侧表；用于从元数据扫描迁移到侧表。
// 缺少 id 元数据的对象被跳过。返回回填条数。
func (l *IndexLocator) Rebuild(ctx context.Context, store object.Store, bucket, prefix string) (int, error) {
	n := 0
	for key, err := range ListKeys(ctx, store, bucket, prefix) {
		if err != nil {
			return n, err
		}
		md, err := store.Head(ctx, bucket, key)
		if err != nil {
			if errors.Is(err, object.ErrNotFound) {
				continue
			}
			return n, fmt.Errorf("head %s: %w", key, err)
		}
		id, ok := md.ID()
		if !ok {
			continue
		}
		if err := l.Record(ctx, id, key); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
