package docrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"doc-repository/internal/storage/index"
	"doc-repository/internal/storage/object"
	pkgerrors "doc-repository/pkg/errors"
	"doc-repository/pkg/log"
	"doc-repository/pkg/metrics"
	"doc-repository/pkg/tracing"
	"doc-repository/pkg/utils"
)

// Coordinates 写入的物理位置
type Coordinates struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Document list 返回的条目；Key 已去掉仓库 prefix
type Document[T any] struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Data T      `json:"data"`
}

// Repository 按 logical id 存取类型为 T 的 JSON 文档。
// 不做跨操作的原子性保证，可被多个 goroutine 并发使用。
type Repository[T any] struct {
	store           object.Store
	bucket          string
	prefix          string
	locator         Locator
	partitions      PartitionFunc
	logger          *log.Logger
	listConcurrency int
	limiter         *rate.Limiter
}

type listSlot[T any] struct {
	doc Document[T]
	ok  bool
}

// New 创建仓库；bucket 必填，prefix 规范化为以单个 / 结尾
func New[T any](ctx context.Context, bucket string, opts ...Option) (*Repository[T], error) {
	if bucket == "" {
		return nil, pkgerrors.InvalidArgf("bucket must not be empty")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.store == nil {
		s, err := object.NewS3Store(ctx, object.S3Options{})
		if err != nil {
			return nil, pkgerrors.Wrap(err, "create default object store")
		}
		o.store = s
	}
	if o.partitions == nil {
		o.partitions = UTCDatePartitioner(time.Now)
	}
	if o.logger == nil {
		o.logger = log.Discard()
	}
	o.listConcurrency = utils.PositiveOr(o.listConcurrency, defaultListConcurrency)

	prefix := NormalizePrefix(o.prefix)
	locator := o.locator
	switch {
	case locator != nil:
	case o.idx != nil:
		locator = NewIndexLocator(o.idx, index.Scope(bucket, prefix))
	default:
		locator = NewMetadataLocator(o.store, bucket, prefix, o.listConcurrency, o.limiter)
	}

	return &Repository[T]{
		store:           o.store,
		bucket:          bucket,
		prefix:          prefix,
		locator:         locator,
		partitions:      o.partitions,
		logger:          o.logger,
		listConcurrency: o.listConcurrency,
		limiter:         o.limiter,
	}, nil
}

// Bucket 仓库所在 bucket
func (r *Repository[T]) Bucket() string { return r.bucket }

// Prefix 规范化后的 prefix
func (r *Repository[T]) Prefix() string { return r.prefix }

// Locator 当前使用的定位实现
func (r *Repository[T]) Locator() Locator { return r.locator }

// Save 以当前分区生成新的物理键并写入，不查找也不覆盖该 id 已有的物理对象。
// 同一 id 跨分区边界再次保存会留下旧对象，之后 Get/Delete 将返回 MultipleObjectsFoundError。
func (r *Repository[T]) Save(ctx context.Context, id string, data T) (coords Coordinates, err error) {
	if err := validateID(id); err != nil {
		return Coordinates{}, err
	}
	started := time.Now()
	ctx, span := tracing.StartRepoSpan(ctx, "save", r.bucket, r.prefix, id)
	defer func() {
		tracing.EndSpan(span, err)
		metrics.ObserveOp("save", resultOf(err), started)
	}()

	body, err := json.Marshal(data)
	if err != nil {
		return Coordinates{}, pkgerrors.Wrapf(err, "encode document %q", id)
	}
	key := r.prefix + BuildKey(r.partitions(), id)
	if err := r.store.Put(ctx, r.bucket, key, body, object.Metadata{object.MetadataKeyID: id}); err != nil {
		return Coordinates{}, pkgerrors.Wrapf(err, "put %s", key)
	}
	if w, ok := r.locator.(IndexWriter); ok {
		if err := w.Record(ctx, id, key); err != nil {
			r.logger.WarnContext(ctx, "object written but index not updated", "bucket", r.bucket, "key", key, "error", err)
			return Coordinates{}, pkgerrors.Wrapf(err, "index %s", key)
		}
	}
	r.logger.DebugContext(ctx, "document saved", "bucket", r.bucket, "key", key, "id", id, "bytes", len(body))
	return Coordinates{Bucket: r.bucket, Key: key}, nil
}

// Get 返回 id 对应的文档；不存在时返回 ok=false 且 err=nil。
// 定位到多个物理对象时返回 *MultipleObjectsFoundError。
func (r *Repository[T]) Get(ctx context.Context, id string) (data T, ok bool, err error) {
	if err := validateID(id); err != nil {
		return data, false, err
	}
	started := time.Now()
	ctx, span := tracing.StartRepoSpan(ctx, "get", r.bucket, r.prefix, id)
	defer func() {
		tracing.EndSpan(span, err)
		result := resultOf(err)
		if err == nil && !ok {
			result = "absent"
		}
		metrics.ObserveOp("get", result, started)
	}()

	key, found, err := r.locateOne(ctx, id)
	if err != nil || !found {
		return data, false, err
	}

	obj, err := r.store.Get(ctx, r.bucket, key)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			r.logger.DebugContext(ctx, "located object vanished before read", "key", key, "id", id)
			return data, false, nil
		}
		return data, false, pkgerrors.Wrapf(err, "get %s", key)
	}
	if err := json.Unmarshal(obj.Body, &data); err != nil {
		return data, false, pkgerrors.Wrapf(err, "decode document %s", key)
	}
	return data, true, nil
}

// Delete 删除 id 对应的物理对象；不存在时直接成功（幂等）。
// 定位到多个物理对象时不删除任何对象，返回 *MultipleObjectsFoundError，清理请使用 Purge。
func (r *Repository[T]) Delete(ctx context.Context, id string) (err error) {
	if err := validateID(id); err != nil {
		return err
	}
	started := time.Now()
	ctx, span := tracing.StartRepoSpan(ctx, "delete", r.bucket, r.prefix, id)
	defer func() {
		tracing.EndSpan(span, err)
		metrics.ObserveOp("delete", resultOf(err), started)
	}()

	key, found, err := r.locateOne(ctx, id)
	if err != nil || !found {
		return err
	}
	return r.removeKey(ctx, id, key)
}

// Purge 删除 id 定位到的全部物理对象，用于人工处理重复对象。
// 中途失败时可能只删除了一部分，可直接重试。返回本次删除的数量。
func (r *Repository[T]) Purge(ctx context.Context, id string) (n int, err error) {
	if err := validateID(id); err != nil {
		return 0, err
	}
	started := time.Now()
	ctx, span := tracing.StartRepoSpan(ctx, "purge", r.bucket, r.prefix, id)
	defer func() {
		tracing.EndSpan(span, err)
		metrics.ObserveOp("purge", resultOf(err), started)
	}()

	keys, err := r.locator.Locate(ctx, id)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "locate %q", id)
	}
	for _, key := range keys {
		if err := r.removeKey(ctx, id, key); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "purged physical objects", "bucket", r.bucket, "id", id, "count", n)
	}
	return n, nil
}

// Locate 返回 id 当前定位到的物理键，不做唯一性检查
func (r *Repository[T]) Locate(ctx context.Context, id string) ([]string, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return r.locator.Locate(ctx, id)
}

// List 列举 prefix 下全部文档（按键字典序）。
// 列举后被删除或无法解析的条目被丢弃而不是使整个调用失败；列举本身的传输错误直接返回。
// 并发修改时不保证结果完整。
func (r *Repository[T]) List(ctx context.Context) (docs []Document[T], err error) {
	started := time.Now()
	ctx, span := tracing.StartRepoSpan(ctx, "list", r.bucket, r.prefix, "")
	defer func() {
		tracing.EndSpan(span, err)
		metrics.ObserveOp("list", resultOf(err), started)
	}()

	var slots []*listSlot[T]
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.listConcurrency)

	var listErr error
	for key, err := range ListKeys(gctx, r.store, r.bucket, r.prefix) {
		if err != nil {
			listErr = err
			break
		}
		slot := new(listSlot[T])
		slots = append(slots, slot)
		g.Go(func() error {
			return r.fetchInto(gctx, key, slot)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if listErr != nil {
		return nil, pkgerrors.Wrapf(listErr, "list %s/%s", r.bucket, r.prefix)
	}

	docs = make([]Document[T], 0, len(slots))
	for _, slot := range slots {
		if slot.ok {
			docs = append(docs, slot.doc)
		}
	}
	return docs, nil
}

// fetchInto 读取并解析一个键；只有 context 取消会作为错误返回，其余失败留空 slot
func (r *Repository[T]) fetchInto(ctx context.Context, key string, slot *listSlot[T]) error {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	obj, err := r.store.Get(ctx, r.bucket, key)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		reason := "fetch"
		if errors.Is(err, object.ErrNotFound) {
			reason = "vanished"
		}
		metrics.ListDroppedTotal.WithLabelValues(reason).Inc()
		r.logger.WarnContext(ctx, "dropping list entry", "key", key, "reason", reason, "error", err)
		return nil
	}

	var data T
	if err := json.Unmarshal(obj.Body, &data); err != nil {
		metrics.ListDroppedTotal.WithLabelValues("decode").Inc()
		r.logger.WarnContext(ctx, "dropping list entry", "key", key, "reason", "decode", "error", err)
		return nil
	}

	id, ok := obj.Metadata.ID()
	if !ok {
		id, _ = IDFromKey(key)
	}
	slot.doc = Document[T]{
		ID:   id,
		Key:  strings.TrimPrefix(key, r.prefix),
		Data: data,
	}
	slot.ok = true
	return nil
}

// locateOne 0 个返回 found=false；多于 1 个返回 *MultipleObjectsFoundError
func (r *Repository[T]) locateOne(ctx context.Context, id string) (string, bool, error) {
	keys, err := r.locator.Locate(ctx, id)
	if err != nil {
		return "", false, pkgerrors.Wrapf(err, "locate %q", id)
	}
	switch len(keys) {
	case 0:
		return "", false, nil
	case 1:
		return keys[0], true, nil
	default:
		r.logger.WarnContext(ctx, "multiple physical objects for one id", "bucket", r.bucket, "id", id, "keys", keys)
		return "", false, &MultipleObjectsFoundError{ID: id, Keys: keys}
	}
}

// removeKey 删除单个物理键；并发删除导致的 not found 视为已完成
func (r *Repository[T]) removeKey(ctx context.Context, id, key string) error {
	if err := r.store.Delete(ctx, r.bucket, key); err != nil && !errors.Is(err, object.ErrNotFound) {
		return pkgerrors.Wrapf(err, "delete %s", key)
	}
	if w, ok := r.locator.(IndexWriter); ok {
		if err := w.Forget(ctx, id, key); err != nil {
			return pkgerrors.Wrapf(err, "unindex %s", key)
		}
	}
	r.logger.DebugContext(ctx, "physical object deleted", "bucket", r.bucket, "key", key, "id", id)
	return nil
}

func resultOf(err error) string {
	var multi *MultipleObjectsFoundError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &multi):
		return "multiple"
	default:
		return "error"
	}
}

// String 便于日志输出
func (c Coordinates) String() string {
	return fmt.Sprintf("%s/%s", c.Bucket, c.Key)
}
