package docrepo

import (
	"time"

	"golang.org/x/time/rate"

	"doc-repository/internal/storage/index"
	"doc-repository/internal/storage/object"
	"doc-repository/pkg/log"
	"doc-repository/pkg/utils"
)

const defaultListConcurrency = 8

type options struct {
	prefix          string
	store           object.Store
	locator         Locator
	idx             index.Index
	partitions      PartitionFunc
	logger          *log.Logger
	listConcurrency int
	limiter         *rate.Limiter
}

// Option 仓库构造参数
type Option func(*options)

// WithPrefix 仓库在 bucket 内独占的前缀
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithStore 注入对象存储；未注入时使用运行环境默认凭证的 S3 客户端
func WithStore(store object.Store) Option {
	return func(o *options) { o.store = store }
}

// WithLocator 替换默认的元数据扫描定位
func WithLocator(l Locator) Option {
	return func(o *options) { o.locator = l }
}

// WithIndex 使用侧表定位，作用域为该仓库的 bucket+prefix
func WithIndex(idx index.Index) Option {
	return func(o *options) { o.idx = idx }
}

// WithPartitioner 替换默认的 UTC 日期分区
func WithPartitioner(fn PartitionFunc) Option {
	return func(o *options) { o.partitions = fn }
}

// WithClock 默认日期分区使用的时钟
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.partitions = UTCDatePartitioner(now) }
}

// WithLogger 注入日志
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithListConcurrency list 拉取正文及元数据扫描的并发上限
func WithListConcurrency(n int) Option {
	return func(o *options) { o.listConcurrency = n }
}

// WithRateLimit 读请求（list 拉取、元数据扫描）限流；qps<=0 不限流
func WithRateLimit(qps float64, burst int) Option {
	return func(o *options) {
		if qps <= 0 {
			o.limiter = nil
			return
		}
		o.limiter = rate.NewLimiter(rate.Limit(qps), utils.PositiveOr(burst, 1))
	}
}
