package metrics

import (
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供 CLI/服务注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		RepoOpDuration, RepoOpTotal,
		LocatorScannedKeys, ListDroppedTotal,
		BlobRequestTotal,
	)
}

// RepoOpDuration 仓库操作耗时（秒）
var RepoOpDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "docrepo_op_duration_seconds",
		Help:    "仓库操作耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"op"},
)

// RepoOpTotal 仓库操作总数（按结果）
var RepoOpTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docrepo_op_total",
		Help: "仓库操作总数",
	},
	[]string{"op", "result"}, // ok | absent | multiple | error
)

// LocatorScannedKeys 元数据扫描检查的物理键数；随仓库总量线性增长
var LocatorScannedKeys = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "docrepo_locator_scanned_keys_total",
		Help: "元数据定位扫描过的物理键总数",
	},
)

// ListDroppedTotal list 过程中因已删除或无法解析而丢弃的条目数
var ListDroppedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docrepo_list_dropped_total",
		Help: "list 丢弃的条目数",
	},
	[]string{"reason"}, // vanished | decode | fetch
)

// BlobRequestTotal 对象存储调用次数
var BlobRequestTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "docrepo_blob_requests_total",
		Help: "对象存储调用次数",
	},
	[]string{"backend", "call"},
)

// ObserveOp 记录一次仓库操作的耗时与结果
func ObserveOp(op, result string, started time.Time) {
	RepoOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
	RepoOpTotal.WithLabelValues(op, result).Inc()
}

// WritePrometheus 将 Prometheus 文本格式写入 w
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
