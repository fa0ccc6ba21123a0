package docrepo

import (
	"strconv"
	"strings"
	"time"
)

const idSegmentPrefix = "id="

// Partition 物理键中的一个分区段 name=value
type Partition struct {
	Name  string
	Value string
}

// PartitionFunc 在写入时计算分区段
type PartitionFunc func() []Partition

// BuildKey 拼接 name=value/.../id=<id>，不含仓库 prefix
func BuildKey(partitions []Partition, id string) string {
	var b strings.Builder
	for _, p := range partitions {
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(p.Value)
		b.WriteByte('/')
	}
	b.WriteString(idSegmentPrefix)
	b.WriteString(id)
	return b.String()
}

// DatePartitions 返回 t 在 UTC 下的 year/month/day；月与日不补零
func DatePartitions(t time.Time) []Partition {
	t = t.UTC()
	return []Partition{
		{Name: "year", Value: strconv.Itoa(t.Year())},
		{Name: "month", Value: strconv.Itoa(int(t.Month()))},
		{Name: "day", Value: strconv.Itoa(t.Day())},
	}
}

// UTCDatePartitioner 每次调用只读取一次时钟，三个分区段相互一致
func UTCDatePartitioner(now func() time.Time) PartitionFunc {
	if now == nil {
		now = time.Now
	}
	return func() []Partition {
		return DatePartitions(now())
	}
}

// IDFromKey 从物理键的最后一段 id=<id> 解析 logical id
func IDFromKey(key string) (string, bool) {
	seg := key
	if i := strings.LastIndexByte(key, '/'); i >= 0 {
		seg = key[i+1:]
	}
	if !strings.HasPrefix(seg, idSegmentPrefix) {
		return "", false
	}
	return strings.TrimPrefix(seg, idSegmentPrefix), true
}

// NormalizePrefix 非空 prefix 规范化为以单个 / 结尾
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
