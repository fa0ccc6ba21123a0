// Package utils 通用小工具，不依赖 internal
package utils

// CoalesceString 返回第一个非空字符串
func CoalesceString(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

// PositiveOr 若 v<=0 则返回 def；配置中的并发数、页大小、突发量等均按此取默认
func PositiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
