// Package docrepo 在只支持前缀列举与对象元数据的对象存储之上，提供按 logical id 存取 JSON 文档的仓库。
//
// 物理键布局：[prefix/]name=value/.../id=<logical id>，分区段（默认 UTC 年/月/日）在写入时计算，
// logical id 同时写入对象元数据 "id"。读路径从不根据分区重建键，而是通过 Locator 发现：
// 默认的 MetadataLocator 会列举 prefix 下的全部键并逐个读取元数据，单次查找的代价随仓库总量线性增长，
// 与结果数量无关；规模较大时应配置 IndexLocator（Redis 侧表）。
//
// 已知限制：Save 总是生成新的物理键。同一 id 跨分区边界（例如跨天）再次保存后会同时存在两个物理对象，
// Get/Delete 会以 MultipleObjectsFoundError 拒绝该 id，需要人工判断后用 Purge 清理。
package docrepo
