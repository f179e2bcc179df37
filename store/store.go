// Package store 提供 core.Store / core.KeyValueStore 的具体实现。
// 接口定义在 core 包（依赖倒置）；本包提供内存与 Redis 两种后端。
//
// 使用场景：
//   - 评分/相似边/书目等适配器的底层 KV
//   - 热门书榜的有序集合（冷启动兜底）
//   - 批任务断点（checkpoint）
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	var kv core.KeyValueStore = store.NewMemoryStore()
package store

import "github.com/rushteam/bookrec/core"

// 包内别名，方便实现文件直接引用。
type Store = core.Store
type KeyValueStore = core.KeyValueStore

var (
	ErrNotFound     = core.ErrStoreNotFound
	ErrNotSupported = core.ErrStoreNotSupported
)
