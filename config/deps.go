package config

import (
	"sync"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

// Deps 是配置驱动装配时的运行期依赖。
//
// YAML 只能描述 Node 的参数；评分源、相似边存储、书目这类活对象
// 必须由调用方在 BuildPipeline 之前通过 SetDeps 注入，
// 各 Builder 从这里取用（缺失必需依赖时构建报错）。
type Deps struct {
	Ratings    core.RatingSource
	Similarity core.SimilarityStore
	Catalog    core.BookCatalog
	Engine     core.EngineConfig

	// Store 通用 KV/ZSET 后端（热门兜底、屏蔽书单等）
	Store store.Store

	// Features 可选特征服务
	Features core.FeatureService
}

var (
	depsMu      sync.RWMutex
	currentDeps Deps
)

// SetDeps 注入运行期依赖，必须在 BuildPipeline 之前调用。
func SetDeps(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	currentDeps = d
}

// GetDeps 返回当前注入的运行期依赖。
func GetDeps() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return currentDeps
}
