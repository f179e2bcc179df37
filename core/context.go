package core

import (
	"sync"

	"github.com/rushteam/bookrec/pkg/utils"
)

// RecommendContext 承载用户/场景/请求级信息，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// Filters 请求级内容过滤条件；各过滤 Node 从这里读取，
	// Pipeline 本身可保持静态装配。
	Filters *RecommendationFilters

	// Labels 是用户级标签，可驱动整个 Pipeline 行为
	// 例如：新用户、冷启动、重度读者等
	Labels map[string]utils.Label

	// Params 请求级上下文参数：offset / limit / 实时特征等
	Params map[string]any

	memoMu sync.Mutex
	memo   map[string]any
}

// Memo 返回请求级缓存中 key 对应的值，未命中时调用 load 计算并缓存。
// 逐物品重复发起的查询（如已读集合）在一次请求内只回源一次。
func (rctx *RecommendContext) Memo(key string, load func() (any, error)) (any, error) {
	rctx.memoMu.Lock()
	defer rctx.memoMu.Unlock()

	if v, ok := rctx.memo[key]; ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return nil, err
	}
	if rctx.memo == nil {
		rctx.memo = make(map[string]any)
	}
	rctx.memo[key] = v
	return v, nil
}

// PutLabel 写入用户级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取用户级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}

// ParamInt 从 Params 读取整型参数（YAML/JSON 解析后可能是 int 或 float64）。
func (rctx *RecommendContext) ParamInt(key string, defaultVal int) int {
	if rctx.Params == nil {
		return defaultVal
	}
	switch v := rctx.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultVal
	}
}
