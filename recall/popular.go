package recall

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
	"github.com/rushteam/bookrec/store"
)

// Popular 是热门书召回源，作为无邻居用户的冷启动兜底。
//   - 优先从 BookCatalog.ListPopular 读取（置信度降序、出版年份次序）
//   - 其次从 KeyValueStore 的有序集合读取（ZRange 按热门分降序）
//   - 已读的书（含哨兵行）在源内排除
//
// 冷启动物品没有邻居依据：Score 与置信度都为 0，
// 不携带贡献明细，解释环节会给出通用文案。
// Popular 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popular struct {
	Catalog core.BookCatalog
	Ratings core.RatingSource

	// Store + Key 是 ZSET 兜底：Catalog 不可用时按热门分取 TopN
	Store store.Store
	Key   string

	// Limit 返回的热门书数量上限，默认 50
	Limit int
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Popular) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	limit := r.Limit
	if limit <= 0 {
		limit = 50
	}
	// 深分页时扩大候选池：offset+limit 超过默认池大小也要能出页
	if rctx != nil {
		if need := rctx.ParamInt("offset", 0) + rctx.ParamInt("limit", 0); need > limit {
			limit = need
		}
	}

	// 已读排除集合（匿名请求时为空）
	excluded := make(map[string]bool)
	if r.Ratings != nil && rctx != nil && rctx.UserID != "" {
		readIDs, err := r.Ratings.GetRatedBookIDs(ctx, rctx.UserID)
		if err != nil {
			return nil, err
		}
		for _, bookID := range readIDs {
			excluded[bookID] = true
		}
	}

	out := make([]*core.Item, 0, limit)

	if r.Catalog != nil {
		// 多取一些，排除已读后仍能凑够 limit
		books, err := r.Catalog.ListPopular(ctx, limit+len(excluded))
		if err != nil {
			return nil, err
		}
		for _, b := range books {
			if b == nil || excluded[b.ID] {
				continue
			}
			it := core.NewItem(b.ID)
			it.Meta[core.MetaBook] = b
			it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
			out = append(out, it)
			if len(out) >= limit {
				break
			}
		}
		return out, nil
	}

	// ZSET 兜底
	if r.Store != nil && r.Key != "" {
		if kvStore, ok := r.Store.(store.KeyValueStore); ok {
			members, err := kvStore.ZRange(ctx, r.Key, 0, int64(limit+len(excluded))-1)
			if err != nil {
				return nil, err
			}
			for _, bookID := range members {
				if excluded[bookID] {
					continue
				}
				it := core.NewItem(bookID)
				it.PutLabel("recall_source", utils.Label{Value: "popular", Source: "recall"})
				out = append(out, it)
				if len(out) >= limit {
					break
				}
			}
		}
	}

	return out, nil
}
