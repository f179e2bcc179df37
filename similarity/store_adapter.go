package similarity

import (
	"context"
	"encoding/json"

	"github.com/rushteam/bookrec/core"
)

// StoreSimilarityAdapter 是基于 core.Store 的相似边存储适配器，
// 实现 core.SimilarityStore 接口。
//
// 存储布局：{KeyPrefix}:user:{userID} → JSON []core.SimilarityEdge（Adjusted 降序）。
// 一个用户的全部边放在单个 key 内，一次 Set 即整组替换，
// 天然满足"delete+insert 单事务"的全量替换语义；
// 不同用户互不相扰（逐用户提交、逐用户回滚）。
type StoreSimilarityAdapter struct {
	store core.Store

	// KeyPrefix 存储 key 前缀，默认 "sim"
	KeyPrefix string
}

// NewStoreSimilarityAdapter 创建相似边存储适配器。
func NewStoreSimilarityAdapter(s core.Store, keyPrefix string) *StoreSimilarityAdapter {
	if keyPrefix == "" {
		keyPrefix = "sim"
	}
	return &StoreSimilarityAdapter{store: s, KeyPrefix: keyPrefix}
}

func (a *StoreSimilarityAdapter) Name() string { return "store_similarity_adapter" }

func (a *StoreSimilarityAdapter) userKey(userID string) string {
	return a.KeyPrefix + ":user:" + userID
}

// ReplaceEdges 整组替换某用户的相似边。写入前按 Adjusted 降序排序，
// 保证读取侧的有序不变式；空边集等价于清空。
func (a *StoreSimilarityAdapter) ReplaceEdges(ctx context.Context, userID string, edges []core.SimilarityEdge) error {
	if len(edges) == 0 {
		err := a.store.Delete(ctx, a.userKey(userID))
		if err != nil && core.IsStoreNotFound(err) {
			return nil
		}
		return err
	}

	sorted := make([]core.SimilarityEdge, len(edges))
	copy(sorted, edges)
	sortEdges(sorted)

	data, err := json.Marshal(sorted)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, a.userKey(userID), data)
}

// GetEdges 按 Adjusted 降序返回 Adjusted > minSimilarity 的边，最多 limit 条。
func (a *StoreSimilarityAdapter) GetEdges(ctx context.Context, userID string, minSimilarity float64, limit int) ([]core.SimilarityEdge, error) {
	data, err := a.store.Get(ctx, a.userKey(userID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var edges []core.SimilarityEdge
	if err := json.Unmarshal(data, &edges); err != nil {
		return nil, err
	}

	out := make([]core.SimilarityEdge, 0, len(edges))
	for _, e := range edges {
		if e.Adjusted <= minSimilarity {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// 确保实现 core.SimilarityStore 接口
var _ core.SimilarityStore = (*StoreSimilarityAdapter)(nil)
