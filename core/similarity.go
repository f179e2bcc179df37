package core

import "context"

// SimilarityEdge 是一条有向相似边（user_id → neighbor_id）。
//
// 有向且实践上不对称：每个用户的边集独立截断为 TopK，
// edge(A→B) 存在不代表 edge(B→A) 存在。
//
// 不变式：每条持久化的边满足 OverlapCount >= 配置的 min_overlap。
type SimilarityEdge struct {
	UserID     string `json:"user_id"`
	NeighborID string `json:"neighbor_id"`

	// Raw 原始相似度 ∈ [-1,1]（Pearson 相关或中心化余弦）
	Raw float64 `json:"raw_similarity"`

	// OverlapCount 共同评分的书数
	OverlapCount int `json:"overlap_count"`

	// Adjusted 显著性加权后的相似度：raw * overlap/(overlap+shrinkage)。
	// 排序与加权平均实际使用的值。
	Adjusted float64 `json:"adjusted_similarity"`
}

// Contribution 是一条邻居对某本书预测评分的贡献（请求级临时数据，不持久化）。
type Contribution struct {
	NeighborID string  `json:"neighbor_id"`
	Similarity float64 `json:"similarity"`
	Rating     float64 `json:"rating"`
}

// SimilarityStore 是相似边存储的领域接口。
//
// 写入纪律：某用户的边永远整组替换（delete+insert），单事务内完成；
// 同一用户的两个并发写入方必须串行（single-writer-per-user），
// 批量路径与单用户路径不得对同一用户并发执行。
type SimilarityStore interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// ReplaceEdges 事务性整组替换某用户的相似边（幂等全量替换）。
	// edges 传空表示清空该用户的边。
	ReplaceEdges(ctx context.Context, userID string, edges []SimilarityEdge) error

	// GetEdges 按 Adjusted 降序返回某用户的相似边：
	// 只返回 Adjusted > minSimilarity 的边，最多 limit 条（limit <= 0 不限）。
	GetEdges(ctx context.Context, userID string, minSimilarity float64, limit int) ([]SimilarityEdge, error)
}
