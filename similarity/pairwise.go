// Package similarity 实现"读者-读者"相似度的两条计算路径：
//
//   - PairwiseComputer：单用户同步路径（如引导完成后立即计算），
//     在共同评分集合上计算 Pearson 相关，邻居均值按每次配对的 overlap 重算。
//   - BatchMatrixBuilder：离线批路径，构建稀疏用户×书评分矩阵，
//     每行按全部已评条目做一次均值中心化后归一化，逐对稀疏点积得到余弦相似度。
//
// 两条路径是数学上接近但不完全相同的两种近似（稀疏、非完全重叠评分集下有差异），
// 按各自的性能/精度权衡保留为两种定义；显著性加权与 TopK 截断两侧完全一致。
//
// 相似度策略（两条路径统一）：只保留正相似度；负相关邻居对下游加权平均
// 无增益，统一丢弃。
package similarity

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/bookrec/core"
)

// PairwiseComputer 按需计算单个用户与候选邻居的相似边。
//
// 算法流程：
//  1. 取目标用户全部有效评分；不足 MinOverlap 本直接返回空（策略，不是错误）
//  2. 只在目标用户评过的书上做倒排查询，得到候选邻居集合
//  3. 逐个候选：求 overlap 集合 → Pearson 相关 → 显著性加权
//  4. 按 Adjusted 降序截断到 MaxNeighbors
//
// 工程特征：
//   - 纯读计算，无副作用；持久化是单独一步（SaveSimilarities）
//   - 可在同步请求路径内联执行，耗时受共享 overlap 的人群规模约束，
//     规模大时建议调用方加超时或候选上限
type PairwiseComputer struct {
	Ratings core.RatingSource
	Store   core.SimilarityStore

	// Config 引擎参数；nil 时使用默认值
	Config core.EngineConfig
}

func (c *PairwiseComputer) Name() string { return "similarity.pairwise" }

func (c *PairwiseComputer) config() core.EngineConfig {
	if c.Config != nil {
		return c.Config
	}
	return &core.DefaultEngineConfig{}
}

// ComputeForUser 计算目标用户的相似边，按 Adjusted 降序，最多 MaxNeighbors 条。
//
// 不满足前置条件（评分数 < MinOverlap）时返回空列表；
// 相关系数无定义（overlap 上任一侧方差为零）的候选被静默跳过。
func (c *PairwiseComputer) ComputeForUser(ctx context.Context, userID string) ([]core.SimilarityEdge, error) {
	if c.Ratings == nil || userID == "" {
		return nil, nil
	}

	cfg := c.config()
	minOverlap := cfg.MinOverlap()
	shrinkage := float64(cfg.ShrinkageFactor())

	userRatings, err := c.Ratings.GetRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(userRatings) < minOverlap {
		return nil, nil
	}

	// 目标用户均值只算一次（在全部评分上），每个邻居的均值按具体 overlap 重算
	var userMean float64
	userBooks := make([]string, 0, len(userRatings))
	for bookID, r := range userRatings {
		userMean += r
		userBooks = append(userBooks, bookID)
	}
	userMean /= float64(len(userRatings))
	sort.Strings(userBooks)

	candidates, err := c.Ratings.GetCandidateUsers(ctx, userID, userBooks, minOverlap)
	if err != nil {
		return nil, err
	}

	edges := make([]core.SimilarityEdge, 0, len(candidates))
	for _, neighborID := range candidates {
		neighborRatings, err := c.Ratings.GetRatings(ctx, neighborID)
		if err != nil {
			// 单个候选读取失败只影响该候选，不中断整体计算
			continue
		}

		overlap := make([]string, 0, len(userRatings))
		for bookID := range userRatings {
			if _, ok := neighborRatings[bookID]; ok {
				overlap = append(overlap, bookID)
			}
		}
		if len(overlap) < minOverlap {
			continue
		}

		raw, ok := pearsonOnOverlap(userRatings, neighborRatings, overlap, userMean)
		if !ok || math.IsNaN(raw) {
			continue // 相关系数无定义：策略性跳过
		}
		if raw <= 0 {
			continue
		}

		overlapCount := len(overlap)
		adjusted := raw * (float64(overlapCount) / (float64(overlapCount) + shrinkage))

		edges = append(edges, core.SimilarityEdge{
			UserID:       userID,
			NeighborID:   neighborID,
			Raw:          raw,
			OverlapCount: overlapCount,
			Adjusted:     adjusted,
		})
	}

	sortEdges(edges)
	if max := cfg.MaxNeighbors(); len(edges) > max {
		edges = edges[:max]
	}
	return edges, nil
}

// SaveSimilarities 持久化相似边：对该用户整组替换（delete+insert，单事务），
// 幂等：相同输入重复执行得到相同的持久化边集。返回写入条数。
func (c *PairwiseComputer) SaveSimilarities(ctx context.Context, userID string, edges []core.SimilarityEdge) (int, error) {
	if c.Store == nil {
		return 0, core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeUnavailable, "similarity: store not configured")
	}
	if err := c.Store.ReplaceEdges(ctx, userID, edges); err != nil {
		return 0, err
	}
	return len(edges), nil
}

// ComputeAndSave 组合计算与持久化，返回写入条数。
func (c *PairwiseComputer) ComputeAndSave(ctx context.Context, userID string) (int, error) {
	edges, err := c.ComputeForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return c.SaveSimilarities(ctx, userID, edges)
}

// pearsonOnOverlap 在 overlap 集合上计算 Pearson 相关。
// userMean 由调用方给定（目标用户的全局均值）；邻居均值在 overlap 上重算。
// 任一侧标准差为零（常数评分）时相关系数无定义，返回 ok=false。
func pearsonOnOverlap(userRatings, neighborRatings map[string]float64, overlap []string, userMean float64) (float64, bool) {
	if len(overlap) == 0 {
		return 0, false
	}

	var neighborMean float64
	for _, bookID := range overlap {
		neighborMean += neighborRatings[bookID]
	}
	neighborMean /= float64(len(overlap))

	var num, userSq, neighborSq float64
	for _, bookID := range overlap {
		du := userRatings[bookID] - userMean
		dn := neighborRatings[bookID] - neighborMean
		num += du * dn
		userSq += du * du
		neighborSq += dn * dn
	}

	denom := math.Sqrt(userSq) * math.Sqrt(neighborSq)
	if denom == 0 {
		return 0, false
	}
	return num / denom, true
}

// sortEdges 按 Adjusted 降序；相同分数按 NeighborID 升序保证确定性。
func sortEdges(edges []core.SimilarityEdge) {
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Adjusted != edges[j].Adjusted {
			return edges[i].Adjusted > edges[j].Adjusted
		}
		return edges[i].NeighborID < edges[j].NeighborID
	})
}
