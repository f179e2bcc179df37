package similarity

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/bookrec/core"
)

// BatchStats 是批任务的统计结果。
type BatchStats struct {
	UsersProcessed       int `json:"users_processed"`
	SimilaritiesComputed int `json:"similarities_computed"`
	UsersSkipped         int `json:"users_skipped"`
}

// ProgressFunc 是批任务的进度回调：每处理完一个用户调用一次，
// 仅用于观测（外部 CLI/监控消费），绝不影响计算本身。
type ProgressFunc func(current, total int)

// BatchMatrixBuilder 是离线批路径：一次性为所有符合条件的用户计算相似边。
//
// 算法流程：
//  1. 取 eligible 用户（已授权共享 + 有效评分数 >= MinOverlap）
//  2. 构建稀疏用户×书评分矩阵（CSR + ID↔下标映射）
//  3. 每行在已评条目上做一次均值中心化，再归一化为单位 L2 范数
//  4. 逐对稀疏点积 = 中心化余弦相似度；同一趟双指针重新统计真实 overlap
//     （矩阵相似度值本身不能证明共享信号充足，overlap 必须由下标交集重derive）
//  5. 只保留正相似度、overlap >= MinOverlap 的邻居，显著性加权后
//     按 Adjusted 降序截断到 MaxNeighbors
//  6. 每个用户整组替换持久化（delete+insert 单事务），逐用户提交：
//     单个用户失败只回滚该用户，之前已提交的用户保持有效，任务可安全续跑
//
// 扩展约束：全对计算量为 O(n²)（n 为活跃用户数），设计上作为显式上限对待；
// 规模超出时的近似最近邻检索是预留的扩展点，不在本核心范围内。
type BatchMatrixBuilder struct {
	Ratings core.RatingSource
	Store   core.SimilarityStore

	// Config 引擎参数；nil 时使用默认值
	Config core.EngineConfig

	// Concurrency 提取/持久化阶段的并发度；<= 0 表示单线程。
	// 每个用户只会被一个 goroutine 处理（single-writer-per-user），
	// 批任务与单用户路径不得对同一用户并发执行。
	Concurrency int

	// Checkpoint 可选断点；设置后逐用户记录提交进度，重跑时跳过已提交用户
	Checkpoint *Checkpoint

	// Progress 可选进度回调
	Progress ProgressFunc
}

func (b *BatchMatrixBuilder) Name() string { return "similarity.batch" }

func (b *BatchMatrixBuilder) config() core.EngineConfig {
	if b.Config != nil {
		return b.Config
	}
	return &core.DefaultEngineConfig{}
}

// ComputeAll 为所有 eligible 用户计算并持久化相似边，返回统计。
// 这是唯一持有大型内存结构（评分矩阵）的操作，设计为单个长任务运行。
func (b *BatchMatrixBuilder) ComputeAll(ctx context.Context) (*BatchStats, error) {
	stats := &BatchStats{}
	if b.Ratings == nil || b.Store == nil {
		return stats, core.NewDomainError(core.ModuleSimilarity, core.ErrorCodeUnavailable, "similarity: ratings or store not configured")
	}

	cfg := b.config()
	minOverlap := cfg.MinOverlap()
	shrinkage := float64(cfg.ShrinkageFactor())
	maxNeighbors := cfg.MaxNeighbors()

	users, err := b.Ratings.GetEligibleUsers(ctx, minOverlap)
	if err != nil {
		return stats, err
	}
	if len(users) == 0 {
		return stats, nil
	}
	sort.Strings(users) // 行顺序确定性

	// 断点：跳过上一次已提交的用户
	var done map[string]bool
	if b.Checkpoint != nil {
		done, err = b.Checkpoint.Load(ctx)
		if err != nil {
			return stats, err
		}
	}

	// 进度以全部 eligible 用户计：读取失败被跳过的也占一个刻度
	total := len(users)
	processed := 0
	var mu sync.Mutex

	// 一次性取齐全部评分，矩阵构建与后续打分全程在内存中完成
	ratings := make(map[string]map[string]float64, len(users))
	rows := make([]string, 0, len(users))
	for _, userID := range users {
		userRatings, err := b.Ratings.GetRatings(ctx, userID)
		if err != nil || len(userRatings) == 0 {
			// 单个用户读取失败不拖垮整批
			stats.UsersSkipped++
			processed++
			if b.Progress != nil {
				b.Progress(processed, total)
			}
			continue
		}
		ratings[userID] = userRatings
		rows = append(rows, userID)
	}
	if len(rows) == 0 {
		return stats, nil
	}

	m := NewRatingMatrix(ratings, rows)
	m.CenterRows()
	m.NormalizeRows()

	eg, egCtx := errgroup.WithContext(ctx)
	if b.Concurrency > 0 {
		eg.SetLimit(b.Concurrency)
	} else {
		eg.SetLimit(1)
	}

	for i := 0; i < m.NumUsers(); i++ {
		idx := i
		eg.Go(func() error {
			userID := m.Users()[idx]

			var edges []core.SimilarityEdge
			skipped := false

			if done[userID] {
				// 断点命中：上一轮已提交，直接计入进度
				skipped = true
			} else {
				edges = b.extractUserEdges(m, idx, minOverlap, shrinkage, maxNeighbors)
			}

			persisted := false
			if !skipped && len(edges) > 0 {
				if err := b.Store.ReplaceEdges(egCtx, userID, edges); err != nil {
					// 只回滚该用户；之前提交的用户不受影响
					persisted = false
				} else {
					persisted = true
					if b.Checkpoint != nil {
						_ = b.Checkpoint.MarkDone(egCtx, userID)
					}
				}
			}

			mu.Lock()
			processed++
			current := processed
			if skipped {
				stats.UsersProcessed++
			} else if persisted {
				stats.UsersProcessed++
				stats.SimilaritiesComputed += len(edges)
			} else {
				stats.UsersSkipped++
			}
			progress := b.Progress
			mu.Unlock()

			if progress != nil {
				progress(current, total)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return stats, err
	}

	// 完整跑完后清除断点；下一轮全量重算
	if b.Checkpoint != nil {
		_ = b.Checkpoint.Clear(ctx)
	}
	return stats, nil
}

// extractUserEdges 从归一化矩阵中提取某个用户的 TopK 邻居。
func (b *BatchMatrixBuilder) extractUserEdges(m *RatingMatrix, idx, minOverlap int, shrinkage float64, maxNeighbors int) []core.SimilarityEdge {
	userID := m.Users()[idx]
	total := m.NumUsers()

	edges := make([]core.SimilarityEdge, 0, 64)
	for j := 0; j < total; j++ {
		if j == idx {
			continue // 对角线/自身排除
		}
		raw, overlap := m.DotRows(idx, j)
		if raw <= 0 {
			continue // 只保留正相似度
		}
		if overlap < minOverlap {
			continue
		}
		adjusted := raw * (float64(overlap) / (float64(overlap) + shrinkage))
		edges = append(edges, core.SimilarityEdge{
			UserID:       userID,
			NeighborID:   m.Users()[j],
			Raw:          raw,
			OverlapCount: overlap,
			Adjusted:     adjusted,
		})
	}

	sortEdges(edges)
	if len(edges) > maxNeighbors {
		edges = edges[:maxNeighbors]
	}
	return edges
}
