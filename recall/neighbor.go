package recall

import (
	"context"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/pkg/utils"
)

// NeighborRecall 是基于相似用户（邻居）的候选召回与打分源。
//
// 核心思想："兴趣相似的读者，喜欢相似的书"
//
// 算法流程：
//  1. 读取目标用户预计算好的相似边（Adjusted 降序，取邻居池 TopN）
//  2. 批量取齐邻居评分，排除目标用户已读的书
//  3. 对每本候选书做相似度加权平均：predicted = Σ(sim·rating) / Σ(sim)
//  4. 置信度 = min(n/10, 1) × min(Σsim/2, 1)，按预测评分降序返回
//
// 工程特征：
//  - 相似边离线批产出（similarity.BatchMatrixBuilder），线上只读
//  - 评分一次批量取齐，打分全程在内存中完成
//  - 邻居数不足的书不出（单个邻居的意见不足以构成推荐依据）
//
// NeighborRecall 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type NeighborRecall struct {
	Ratings core.RatingSource
	Store   core.SimilarityStore
	Config  core.EngineConfig
}

func (r *NeighborRecall) Name() string        { return "recall.neighbor" }
func (r *NeighborRecall) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *NeighborRecall) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *NeighborRecall) config() core.EngineConfig {
	if r.Config != nil {
		return r.Config
	}
	return &core.DefaultEngineConfig{}
}

// Recall 实现 Source 接口
func (r *NeighborRecall) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Ratings == nil || r.Store == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	cfg := r.config()

	// 邻居池：Adjusted > 0 的边，降序取 TopN
	edges, err := r.Store.GetEdges(ctx, rctx.UserID, 0, cfg.NeighborPoolSize())
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		// 无邻居：冷启动场景，交给 Fanout 的 fallback 源兜底
		return nil, nil
	}

	similarity := make(map[string]float64, len(edges))
	neighborIDs := make([]string, 0, len(edges))
	for _, e := range edges {
		similarity[e.NeighborID] = e.Adjusted
		neighborIDs = append(neighborIDs, e.NeighborID)
	}

	// 已读排除：含哨兵行（已反馈未评分的书同样不再推荐）
	excludeBookIDs, err := r.Ratings.GetRatedBookIDs(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}

	// 一次批量取齐邻居评分，按书分组
	byBook, err := r.Ratings.GetNeighborRatings(ctx, neighborIDs, excludeBookIDs)
	if err != nil {
		return nil, err
	}

	minNeighbors := cfg.MinNeighborsForRec()
	out := make([]*core.Item, 0, len(byBook))

	for bookID, raters := range byBook {
		if len(raters) < minNeighbors {
			continue
		}

		var simSum, weightedSum, ratingSum float64
		contributors := make([]core.Contribution, 0, len(raters))
		for neighborID, rating := range raters {
			sim, ok := similarity[neighborID]
			if !ok || sim <= 0 {
				continue
			}
			simSum += sim
			weightedSum += sim * rating
			ratingSum += rating
			contributors = append(contributors, core.Contribution{
				NeighborID: neighborID,
				Similarity: sim,
				Rating:     rating,
			})
		}
		if len(contributors) < minNeighbors || simSum <= 0 {
			continue
		}

		predicted := weightedSum / simSum

		// 置信度：邻居越多、相似度质量越高，置信越高
		countFactor := float64(len(contributors)) / 10
		if countFactor > 1 {
			countFactor = 1
		}
		simFactor := simSum / 2
		if simFactor > 1 {
			simFactor = 1
		}
		confidence := countFactor * simFactor

		// 贡献明细按相似度降序，供解释生成使用
		sort.Slice(contributors, func(i, j int) bool {
			if contributors[i].Similarity != contributors[j].Similarity {
				return contributors[i].Similarity > contributors[j].Similarity
			}
			return contributors[i].NeighborID < contributors[j].NeighborID
		})

		it := core.NewItem(bookID)
		it.Score = predicted
		it.Features[core.FeatureConfidence] = confidence
		it.Features[core.FeatureNeighborCount] = float64(len(contributors))
		it.Features[core.FeatureAvgNeighborRating] = ratingSum / float64(len(contributors))
		it.Meta[core.MetaContributors] = contributors
		it.PutLabel("recall_source", utils.Label{Value: "neighbor", Source: "recall"})
		out = append(out, it)
	}

	// 预测评分降序；同分按置信度降序、书籍 ID 升序，保证结果确定
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ci := out[i].Features[core.FeatureConfidence]
		cj := out[j].Features[core.FeatureConfidence]
		if ci != cj {
			return ci > cj
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}
