// Package postprocess 提供结果修饰节点：为最终推荐列表生成解释信息。
package postprocess

import (
	"context"
	"fmt"
	"sort"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// ColdStartExplanation 是冷启动物品的通用解释文案。
const ColdStartExplanation = "Popular Romantasy book"

// ExplainNode 是解释生成节点：为每个存活物品生成人类可读的推荐理由。
//
// 解释构成：
//   - 贡献邻居数 + 邻居平均评分
//   - 与前 TopNeighbors 个贡献邻居的共同高分（>= MinSharedRating）书名，
//     最多 MaxSharedTitles 条
//   - 模板文案："{N} similar reader{s}{ who also loved X[ and Y]} rated this {avg}★ average"
//     （N=1 时用单数 reader；无共同书时省略 who also loved 子句）
//
// 没有贡献明细的物品（冷启动兜底）拿到通用文案。
// 所有评分与书目查询批量取齐：按物品逐条回查会在长列表上退化为 N+1。
type ExplainNode struct {
	Ratings core.RatingSource
	Catalog core.BookCatalog

	// MinSharedRating "共同喜爱"的评分门槛，默认 4
	MinSharedRating float64

	// TopNeighbors 参与共同书目计算的贡献邻居数，默认 5
	TopNeighbors int

	// MaxSharedTitles 解释中共同书名上限，默认 5
	MaxSharedTitles int
}

func (n *ExplainNode) Name() string {
	return "postprocess.explain"
}

func (n *ExplainNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *ExplainNode) minSharedRating() float64 {
	if n.MinSharedRating > 0 {
		return n.MinSharedRating
	}
	return 4
}

func (n *ExplainNode) topNeighbors() int {
	if n.TopNeighbors > 0 {
		return n.TopNeighbors
	}
	return 5
}

func (n *ExplainNode) maxSharedTitles() int {
	if n.MaxSharedTitles > 0 {
		return n.MaxSharedTitles
	}
	return 5
}

func (n *ExplainNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	// 收集用户 + 各物品 Top 邻居，一次批量取高分书
	involved := make(map[string]bool)
	if rctx != nil && rctx.UserID != "" {
		involved[rctx.UserID] = true
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		for i, c := range item.Contributors() {
			if i >= n.topNeighbors() {
				break
			}
			involved[c.NeighborID] = true
		}
	}

	favorites := make(map[string][]string)
	if n.Ratings != nil && len(involved) > 0 {
		userIDs := make([]string, 0, len(involved))
		for userID := range involved {
			userIDs = append(userIDs, userID)
		}
		sort.Strings(userIDs)

		var err error
		favorites, err = n.Ratings.GetHighRatedBookIDs(ctx, userIDs, n.minSharedRating())
		if err != nil {
			return nil, err
		}
	}

	var userFavs map[string]bool
	if rctx != nil && rctx.UserID != "" {
		userFavs = make(map[string]bool, len(favorites[rctx.UserID]))
		for _, bookID := range favorites[rctx.UserID] {
			userFavs[bookID] = true
		}
	}

	// 每个物品的共同书目 ID
	sharedByItem := make(map[string][]string, len(items))
	titleIDs := make(map[string]bool)
	for _, item := range items {
		if item == nil {
			continue
		}
		contributors := item.Contributors()
		if len(contributors) == 0 || len(userFavs) == 0 {
			continue
		}

		seen := make(map[string]bool)
		shared := make([]string, 0)
		for i, c := range contributors {
			if i >= n.topNeighbors() {
				break
			}
			for _, bookID := range favorites[c.NeighborID] {
				if userFavs[bookID] && !seen[bookID] {
					seen[bookID] = true
					shared = append(shared, bookID)
				}
			}
		}
		sort.Strings(shared)
		if len(shared) > n.maxSharedTitles() {
			shared = shared[:n.maxSharedTitles()]
		}
		sharedByItem[item.ID] = shared
		for _, bookID := range shared {
			titleIDs[bookID] = true
		}
	}

	// 批量取共同书的书名
	titles := make(map[string]string)
	if n.Catalog != nil && len(titleIDs) > 0 {
		ids := make([]string, 0, len(titleIDs))
		for bookID := range titleIDs {
			ids = append(ids, bookID)
		}
		books, err := n.Catalog.GetBooks(ctx, ids)
		if err != nil {
			return nil, err
		}
		for bookID, b := range books {
			titles[bookID] = b.Title
		}
	}

	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Meta == nil {
			item.Meta = make(map[string]any)
		}

		contributors := item.Contributors()
		if len(contributors) == 0 {
			item.Meta[core.MetaExplanation] = &core.Explanation{
				SimilarUserCount:      0,
				AverageNeighborRating: 0,
				TopSharedTitles:       []string{},
				SampleExplanation:     ColdStartExplanation,
			}
			continue
		}

		sharedTitles := make([]string, 0, len(sharedByItem[item.ID]))
		for _, bookID := range sharedByItem[item.ID] {
			if title, ok := titles[bookID]; ok && title != "" {
				sharedTitles = append(sharedTitles, title)
			}
		}

		count := int(item.Features[core.FeatureNeighborCount])
		if count == 0 {
			count = len(contributors)
		}
		avg := item.Features[core.FeatureAvgNeighborRating]

		item.Meta[core.MetaExplanation] = &core.Explanation{
			SimilarUserCount:      count,
			AverageNeighborRating: avg,
			TopSharedTitles:       sharedTitles,
			SampleExplanation:     explanationText(count, avg, sharedTitles),
		}
	}

	return items, nil
}

// explanationText 生成模板化解释文案，文案里最多出现两本共同书。
func explanationText(count int, avg float64, sharedTitles []string) string {
	plural := "s"
	if count == 1 {
		plural = ""
	}

	booksText := ""
	if len(sharedTitles) > 0 {
		booksText = " who also loved " + sharedTitles[0]
		if len(sharedTitles) > 1 {
			booksText += " and " + sharedTitles[1]
		}
	}

	return fmt.Sprintf("%d similar reader%s%s rated this %.1f★ average", count, plural, booksText, avg)
}
