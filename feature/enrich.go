package feature

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// EnrichNode 是元数据/特征注入节点：
//   - 从书目批量拉取书籍记录，注入 item.Meta（过滤、重排、解释都依赖它）
//   - 可选：从 FeatureService 批量注入书籍数值特征到 item.Features
//
// 冷启动来源的物品可能已在源内携带书目记录，不重复拉取。
// 一次批量取齐，避免逐物品回查书目的 N+1 查询。
type EnrichNode struct {
	Catalog core.BookCatalog

	// FeatureService 特征服务（可选）
	FeatureService core.FeatureService

	// FeaturePrefix 注入 item.Features 时的前缀，默认 "book_"
	FeaturePrefix string
}

func (n *EnrichNode) Name() string {
	return "feature.enrich"
}

func (n *EnrichNode) Kind() pipeline.Kind {
	return pipeline.KindPostProcess
}

func (n *EnrichNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	// 只为缺少书目记录的物品批量拉取
	missing := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		if item.Book() == nil {
			missing = append(missing, item.ID)
		}
	}

	if n.Catalog != nil && len(missing) > 0 {
		books, err := n.Catalog.GetBooks(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item == nil || item.Book() != nil {
				continue
			}
			if b, ok := books[item.ID]; ok {
				item.Meta[core.MetaBook] = b
			}
			// 书目中不存在的物品留空，由 DomainFilter 剔除
		}
	}

	// 可选的数值特征注入
	if n.FeatureService != nil {
		prefix := n.FeaturePrefix
		if prefix == "" {
			prefix = "book_"
		}

		bookIDs := make([]string, 0, len(items))
		for _, item := range items {
			if item != nil {
				bookIDs = append(bookIDs, item.ID)
			}
		}
		featuresMap, err := n.FeatureService.BatchGetItemFeatures(ctx, bookIDs)
		if err == nil {
			for _, item := range items {
				if item == nil {
					continue
				}
				if features, ok := featuresMap[item.ID]; ok {
					for k, v := range features {
						if _, exists := item.Features[prefix+k]; !exists {
							item.Features[prefix+k] = v
						}
					}
				}
			}
		}
		// 特征服务失败不阻塞主链路：书目记录已注入，核心过滤照常工作
	}

	return items, nil
}
