package rerank

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// PageNode 是分页截断节点，在过滤与多样性之后对最终列表做 offset/limit。
//
// offset/limit 优先从请求参数（rctx.Params 的 "offset"/"limit"）读取，
// 请求未携带时回落到节点的静态默认值。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &filter.FilterNode{...},        // 内容过滤
//	        &rerank.AuthorDiversity{...},   // 作者多样性
//	        &rerank.PageNode{Limit: 20},    // 分页
//	    },
//	}
type PageNode struct {
	// Offset 默认偏移量；负数按 0 处理
	Offset int

	// Limit 默认页大小；<= 0 表示不截断
	Limit int
}

func (n *PageNode) Name() string {
	return "rerank.page"
}

func (n *PageNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *PageNode) Process(
	_ context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	offset := n.Offset
	limit := n.Limit
	if rctx != nil {
		offset = rctx.ParamInt("offset", offset)
		limit = rctx.ParamInt("limit", limit)
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []*core.Item{}, nil
	}

	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
