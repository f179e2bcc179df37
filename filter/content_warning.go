package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// DefaultWhyChooseThreshold 内容预警的默认置信度阈值。
const DefaultWhyChooseThreshold = 0.5

// ContentWarningFilter 是内容预警过滤器：请求要求排除预警书时，
// 过滤掉"被标记且置信度 >= 阈值"的书。
//
// 软阈值而非硬布尔：低置信度的标记（疑似误标）不触发排除。
type ContentWarningFilter struct {
	// Threshold 置信度阈值，0 时使用 DefaultWhyChooseThreshold
	Threshold float64
}

func (f *ContentWarningFilter) Name() string {
	return "filter.content_warning"
}

func (f *ContentWarningFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Filters == nil || !rctx.Filters.ExcludeWhyChoose {
		return false, nil
	}

	book := item.Book()
	if book == nil {
		return false, nil
	}

	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultWhyChooseThreshold
	}
	return book.IsWhyChoose && book.WhyChooseConfidence >= threshold, nil
}
