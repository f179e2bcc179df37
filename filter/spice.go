package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// SpiceFilter 是辣度区间过滤器，从请求的 Filters 读取 spice_min/spice_max。
//
// 约定：区间生效时，辣度未知的书一律排除，绝不静默放行
// （区间过滤表达的是读者的明确偏好，未知辣度无法证明满足偏好）。
type SpiceFilter struct{}

func (f *SpiceFilter) Name() string {
	return "filter.spice"
}

func (f *SpiceFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Filters == nil {
		return false, nil
	}
	min, max := rctx.Filters.SpiceMin, rctx.Filters.SpiceMax
	if min == nil && max == nil {
		return false, nil
	}

	book := item.Book()
	if book == nil || book.SpiceLevel == nil {
		// 区间生效但辣度未知：排除
		return true, nil
	}
	if min != nil && *book.SpiceLevel < *min {
		return true, nil
	}
	if max != nil && *book.SpiceLevel > *max {
		return true, nil
	}
	return false, nil
}
