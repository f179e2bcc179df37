package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// TropeFilter 是 trope 标签过滤器。
//
// 语义（大小写不敏感，标签统一为小写 slug）：
//   - include_tropes：命中任意一个即保留（OR 语义），一个都不命中则排除
//   - exclude_tropes：命中任意一个即排除
//
// 排除优先于包含：同一本书两边都命中时排除。
type TropeFilter struct{}

func (f *TropeFilter) Name() string {
	return "filter.tropes"
}

func (f *TropeFilter) ShouldFilter(
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

	include := rctx.Filters.NormalizedIncludeTropes()
	exclude := rctx.Filters.NormalizedExcludeTropes()
	if len(include) == 0 && len(exclude) == 0 {
		return false, nil
	}

	book := item.Book()
	if book == nil {
		// 无标签信息：include 生效时无法证明命中，排除
		return len(include) > 0, nil
	}

	for _, slug := range exclude {
		if book.HasTag(slug) {
			return true, nil
		}
	}

	if len(include) > 0 {
		for _, slug := range include {
			if book.HasTag(slug) {
				return false, nil
			}
		}
		return true, nil
	}

	return false, nil
}
