package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// AudienceFilter 是受众过滤器：请求指定 is_ya 时要求书籍的 YA 标记严格相等。
// YA 标记是三态（true/false/未知），条件生效时未知一律排除。
type AudienceFilter struct{}

func (f *AudienceFilter) Name() string {
	return "filter.audience"
}

func (f *AudienceFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx == nil || rctx.Filters == nil || rctx.Filters.IsYA == nil {
		return false, nil
	}

	book := item.Book()
	if book == nil || book.IsYA == nil {
		return true, nil
	}
	return *book.IsYA != *rctx.Filters.IsYA, nil
}
