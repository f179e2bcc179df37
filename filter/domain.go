package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// DomainFilter 是推荐域过滤器：只放行书目标记为 Romantasy 的书。
// 元数据注入后仍拿不到书目记录的物品（脏数据、已下架）一并排除。
type DomainFilter struct{}

func (f *DomainFilter) Name() string {
	return "filter.domain"
}

func (f *DomainFilter) ShouldFilter(
	_ context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	book := item.Book()
	if book == nil {
		return true, nil
	}
	return !book.IsRomantasy, nil
}
