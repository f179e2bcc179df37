package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
)

// ReadFilter 是已读过滤器，过滤掉用户已经评过分或反馈过的书（含哨兵行）。
// 邻居召回在源内已做已读排除；本过滤器是全链路的统一兜底，
// 冷启动等其他来源的物品同样不会把已读推回给用户。
//
// 已读集合通过请求级 Memo 缓存：一次请求只回源一次，
// 逐物品判断只做集合成员检查。
type ReadFilter struct {
	Ratings core.RatingSource
}

func (f *ReadFilter) Name() string {
	return "filter.read"
}

func (f *ReadFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if f.Ratings == nil || rctx == nil || rctx.UserID == "" {
		return false, nil
	}

	v, err := rctx.Memo("read_books:"+rctx.UserID, func() (any, error) {
		readIDs, err := f.Ratings.GetRatedBookIDs(ctx, rctx.UserID)
		if err != nil {
			return nil, err
		}
		set := make(map[string]bool, len(readIDs))
		for _, bookID := range readIDs {
			set[bookID] = true
		}
		return set, nil
	})
	if err != nil {
		return false, err
	}
	readSet, _ := v.(map[string]bool)
	return readSet[item.ID], nil
}
