package filter

import (
	"context"
	"encoding/json"

	"github.com/rushteam/bookrec/core"
)

// SuppressedFilter 是下架过滤器，过滤掉运营压制的书
// （版权下架、重复条目待合并等）。
type SuppressedFilter struct {
	// BookIDs 是内存中的压制书籍 ID 列表
	BookIDs []string

	// Store + Key 从存储读取压制列表（JSON []bookID，可选）
	Store core.Store
	Key   string
}

func (f *SuppressedFilter) Name() string {
	return "filter.suppressed"
}

func (f *SuppressedFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	// 从内存列表检查
	for _, id := range f.BookIDs {
		if item.ID == id {
			return true, nil
		}
	}

	// 从 Store 检查
	if f.Store != nil && f.Key != "" {
		data, err := f.Store.Get(ctx, f.Key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				return false, nil
			}
			return false, nil
		}
		var suppressed []string
		if err := json.Unmarshal(data, &suppressed); err != nil {
			return false, nil
		}
		for _, id := range suppressed {
			if item.ID == id {
				return true, nil
			}
		}
	}

	return false, nil
}
