// Package catalog 提供书目（core.BookCatalog）的存储实现。
// 书目归属外部系统，引擎侧只读：书籍属性 JSON 文档 + 热门有序集合。
package catalog

import (
	"context"
	"encoding/json"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

// StoreCatalog 是基于 core.Store 的书目适配器。
//
// 存储布局：
//
//	书籍文档：{KeyPrefix}:book:{bookID} → JSON core.Book
//	热门榜：  {KeyPrefix}:popular → 有序集合，score = 复合热门分
//
// 热门分是"置信度优先、出版年份次之"的复合分数（见 PopularityScore），
// ZRange 降序取出即为冷启动兜底的热门顺序。
type StoreCatalog struct {
	store core.Store

	// KeyPrefix 存储 key 前缀，默认 "catalog"
	KeyPrefix string
}

// NewStoreCatalog 创建基于 core.Store 的书目适配器。
func NewStoreCatalog(s core.Store, keyPrefix string) *StoreCatalog {
	if keyPrefix == "" {
		keyPrefix = "catalog"
	}
	return &StoreCatalog{store: s, KeyPrefix: keyPrefix}
}

func (c *StoreCatalog) Name() string { return "store_catalog" }

func (c *StoreCatalog) bookKey(bookID string) string {
	return c.KeyPrefix + ":book:" + bookID
}

func (c *StoreCatalog) popularKey() string {
	return c.KeyPrefix + ":popular"
}

// GetBook 实现 core.BookCatalog 接口。
func (c *StoreCatalog) GetBook(ctx context.Context, bookID string) (*core.Book, error) {
	data, err := c.store.Get(ctx, c.bookKey(bookID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: book not found: "+bookID)
		}
		return nil, err
	}

	var book core.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// GetBooks 实现 core.BookCatalog 接口：批量读取，不存在的 ID 缺省不报错。
func (c *StoreCatalog) GetBooks(ctx context.Context, bookIDs []string) (map[string]*core.Book, error) {
	if len(bookIDs) == 0 {
		return make(map[string]*core.Book), nil
	}

	keys := make([]string, 0, len(bookIDs))
	for _, bookID := range bookIDs {
		keys = append(keys, c.bookKey(bookID))
	}

	docs, err := c.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*core.Book, len(docs))
	for i, bookID := range bookIDs {
		data, ok := docs[keys[i]]
		if !ok {
			continue
		}
		var book core.Book
		if err := json.Unmarshal(data, &book); err != nil {
			continue
		}
		result[bookID] = &book
	}
	return result, nil
}

// ListPopular 实现 core.BookCatalog 接口：
// 从热门有序集合按复合分降序取 TopN，再批量取书籍文档。
func (c *StoreCatalog) ListPopular(ctx context.Context, limit int) ([]*core.Book, error) {
	if limit <= 0 {
		limit = 50
	}

	kvStore, ok := c.store.(store.KeyValueStore)
	if !ok {
		return nil, core.ErrStoreNotSupported
	}

	members, err := kvStore.ZRange(ctx, c.popularKey(), 0, int64(limit)-1)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []*core.Book{}, nil
		}
		return nil, err
	}

	books, err := c.GetBooks(ctx, members)
	if err != nil {
		return nil, err
	}

	// 保持 ZRange 的降序顺序
	out := make([]*core.Book, 0, len(members))
	for _, bookID := range members {
		if b, ok := books[bookID]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// 确保实现 core.BookCatalog 接口
var _ core.BookCatalog = (*StoreCatalog)(nil)

// PopularityScore 计算热门有序集合的复合分数：
// 置信度为首键（×1e6 保证严格优先），出版年份为次键。
func PopularityScore(b *core.Book) float64 {
	return b.RomantasyConfidence*1e6 + float64(b.PublicationYear)
}

// SetupCatalogTestData 辅助函数：为测试准备书目数据到 Store 中。
// 写入书籍文档，并把推荐域内的书加入热门有序集合。
func SetupCatalogTestData(ctx context.Context, c *StoreCatalog, books []*core.Book) error {
	kvs := make(map[string][]byte, len(books))
	for _, b := range books {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		kvs[c.bookKey(b.ID)] = data
	}
	if err := c.store.BatchSet(ctx, kvs); err != nil {
		return err
	}

	kvStore, ok := c.store.(store.KeyValueStore)
	if !ok {
		return nil
	}
	for _, b := range books {
		if !b.IsRomantasy {
			continue
		}
		if err := kvStore.ZAdd(ctx, c.popularKey(), PopularityScore(b), b.ID); err != nil {
			return err
		}
	}
	return nil
}
