package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/rushteam/bookrec/core"
)

// MemoryCatalog 是内存书目实现，适合测试与原型验证。
type MemoryCatalog struct {
	mu    sync.RWMutex
	books map[string]*core.Book
}

// NewMemoryCatalog 创建内存书目。
func NewMemoryCatalog(books ...*core.Book) *MemoryCatalog {
	c := &MemoryCatalog{books: make(map[string]*core.Book, len(books))}
	for _, b := range books {
		if b != nil {
			c.books[b.ID] = b
		}
	}
	return c
}

func (c *MemoryCatalog) Name() string { return "memory_catalog" }

// Put 写入/覆盖一本书。
func (c *MemoryCatalog) Put(b *core.Book) {
	if b == nil {
		return
	}
	c.mu.Lock()
	c.books[b.ID] = b
	c.mu.Unlock()
}

func (c *MemoryCatalog) GetBook(_ context.Context, bookID string) (*core.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.books[bookID]
	if !ok {
		return nil, core.NewDomainError(core.ModuleCatalog, core.ErrorCodeNotFound, "catalog: book not found: "+bookID)
	}
	return b, nil
}

func (c *MemoryCatalog) GetBooks(_ context.Context, bookIDs []string) (map[string]*core.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*core.Book, len(bookIDs))
	for _, bookID := range bookIDs {
		if b, ok := c.books[bookID]; ok {
			result[bookID] = b
		}
	}
	return result, nil
}

// ListPopular 按置信度降序、出版年份降序返回推荐域内的书。
func (c *MemoryCatalog) ListPopular(_ context.Context, limit int) ([]*core.Book, error) {
	c.mu.RLock()
	out := make([]*core.Book, 0, len(c.books))
	for _, b := range c.books {
		if b.IsRomantasy {
			out = append(out, b)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].RomantasyConfidence != out[j].RomantasyConfidence {
			return out[i].RomantasyConfidence > out[j].RomantasyConfidence
		}
		if out[i].PublicationYear != out[j].PublicationYear {
			return out[i].PublicationYear > out[j].PublicationYear
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// 确保实现 core.BookCatalog 接口
var _ core.BookCatalog = (*MemoryCatalog)(nil)
