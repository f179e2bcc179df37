package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

func catalogTestBooks() []*core.Book {
	return []*core.Book{
		{ID: "bk_top", Title: "Fourth Wing", Author: "Rebecca Yarros", IsRomantasy: true, RomantasyConfidence: 0.99, PublicationYear: 2023},
		{ID: "bk_mid", Title: "A Court of Mist and Fury", Author: "Sarah J. Maas", IsRomantasy: true, RomantasyConfidence: 0.95, PublicationYear: 2016},
		{ID: "bk_new", Title: "Iron Flame", Author: "Rebecca Yarros", IsRomantasy: true, RomantasyConfidence: 0.95, PublicationYear: 2023},
		{ID: "bk_other", Title: "Project Hail Mary", Author: "Andy Weir", IsRomantasy: false, RomantasyConfidence: 0.01, PublicationYear: 2021},
	}
}

func setupStoreCatalog(t *testing.T) *StoreCatalog {
	t.Helper()
	c := NewStoreCatalog(store.NewMemoryStore(), "catalog")
	if err := SetupCatalogTestData(context.Background(), c, catalogTestBooks()); err != nil {
		t.Fatalf("SetupCatalogTestData() error = %v", err)
	}
	return c
}

func TestStoreCatalog_GetBook(t *testing.T) {
	c := setupStoreCatalog(t)
	ctx := context.Background()

	b, err := c.GetBook(ctx, "bk_top")
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if b.Title != "Fourth Wing" || b.Author != "Rebecca Yarros" {
		t.Errorf("GetBook() = %+v, want Fourth Wing by Rebecca Yarros", b)
	}

	_, err = c.GetBook(ctx, "bk_missing")
	var derr *core.DomainError
	if !errors.As(err, &derr) {
		t.Fatalf("GetBook(missing) error = %v, want DomainError", err)
	}
	if derr.Code != core.ErrorCodeNotFound {
		t.Errorf("GetBook(missing) code = %s, want %s", derr.Code, core.ErrorCodeNotFound)
	}
}

func TestStoreCatalog_GetBooksOmitsMissing(t *testing.T) {
	c := setupStoreCatalog(t)

	books, err := c.GetBooks(context.Background(), []string{"bk_top", "bk_missing", "bk_mid"})
	if err != nil {
		t.Fatalf("GetBooks() error = %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("GetBooks() returned %d books, want 2", len(books))
	}
	if _, ok := books["bk_missing"]; ok {
		t.Error("GetBooks() included missing ID")
	}
	if books["bk_mid"].Title != "A Court of Mist and Fury" {
		t.Errorf("GetBooks()[bk_mid].Title = %q", books["bk_mid"].Title)
	}
}

func TestStoreCatalog_ListPopularOrder(t *testing.T) {
	c := setupStoreCatalog(t)

	books, err := c.ListPopular(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPopular() error = %v", err)
	}

	// 置信度优先，同置信度按出版年份；非推荐域的书不入榜
	want := []string{"bk_top", "bk_new", "bk_mid"}
	if len(books) != len(want) {
		t.Fatalf("ListPopular() returned %d books, want %d", len(books), len(want))
	}
	for i, id := range want {
		if books[i].ID != id {
			t.Errorf("ListPopular()[%d] = %s, want %s", i, books[i].ID, id)
		}
	}
}

func TestStoreCatalog_ListPopularLimit(t *testing.T) {
	c := setupStoreCatalog(t)

	books, err := c.ListPopular(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListPopular() error = %v", err)
	}
	if len(books) != 2 || books[0].ID != "bk_top" || books[1].ID != "bk_new" {
		t.Errorf("ListPopular(2) = %v, want [bk_top bk_new]", itemTitles(books))
	}
}

func TestStoreCatalog_ListPopularEmpty(t *testing.T) {
	c := NewStoreCatalog(store.NewMemoryStore(), "catalog")

	books, err := c.ListPopular(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListPopular() error = %v", err)
	}
	if len(books) != 0 {
		t.Errorf("ListPopular() on empty store = %v, want empty", books)
	}
}

func TestPopularityScore_ConfidenceDominatesYear(t *testing.T) {
	older := &core.Book{RomantasyConfidence: 0.99, PublicationYear: 1990}
	newer := &core.Book{RomantasyConfidence: 0.95, PublicationYear: 2024}
	if PopularityScore(older) <= PopularityScore(newer) {
		t.Errorf("PopularityScore: confidence 0.99/1990 = %v should beat 0.95/2024 = %v",
			PopularityScore(older), PopularityScore(newer))
	}
}

func TestMemoryCatalog(t *testing.T) {
	c := NewMemoryCatalog(catalogTestBooks()...)
	ctx := context.Background()

	if _, err := c.GetBook(ctx, "bk_top"); err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if _, err := c.GetBook(ctx, "nope"); err == nil {
		t.Error("GetBook(nope) error = nil, want NOT_FOUND")
	}

	books, err := c.ListPopular(ctx, 10)
	if err != nil {
		t.Fatalf("ListPopular() error = %v", err)
	}
	want := []string{"bk_top", "bk_new", "bk_mid"}
	if len(books) != len(want) {
		t.Fatalf("ListPopular() returned %d books, want %d", len(books), len(want))
	}
	for i, id := range want {
		if books[i].ID != id {
			t.Errorf("ListPopular()[%d] = %s, want %s", i, books[i].ID, id)
		}
	}
}

func itemTitles(books []*core.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}
