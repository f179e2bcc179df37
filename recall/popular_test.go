package recall

import (
	"context"
	"fmt"
	"testing"

	"github.com/rushteam/bookrec/catalog"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

func popularTestCatalog() *catalog.MemoryCatalog {
	return catalog.NewMemoryCatalog(
		&core.Book{ID: "bk_top", Title: "Fourth Wing", IsRomantasy: true, RomantasyConfidence: 0.99, PublicationYear: 2023},
		&core.Book{ID: "bk_mid", Title: "A Court of Thorns and Roses", IsRomantasy: true, RomantasyConfidence: 0.95, PublicationYear: 2015},
		&core.Book{ID: "bk_new", Title: "Iron Flame", IsRomantasy: true, RomantasyConfidence: 0.95, PublicationYear: 2023},
		&core.Book{ID: "bk_other", Title: "Not A Romantasy", IsRomantasy: false, RomantasyConfidence: 0.1},
	)
}

func TestPopular_OrderedByConfidenceThenRecency(t *testing.T) {
	r := &Popular{Catalog: popularTestCatalog()}

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "anyone"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}

	want := []string{"bk_top", "bk_new", "bk_mid"}
	if len(items) != len(want) {
		t.Fatalf("Recall() returned %d items, want %d", len(items), len(want))
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Errorf("items[%d].ID = %q, want %q", i, items[i].ID, id)
		}
		// 冷启动兜底没有邻居依据：预测评分与置信度都为 0
		if items[i].Score != 0 {
			t.Errorf("items[%d].Score = %v, want 0", i, items[i].Score)
		}
		if items[i].Features[core.FeatureConfidence] != 0 {
			t.Errorf("items[%d] confidence = %v, want 0", i, items[i].Features[core.FeatureConfidence])
		}
		if items[i].Book() == nil {
			t.Errorf("items[%d] missing book meta", i)
		}
	}
}

func TestPopular_ExcludesReadBooks(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	ratings := NewStoreRatingsAdapter(ms, "ratings")
	if err := SetupRatingTestData(ctx, ratings, []RatingRow{
		{UserID: "u", BookID: "bk_top", Rating: 5},
		{UserID: "u", BookID: "bk_new", Rating: 0}, // 哨兵行同样排除
	}); err != nil {
		t.Fatalf("SetupRatingTestData() error = %v", err)
	}

	r := &Popular{Catalog: popularTestCatalog(), Ratings: ratings}
	items, err := r.Recall(ctx, &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "bk_mid" {
		t.Fatalf("Recall() = %+v, want only bk_mid", items)
	}
}

func TestPopular_Limit(t *testing.T) {
	r := &Popular{Catalog: popularTestCatalog(), Limit: 2}

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("Recall() returned %d items, want 2", len(items))
	}
}

func TestPopular_DeepPagination(t *testing.T) {
	// 60 本书：池子必须覆盖到 offset+limit，第 50 条之后仍可出页
	books := make([]*core.Book, 0, 60)
	for i := 0; i < 60; i++ {
		books = append(books, &core.Book{
			ID:                  fmt.Sprintf("bk_%02d", i),
			IsRomantasy:         true,
			RomantasyConfidence: 1 - float64(i)/100,
		})
	}
	r := &Popular{Catalog: catalog.NewMemoryCatalog(books...)}

	rctx := &core.RecommendContext{
		UserID: "u",
		Params: map[string]any{"limit": 5, "offset": 50},
	}
	items, err := r.Recall(context.Background(), rctx)
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 55 {
		t.Fatalf("Recall() returned %d items, want 55 (pool covers offset+limit)", len(items))
	}
	if items[50].ID != "bk_50" {
		t.Errorf("items[50].ID = %q, want bk_50", items[50].ID)
	}
}

func TestPopular_ZSetFallback(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	for member, score := range map[string]float64{"bk_a": 3, "bk_b": 2, "bk_c": 1} {
		if err := ms.ZAdd(ctx, "popular:books", score, member); err != nil {
			t.Fatalf("ZAdd() error = %v", err)
		}
	}

	r := &Popular{Store: ms, Key: "popular:books"}
	items, err := r.Recall(ctx, &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("Recall() returned %d items, want 3", len(items))
	}
	if items[0].ID != "bk_a" {
		t.Errorf("items[0].ID = %q, want bk_a (highest popularity score)", items[0].ID)
	}
}
