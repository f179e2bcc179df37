package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/bookrec/catalog"
	"github.com/rushteam/bookrec/core"
)

type stubFeatureService struct {
	item map[string]map[string]float64
	err  error
}

func (s *stubFeatureService) Name() string { return "stub" }

func (s *stubFeatureService) GetUserFeatures(_ context.Context, _ string) (map[string]float64, error) {
	return nil, nil
}

func (s *stubFeatureService) BatchGetUserFeatures(_ context.Context, _ []string) (map[string]map[string]float64, error) {
	return nil, nil
}

func (s *stubFeatureService) GetItemFeatures(_ context.Context, bookID string) (map[string]float64, error) {
	return s.item[bookID], s.err
}

func (s *stubFeatureService) BatchGetItemFeatures(_ context.Context, _ []string) (map[string]map[string]float64, error) {
	return s.item, s.err
}

func (s *stubFeatureService) Close(_ context.Context) error { return nil }

func enrichTestCatalog() *catalog.MemoryCatalog {
	return catalog.NewMemoryCatalog(
		&core.Book{ID: "b1", Title: "Fourth Wing", IsRomantasy: true},
		&core.Book{ID: "b2", Title: "Iron Flame", IsRomantasy: true},
	)
}

func TestEnrichNode_InjectsBookMeta(t *testing.T) {
	node := &EnrichNode{Catalog: enrichTestCatalog()}

	preloaded := core.NewItem("b2")
	preloaded.Meta[core.MetaBook] = &core.Book{ID: "b2", Title: "Preloaded"}
	items := []*core.Item{core.NewItem("b1"), preloaded, core.NewItem("b_missing")}

	out, err := node.Process(context.Background(), nil, items)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if b := out[0].Book(); b == nil || b.Title != "Fourth Wing" {
		t.Errorf("b1 book = %+v, want Fourth Wing from catalog", b)
	}
	// 已携带书目记录的物品不被覆盖
	if b := out[1].Book(); b == nil || b.Title != "Preloaded" {
		t.Errorf("b2 book = %+v, want preloaded record untouched", b)
	}
	// 书目缺失的物品保持无记录（下游 DomainFilter 剔除）
	if b := out[2].Book(); b != nil {
		t.Errorf("b_missing book = %+v, want nil", b)
	}
}

func TestEnrichNode_InjectsItemFeatures(t *testing.T) {
	node := &EnrichNode{
		Catalog: enrichTestCatalog(),
		FeatureService: &stubFeatureService{item: map[string]map[string]float64{
			"b1": {"avg_rating": 4.6, "rating_count": 1200},
		}},
	}

	item := core.NewItem("b1")
	item.Features["avg_rating"] = 9.9 // 同名已有特征不覆盖（前缀隔离）

	out, err := node.Process(context.Background(), nil, []*core.Item{item})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if got := out[0].Features["book_avg_rating"]; got != 4.6 {
		t.Errorf("Features[book_avg_rating] = %v, want 4.6", got)
	}
	if got := out[0].Features["book_rating_count"]; got != 1200 {
		t.Errorf("Features[book_rating_count] = %v, want 1200", got)
	}
	if got := out[0].Features["avg_rating"]; got != 9.9 {
		t.Errorf("Features[avg_rating] = %v, want original 9.9", got)
	}
}

func TestEnrichNode_FeatureServiceFailureNonFatal(t *testing.T) {
	node := &EnrichNode{
		Catalog:        enrichTestCatalog(),
		FeatureService: &stubFeatureService{err: errors.New("feast unavailable")},
	}

	out, err := node.Process(context.Background(), nil, []*core.Item{core.NewItem("b1")})
	if err != nil {
		t.Fatalf("Process() error = %v, want feature failure swallowed", err)
	}
	if b := out[0].Book(); b == nil {
		t.Error("book meta missing: catalog injection must survive feature service failure")
	}
}
