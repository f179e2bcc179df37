package postprocess

import (
	"context"
	"reflect"
	"testing"

	"github.com/rushteam/bookrec/catalog"
	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/store"
)

func TestExplanationText(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		avg    float64
		titles []string
		want   string
	}{
		{
			name:  "plural without shared titles",
			count: 3, avg: 4.5,
			want: "3 similar readers rated this 4.5★ average",
		},
		{
			name:  "singular reader",
			count: 1, avg: 5,
			want: "1 similar reader rated this 5.0★ average",
		},
		{
			name:  "one shared title",
			count: 2, avg: 4,
			titles: []string{"Fourth Wing"},
			want:   "2 similar readers who also loved Fourth Wing rated this 4.0★ average",
		},
		{
			name:  "two shared titles joined with and",
			count: 4, avg: 4.25,
			titles: []string{"Fourth Wing", "A Court of Thorns and Roses"},
			want:   "4 similar readers who also loved Fourth Wing and A Court of Thorns and Roses rated this 4.2★ average",
		},
		{
			name:  "extra titles beyond two ignored in text",
			count: 2, avg: 3.5,
			titles: []string{"Fourth Wing", "Iron Flame", "Onyx Storm"},
			want:   "2 similar readers who also loved Fourth Wing and Iron Flame rated this 3.5★ average",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := explanationText(tt.count, tt.avg, tt.titles); got != tt.want {
				t.Errorf("explanationText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func setupExplainTest(t *testing.T) *ExplainNode {
	t.Helper()
	ms := store.NewMemoryStore()
	ratings := recall.NewStoreRatingsAdapter(ms, "ratings")
	rows := []recall.RatingRow{
		// 当前用户的高分书
		{UserID: "user_a", BookID: "b1", Rating: 5, Sharing: true},
		{UserID: "user_a", BookID: "b2", Rating: 4, Sharing: true},
		{UserID: "user_a", BookID: "b3", Rating: 3, Sharing: true},
		// 贡献邻居的高分书
		{UserID: "user_b", BookID: "b1", Rating: 5, Sharing: true},
		{UserID: "user_b", BookID: "b2", Rating: 4, Sharing: true},
		{UserID: "user_b", BookID: "b4", Rating: 5, Sharing: true},
	}
	if err := recall.SetupRatingTestData(context.Background(), ratings, rows); err != nil {
		t.Fatalf("SetupRatingTestData() error = %v", err)
	}

	cat := catalog.NewMemoryCatalog(
		&core.Book{ID: "b1", Title: "Fourth Wing", IsRomantasy: true},
		&core.Book{ID: "b2", Title: "Iron Flame", IsRomantasy: true},
		&core.Book{ID: "b3", Title: "Onyx Storm", IsRomantasy: true},
		&core.Book{ID: "b4", Title: "A Court of Thorns and Roses", IsRomantasy: true},
	)
	return &ExplainNode{Ratings: ratings, Catalog: cat}
}

func TestExplainNode_SharedTitles(t *testing.T) {
	node := setupExplainTest(t)

	item := core.NewItem("b4")
	item.Score = 5.0
	item.Meta[core.MetaContributors] = []core.Contribution{
		{NeighborID: "user_b", Similarity: 0.23, Rating: 5},
	}
	item.Features[core.FeatureNeighborCount] = 1
	item.Features[core.FeatureAvgNeighborRating] = 5.0

	rctx := &core.RecommendContext{UserID: "user_a"}
	out, err := node.Process(context.Background(), rctx, []*core.Item{item})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Process() returned %d items, want 1", len(out))
	}

	exp := out[0].Explanation()
	if exp == nil {
		t.Fatal("Explanation() = nil, want populated explanation")
	}
	if exp.SimilarUserCount != 1 {
		t.Errorf("SimilarUserCount = %d, want 1", exp.SimilarUserCount)
	}
	if exp.AverageNeighborRating != 5.0 {
		t.Errorf("AverageNeighborRating = %v, want 5.0", exp.AverageNeighborRating)
	}
	// 共同高分书：user_a 与 user_b 都给 >= 4 分的 b1、b2（按 ID 排序）
	wantTitles := []string{"Fourth Wing", "Iron Flame"}
	if !reflect.DeepEqual(exp.TopSharedTitles, wantTitles) {
		t.Errorf("TopSharedTitles = %v, want %v", exp.TopSharedTitles, wantTitles)
	}
	wantText := "1 similar reader who also loved Fourth Wing and Iron Flame rated this 5.0★ average"
	if exp.SampleExplanation != wantText {
		t.Errorf("SampleExplanation = %q, want %q", exp.SampleExplanation, wantText)
	}
}

func TestExplainNode_ColdStartGeneric(t *testing.T) {
	node := setupExplainTest(t)

	item := core.NewItem("b3") // 冷启动兜底物品，无贡献明细
	rctx := &core.RecommendContext{UserID: "user_a"}
	out, err := node.Process(context.Background(), rctx, []*core.Item{item})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	exp := out[0].Explanation()
	if exp == nil {
		t.Fatal("Explanation() = nil, want cold-start explanation")
	}
	if exp.SimilarUserCount != 0 || exp.AverageNeighborRating != 0 {
		t.Errorf("cold-start fields = {%d, %v}, want zeros", exp.SimilarUserCount, exp.AverageNeighborRating)
	}
	if len(exp.TopSharedTitles) != 0 {
		t.Errorf("TopSharedTitles = %v, want empty", exp.TopSharedTitles)
	}
	if exp.SampleExplanation != ColdStartExplanation {
		t.Errorf("SampleExplanation = %q, want %q", exp.SampleExplanation, ColdStartExplanation)
	}
}

func TestExplainNode_NoSharedTitles(t *testing.T) {
	node := setupExplainTest(t)

	item := core.NewItem("b_other")
	item.Meta[core.MetaContributors] = []core.Contribution{
		{NeighborID: "user_stranger", Similarity: 0.5, Rating: 4},
		{NeighborID: "user_stranger2", Similarity: 0.4, Rating: 4},
	}
	item.Features[core.FeatureNeighborCount] = 2
	item.Features[core.FeatureAvgNeighborRating] = 4.0

	rctx := &core.RecommendContext{UserID: "user_a"}
	out, err := node.Process(context.Background(), rctx, []*core.Item{item})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	exp := out[0].Explanation()
	if exp == nil {
		t.Fatal("Explanation() = nil")
	}
	if len(exp.TopSharedTitles) != 0 {
		t.Errorf("TopSharedTitles = %v, want empty (no overlap with strangers)", exp.TopSharedTitles)
	}
	if want := "2 similar readers rated this 4.0★ average"; exp.SampleExplanation != want {
		t.Errorf("SampleExplanation = %q, want %q", exp.SampleExplanation, want)
	}
}

func TestExplainNode_SharedTitlesCap(t *testing.T) {
	ms := store.NewMemoryStore()
	ratings := recall.NewStoreRatingsAdapter(ms, "ratings")
	rows := make([]recall.RatingRow, 0, 16)
	books := make([]*core.Book, 0, 8)
	ids := []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7"}
	for _, id := range ids {
		rows = append(rows,
			recall.RatingRow{UserID: "user_a", BookID: id, Rating: 5, Sharing: true},
			recall.RatingRow{UserID: "user_b", BookID: id, Rating: 5, Sharing: true},
		)
		books = append(books, &core.Book{ID: id, Title: "Title " + id, IsRomantasy: true})
	}
	if err := recall.SetupRatingTestData(context.Background(), ratings, rows); err != nil {
		t.Fatalf("SetupRatingTestData() error = %v", err)
	}
	node := &ExplainNode{Ratings: ratings, Catalog: catalog.NewMemoryCatalog(books...)}

	item := core.NewItem("b_target")
	item.Meta[core.MetaContributors] = []core.Contribution{
		{NeighborID: "user_b", Similarity: 0.9, Rating: 5},
	}
	out, err := node.Process(context.Background(), &core.RecommendContext{UserID: "user_a"}, []*core.Item{item})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	exp := out[0].Explanation()
	if exp == nil {
		t.Fatal("Explanation() = nil")
	}
	if len(exp.TopSharedTitles) != 5 {
		t.Errorf("len(TopSharedTitles) = %d, want cap 5", len(exp.TopSharedTitles))
	}
}
