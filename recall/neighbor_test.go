package recall

import (
	"context"
	"math"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/similarity"
	"github.com/rushteam/bookrec/store"
)

func setupNeighborTest(t *testing.T, rows []RatingRow, edges map[string][]core.SimilarityEdge, cfg core.EngineConfig) *NeighborRecall {
	t.Helper()
	ctx := context.Background()

	ms := store.NewMemoryStore()
	ratings := NewStoreRatingsAdapter(ms, "ratings")
	if err := SetupRatingTestData(ctx, ratings, rows); err != nil {
		t.Fatalf("SetupRatingTestData() error = %v", err)
	}

	simStore := similarity.NewStoreSimilarityAdapter(ms, "sim")
	for userID, userEdges := range edges {
		if err := simStore.ReplaceEdges(ctx, userID, userEdges); err != nil {
			t.Fatalf("ReplaceEdges() error = %v", err)
		}
	}

	return &NeighborRecall{Ratings: ratings, Store: simStore, Config: cfg}
}

func TestNeighborRecall_WorkedScenario(t *testing.T) {
	// A 评 {b1:5,b2:4,b3:3}，B 额外评了 b4:5，sim(A,B)=3/13
	adjusted := 3.0 / 13.0
	r := setupNeighborTest(t,
		[]RatingRow{
			{UserID: "user_a", BookID: "b1", Rating: 5, Sharing: true},
			{UserID: "user_a", BookID: "b2", Rating: 4, Sharing: true},
			{UserID: "user_a", BookID: "b3", Rating: 3, Sharing: true},
			{UserID: "user_b", BookID: "b1", Rating: 5, Sharing: true},
			{UserID: "user_b", BookID: "b2", Rating: 4, Sharing: true},
			{UserID: "user_b", BookID: "b3", Rating: 3, Sharing: true},
			{UserID: "user_b", BookID: "b4", Rating: 5, Sharing: true},
		},
		map[string][]core.SimilarityEdge{
			"user_a": {{UserID: "user_a", NeighborID: "user_b", Raw: 1.0, OverlapCount: 3, Adjusted: adjusted}},
		},
		&core.StaticEngineConfig{Overlap: 2, MinContrib: 1},
	)

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "user_a"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Recall() returned %d items, want 1 (only b4 unread)", len(items))
	}

	it := items[0]
	if it.ID != "b4" {
		t.Errorf("item ID = %q, want b4", it.ID)
	}
	if math.Abs(it.Score-5.0) > 1e-9 {
		t.Errorf("predicted rating = %v, want 5.0", it.Score)
	}
	wantConfidence := (1.0 / 10.0) * (adjusted / 2.0) // ≈ 0.0115
	if math.Abs(it.Features[core.FeatureConfidence]-wantConfidence) > 1e-6 {
		t.Errorf("confidence = %v, want %v", it.Features[core.FeatureConfidence], wantConfidence)
	}
	if it.Features[core.FeatureNeighborCount] != 1 {
		t.Errorf("neighbor count = %v, want 1", it.Features[core.FeatureNeighborCount])
	}

	contributors := it.Contributors()
	if len(contributors) != 1 || contributors[0].NeighborID != "user_b" {
		t.Errorf("contributors = %+v, want single user_b", contributors)
	}
}

func TestNeighborRecall_WeightedAverage(t *testing.T) {
	// 两个邻居：sim 0.5 打 5 分，sim 0.25 打 2 分
	// predicted = (0.5*5 + 0.25*2) / 0.75 = 4.0
	r := setupNeighborTest(t,
		[]RatingRow{
			{UserID: "u", BookID: "b1", Rating: 4, Sharing: true},
			{UserID: "n1", BookID: "bx", Rating: 5, Sharing: true},
			{UserID: "n2", BookID: "bx", Rating: 2, Sharing: true},
		},
		map[string][]core.SimilarityEdge{
			"u": {
				{UserID: "u", NeighborID: "n1", Raw: 0.7, OverlapCount: 10, Adjusted: 0.5},
				{UserID: "u", NeighborID: "n2", Raw: 0.4, OverlapCount: 8, Adjusted: 0.25},
			},
		},
		&core.StaticEngineConfig{MinContrib: 2},
	)

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Recall() returned %d items, want 1", len(items))
	}
	if math.Abs(items[0].Score-4.0) > 1e-9 {
		t.Errorf("predicted rating = %v, want 4.0", items[0].Score)
	}
	// avg_neighbor_rating 是未加权平均：(5+2)/2
	if math.Abs(items[0].Features[core.FeatureAvgNeighborRating]-3.5) > 1e-9 {
		t.Errorf("avg neighbor rating = %v, want 3.5", items[0].Features[core.FeatureAvgNeighborRating])
	}
}

func TestNeighborRecall_MinNeighborsEnforced(t *testing.T) {
	// 默认 min_neighbors_for_rec=2：单个邻居的意见不足以出推荐
	r := setupNeighborTest(t,
		[]RatingRow{
			{UserID: "u", BookID: "b1", Rating: 4, Sharing: true},
			{UserID: "n1", BookID: "bx", Rating: 5, Sharing: true},
		},
		map[string][]core.SimilarityEdge{
			"u": {{UserID: "u", NeighborID: "n1", Raw: 0.9, OverlapCount: 10, Adjusted: 0.45}},
		},
		nil,
	)

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Recall() returned %d items, want 0 (single neighbor below threshold)", len(items))
	}
}

func TestNeighborRecall_ExcludesReadBooks(t *testing.T) {
	// u 对 b_read 有哨兵行（已反馈未评分）：同样不再推荐
	r := setupNeighborTest(t,
		[]RatingRow{
			{UserID: "u", BookID: "b1", Rating: 4, Sharing: true},
			{UserID: "u", BookID: "b_read", Rating: 0, Sharing: true},
			{UserID: "n1", BookID: "b_read", Rating: 5, Sharing: true},
			{UserID: "n1", BookID: "b_new", Rating: 5, Sharing: true},
			{UserID: "n2", BookID: "b_read", Rating: 4, Sharing: true},
			{UserID: "n2", BookID: "b_new", Rating: 4, Sharing: true},
		},
		map[string][]core.SimilarityEdge{
			"u": {
				{UserID: "u", NeighborID: "n1", Raw: 0.8, OverlapCount: 10, Adjusted: 0.4},
				{UserID: "u", NeighborID: "n2", Raw: 0.6, OverlapCount: 10, Adjusted: 0.3},
			},
		},
		nil,
	)

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "b_new" {
		t.Fatalf("Recall() = %+v, want only b_new (b1 and b_read excluded)", items)
	}
}

func TestNeighborRecall_NoEdgesColdStart(t *testing.T) {
	r := setupNeighborTest(t, nil, nil, nil)

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "ghost"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if items != nil {
		t.Errorf("Recall() = %v, want nil (fallback handled by fanout)", items)
	}
}

func TestNeighborRecall_SortedByPredictedRating(t *testing.T) {
	r := setupNeighborTest(t,
		[]RatingRow{
			{UserID: "u", BookID: "b0", Rating: 4, Sharing: true},
			{UserID: "n1", BookID: "b_good", Rating: 5, Sharing: true},
			{UserID: "n1", BookID: "b_bad", Rating: 2, Sharing: true},
			{UserID: "n2", BookID: "b_good", Rating: 5, Sharing: true},
			{UserID: "n2", BookID: "b_bad", Rating: 3, Sharing: true},
		},
		map[string][]core.SimilarityEdge{
			"u": {
				{UserID: "u", NeighborID: "n1", Raw: 0.8, OverlapCount: 10, Adjusted: 0.4},
				{UserID: "u", NeighborID: "n2", Raw: 0.6, OverlapCount: 10, Adjusted: 0.3},
			},
		},
		nil,
	)

	items, err := r.Recall(context.Background(), &core.RecommendContext{UserID: "u"})
	if err != nil {
		t.Fatalf("Recall() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Recall() returned %d items, want 2", len(items))
	}
	if items[0].ID != "b_good" || items[1].ID != "b_bad" {
		t.Errorf("order = [%s %s], want [b_good b_bad]", items[0].ID, items[1].ID)
	}
	if items[0].Score < items[1].Score {
		t.Errorf("scores not descending: %v < %v", items[0].Score, items[1].Score)
	}
}
