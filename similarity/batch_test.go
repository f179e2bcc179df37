package similarity

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/store"
)

// 三个 eligible 用户：u1 与 u2 完全一致（正相似），u3 与两者负相关。
func batchTestRows() []recall.RatingRow {
	return []recall.RatingRow{
		{UserID: "u1", BookID: "b1", Rating: 5, Sharing: true},
		{UserID: "u1", BookID: "b2", Rating: 4, Sharing: true},
		{UserID: "u1", BookID: "b3", Rating: 3, Sharing: true},
		{UserID: "u2", BookID: "b1", Rating: 5, Sharing: true},
		{UserID: "u2", BookID: "b2", Rating: 4, Sharing: true},
		{UserID: "u2", BookID: "b3", Rating: 3, Sharing: true},
		{UserID: "u3", BookID: "b1", Rating: 3, Sharing: true},
		{UserID: "u3", BookID: "b2", Rating: 4, Sharing: true},
		{UserID: "u3", BookID: "b3", Rating: 5, Sharing: true},
	}
}

func setupBatchTest(t *testing.T, rows []recall.RatingRow) (*BatchMatrixBuilder, *StoreSimilarityAdapter, core.Store) {
	t.Helper()
	ctx := context.Background()

	ms := store.NewMemoryStore()
	ratings := recall.NewStoreRatingsAdapter(ms, "ratings")
	if err := recall.SetupRatingTestData(ctx, ratings, rows); err != nil {
		t.Fatalf("SetupRatingTestData() error = %v", err)
	}
	simStore := NewStoreSimilarityAdapter(ms, "sim")

	return &BatchMatrixBuilder{
		Ratings: ratings,
		Store:   simStore,
		Config:  &core.StaticEngineConfig{Overlap: 2},
	}, simStore, ms
}

func TestBatchComputeAll(t *testing.T) {
	b, simStore, _ := setupBatchTest(t, batchTestRows())
	ctx := context.Background()

	stats, err := b.ComputeAll(ctx)
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}

	// u1↔u2 互为正相似；u3 只有负相关邻居，无边可写
	if stats.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", stats.UsersProcessed)
	}
	if stats.SimilaritiesComputed != 2 {
		t.Errorf("SimilaritiesComputed = %d, want 2", stats.SimilaritiesComputed)
	}
	if stats.UsersSkipped != 1 {
		t.Errorf("UsersSkipped = %d, want 1", stats.UsersSkipped)
	}

	edges, err := simStore.GetEdges(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("GetEdges() error = %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("u1 has %d edges, want 1", len(edges))
	}
	e := edges[0]
	if e.NeighborID != "u2" || e.OverlapCount != 3 {
		t.Errorf("edge = %+v, want neighbor u2 overlap 3", e)
	}
	if math.Abs(e.Raw-1.0) > 1e-6 {
		t.Errorf("Raw = %v, want 1.0", e.Raw)
	}
	if math.Abs(e.Adjusted-3.0/13.0) > 1e-6 {
		t.Errorf("Adjusted = %v, want %v", e.Adjusted, 3.0/13.0)
	}

	// 负相关用户没有持久化的边
	edges, err = simStore.GetEdges(ctx, "u3", 0, 0)
	if err != nil {
		t.Fatalf("GetEdges(u3) error = %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("u3 has %d edges, want 0", len(edges))
	}
}

func TestBatchComputeAll_Progress(t *testing.T) {
	b, _, _ := setupBatchTest(t, batchTestRows())

	var mu sync.Mutex
	calls := 0
	lastTotal := 0
	b.Progress = func(current, total int) {
		mu.Lock()
		calls++
		lastTotal = total
		mu.Unlock()
	}

	if _, err := b.ComputeAll(context.Background()); err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("progress called %d times, want 3", calls)
	}
	if lastTotal != 3 {
		t.Errorf("progress total = %d, want 3", lastTotal)
	}
}

// flakyRatings 让指定用户的评分读取失败，其余委托底层实现。
type flakyRatings struct {
	core.RatingSource
	failUser string
}

func (f *flakyRatings) GetRatings(ctx context.Context, userID string) (map[string]float64, error) {
	if userID == f.failUser {
		return nil, errors.New("transient read failure")
	}
	return f.RatingSource.GetRatings(ctx, userID)
}

func TestBatchComputeAll_ProgressCountsUnloadableUsers(t *testing.T) {
	b, _, _ := setupBatchTest(t, batchTestRows())
	ctx := context.Background()

	// u3 eligible 但评分读取失败：进入跳过路径
	b.Ratings = &flakyRatings{RatingSource: b.Ratings, failUser: "u3"}

	var mu sync.Mutex
	calls := 0
	lastTotal := 0
	b.Progress = func(current, total int) {
		mu.Lock()
		calls++
		lastTotal = total
		mu.Unlock()
	}

	stats, err := b.ComputeAll(ctx)
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}
	// 跳过的用户同样占一个进度刻度，total 覆盖全部 eligible 用户
	if calls != 3 {
		t.Errorf("progress called %d times, want 3", calls)
	}
	if lastTotal != 3 {
		t.Errorf("progress total = %d, want 3", lastTotal)
	}
	if stats.UsersSkipped != 1 {
		t.Errorf("UsersSkipped = %d, want 1", stats.UsersSkipped)
	}
	if stats.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", stats.UsersProcessed)
	}
}

func TestBatchComputeAll_CheckpointResume(t *testing.T) {
	b, simStore, ms := setupBatchTest(t, batchTestRows())
	ctx := context.Background()

	// 模拟上一轮已提交 u1 后中断
	prev := &Checkpoint{Store: ms}
	if _, err := prev.Load(ctx); err != nil {
		t.Fatalf("Checkpoint.Load() error = %v", err)
	}
	if err := prev.MarkDone(ctx, "u1"); err != nil {
		t.Fatalf("Checkpoint.MarkDone() error = %v", err)
	}

	b.Checkpoint = &Checkpoint{Store: ms}
	stats, err := b.ComputeAll(ctx)
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}

	// u1 断点命中（计入 processed，不重写边），u2 正常提交，u3 无边
	if stats.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", stats.UsersProcessed)
	}
	if stats.SimilaritiesComputed != 1 {
		t.Errorf("SimilaritiesComputed = %d, want 1 (u1 resumed from checkpoint)", stats.SimilaritiesComputed)
	}

	edges, err := simStore.GetEdges(ctx, "u1", 0, 0)
	if err != nil {
		t.Fatalf("GetEdges(u1) error = %v", err)
	}
	if len(edges) != 0 {
		t.Errorf("u1 has %d edges, want 0 (skipped via checkpoint)", len(edges))
	}

	// 完整跑完后断点被清除
	resumed := &Checkpoint{Store: ms}
	done, err := resumed.Load(ctx)
	if err != nil {
		t.Fatalf("Checkpoint.Load() after run error = %v", err)
	}
	if len(done) != 0 {
		t.Errorf("checkpoint not cleared after full run: %v", done)
	}
}

func TestBatchComputeAll_Concurrent(t *testing.T) {
	b, simStore, _ := setupBatchTest(t, batchTestRows())
	b.Concurrency = 4

	stats, err := b.ComputeAll(context.Background())
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}
	if stats.UsersProcessed != 2 {
		t.Errorf("UsersProcessed = %d, want 2", stats.UsersProcessed)
	}

	edges, err := simStore.GetEdges(context.Background(), "u2", 0, 0)
	if err != nil {
		t.Fatalf("GetEdges(u2) error = %v", err)
	}
	if len(edges) != 1 || edges[0].NeighborID != "u1" {
		t.Errorf("u2 edges = %+v, want single edge to u1", edges)
	}
}

func TestBatchComputeAll_NoEligibleUsers(t *testing.T) {
	b, _, _ := setupBatchTest(t, []recall.RatingRow{
		// 未授权共享：不参与批计算
		{UserID: "u1", BookID: "b1", Rating: 5, Sharing: false},
		{UserID: "u1", BookID: "b2", Rating: 4, Sharing: false},
	})

	stats, err := b.ComputeAll(context.Background())
	if err != nil {
		t.Fatalf("ComputeAll() error = %v", err)
	}
	if stats.UsersProcessed != 0 || stats.SimilaritiesComputed != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}
