// Package engine 是推荐引擎的编排层：把召回、过滤、重排、解释各 Node
// 装配成完整 Pipeline，并暴露面向调用方的高层操作。
//
// 引擎不拥有任何存储：评分、相似边、书目全部通过领域接口注入，
// 同一套编排可以跑在内存 Store（测试）或 Redis（线上）之上。
package engine

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/feature"
	"github.com/rushteam/bookrec/filter"
	"github.com/rushteam/bookrec/pipeline"
	"github.com/rushteam/bookrec/postprocess"
	"github.com/rushteam/bookrec/recall"
	"github.com/rushteam/bookrec/rerank"
	"github.com/rushteam/bookrec/similarity"
)

// FeedbackSourceRecommendation 是推荐反馈哨兵行的来源标记。
const FeedbackSourceRecommendation = "recommendation_feedback"

// 推荐反馈类型。只有"已读过"会把书从后续推荐中排除；
// 感兴趣/不感兴趣仅作为反馈信号接收，不改变已读状态。
const (
	FeedbackAlreadyRead   = "already_read"
	FeedbackInterested    = "interested"
	FeedbackNotInterested = "not_interested"
)

// Engine 是推荐引擎。零值不可用，使用 New 构建。
type Engine struct {
	ratings  core.RatingSource
	feedback core.RatingFeedback
	simStore core.SimilarityStore
	catalog  core.BookCatalog
	config   core.EngineConfig

	// features 可选：书籍数值特征注入（Feast / Store 供给）
	features core.FeatureService

	// suppressed 可选：全局屏蔽书单
	suppressed *filter.SuppressedFilter

	pipeline *pipeline.Pipeline
	pairwise *similarity.PairwiseComputer
}

// Option 配置 Engine 的可选依赖。
type Option func(*Engine)

// WithFeedback 注入反馈写入端（通常与 RatingSource 同一个适配器）。
func WithFeedback(fb core.RatingFeedback) Option {
	return func(e *Engine) { e.feedback = fb }
}

// WithFeatureService 注入特征服务，enrich 阶段会批量注入书籍数值特征。
func WithFeatureService(fs core.FeatureService) Option {
	return func(e *Engine) { e.features = fs }
}

// WithSuppressedFilter 注入全局屏蔽书单过滤器。
func WithSuppressedFilter(f *filter.SuppressedFilter) Option {
	return func(e *Engine) { e.suppressed = f }
}

// WithPipeline 覆盖默认 Pipeline（配置驱动装配时使用）。
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(e *Engine) { e.pipeline = p }
}

// New 构建推荐引擎。cfg 传 nil 时使用默认参数。
func New(
	ratings core.RatingSource,
	simStore core.SimilarityStore,
	catalog core.BookCatalog,
	cfg core.EngineConfig,
	opts ...Option,
) *Engine {
	if cfg == nil {
		cfg = &core.DefaultEngineConfig{}
	}
	e := &Engine{
		ratings:  ratings,
		simStore: simStore,
		catalog:  catalog,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pipeline == nil {
		e.pipeline = e.defaultPipeline()
	}
	e.pairwise = &similarity.PairwiseComputer{
		Ratings: ratings,
		Store:   simStore,
		Config:  cfg,
	}
	return e
}

// defaultPipeline 装配标准链路：
//
//	fanout(neighbor → popular, fallback 合并)
//	→ enrich（书目元数据 + 可选数值特征）
//	→ filter（推荐域 / 已读 / 辣度 / YA / 内容预警 / trope / 屏蔽 / 表达式）
//	→ 作者多样性约束
//	→ 分页
//	→ 解释生成
//
// 分页放在解释之前：只为最终出页的物品生成解释文案。
func (e *Engine) defaultPipeline() *pipeline.Pipeline {
	fanout := &recall.Fanout{
		Sources: []recall.Source{
			&recall.NeighborRecall{
				Ratings: e.ratings,
				Store:   e.simStore,
				Config:  e.config,
			},
			&recall.Popular{
				Catalog: e.catalog,
				Ratings: e.ratings,
			},
		},
		Timeout:       5 * time.Second,
		MergeStrategy: "fallback",
	}

	filters := []filter.Filter{
		&filter.DomainFilter{},
		&filter.ReadFilter{Ratings: e.ratings},
		&filter.SpiceFilter{},
		&filter.AudienceFilter{},
		&filter.ContentWarningFilter{},
		&filter.TropeFilter{},
	}
	if e.suppressed != nil {
		filters = append(filters, e.suppressed)
	}
	filters = append(filters, &filter.ExpressionFilter{})

	return &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			fanout,
			&feature.EnrichNode{
				Catalog:        e.catalog,
				FeatureService: e.features,
			},
			&filter.FilterNode{Filters: filters},
			&rerank.AuthorDiversity{Config: e.config},
			&rerank.PageNode{},
			&postprocess.ExplainNode{
				Ratings: e.ratings,
				Catalog: e.catalog,
			},
		},
	}
}

// GetRecommendations 为用户生成推荐列表。
//
// filters 传 nil 表示不做内容过滤；limit <= 0 回落到 10，offset < 0 回落到 0。
// 过滤条件在这里做边界校验，核心链路内部不再产生校验错误。
func (e *Engine) GetRecommendations(
	ctx context.Context,
	userID string,
	filters *core.RecommendationFilters,
	limit, offset int,
) ([]*core.Recommendation, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"recommendations: user_id is required")
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	rctx := &core.RecommendContext{
		UserID:  userID,
		Scene:   "recommendation",
		Filters: filters,
		Params: map[string]any{
			"limit":  limit,
			"offset": offset,
		},
	}

	items, err := e.pipeline.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	recs := make([]*core.Recommendation, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rec := &core.Recommendation{
			BookID:          item.ID,
			Book:            item.Book(),
			PredictedRating: item.Score,
			Confidence:      item.Features[core.FeatureConfidence],
		}
		if exp := item.Explanation(); exp != nil {
			rec.Explanation = *exp
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// RecordFeedback 记录用户对某条推荐的反馈。
//
// 只有 already_read 会写入哨兵评分行（rating=0）把书从后续推荐中排除，
// 已有任何评分行则什么都不做（幂等）；interested / not_interested 仅接收
// 信号，不改变已读状态。哨兵写入是 best-effort：失败只记录日志不上抛，
// 绝不破坏推荐读路径。
func (e *Engine) RecordFeedback(ctx context.Context, userID, bookID, feedback string) error {
	if userID == "" || bookID == "" {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"feedback: user_id and book_id are required")
	}
	switch feedback {
	case FeedbackAlreadyRead, FeedbackInterested, FeedbackNotInterested:
	default:
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"feedback: unknown feedback kind: "+feedback)
	}
	if e.feedback == nil {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotSupported,
			"feedback: no feedback sink configured")
	}
	if feedback != FeedbackAlreadyRead {
		return nil
	}
	if err := e.feedback.RecordSentinel(ctx, userID, bookID, FeedbackSourceRecommendation); err != nil {
		log.Printf("engine: record feedback user=%s book=%s: %v", userID, bookID, err)
	}
	return nil
}

// ExplanationDetail 是单条推荐的解释详情视图。
type ExplanationDetail struct {
	BookID string `json:"book_id"`

	// Neighbors 贡献邻居明细，按相似度降序
	Neighbors []core.Contribution `json:"neighbors"`

	// SharedBooks 与贡献邻居共同高分的书
	SharedBooks []*core.Book `json:"shared_books"`

	Explanation core.Explanation `json:"explanation"`
}

// maxExplainNeighbors 限制解释详情中展示的贡献邻居条数。
const maxExplainNeighbors = 10

// ExplainRecommendation 生成某本候选书的解释详情：
// 贡献邻居明细 + 共同高分书的完整书目记录。
//
// 只要有任一邻居评过这本书就可解释——不套用推荐链路的最小邻居数门槛，
// 已经出到用户面前的单邻居推荐同样能回答"为什么推荐这本"。
// 无任何邻居评过分时返回 NOT_FOUND。
func (e *Engine) ExplainRecommendation(ctx context.Context, userID, bookID string) (*ExplanationDetail, error) {
	if userID == "" || bookID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"explain: user_id and book_id are required")
	}

	edges, err := e.simStore.GetEdges(ctx, userID, 0, e.config.NeighborPoolSize())
	if err != nil {
		return nil, err
	}
	notFound := core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
		"explain: book not reachable from user neighborhood")
	if len(edges) == 0 {
		return nil, notFound
	}

	similarityByID := make(map[string]float64, len(edges))
	neighborIDs := make([]string, 0, len(edges))
	for _, edge := range edges {
		similarityByID[edge.NeighborID] = edge.Adjusted
		neighborIDs = append(neighborIDs, edge.NeighborID)
	}

	byBook, err := e.ratings.GetNeighborRatings(ctx, neighborIDs, nil)
	if err != nil {
		return nil, err
	}

	var simSum, weightedSum, ratingSum float64
	contributors := make([]core.Contribution, 0, len(byBook[bookID]))
	for neighborID, rating := range byBook[bookID] {
		sim, ok := similarityByID[neighborID]
		if !ok || sim <= 0 {
			continue
		}
		simSum += sim
		weightedSum += sim * rating
		ratingSum += rating
		contributors = append(contributors, core.Contribution{
			NeighborID: neighborID,
			Similarity: sim,
			Rating:     rating,
		})
	}
	if len(contributors) == 0 || simSum <= 0 {
		return nil, notFound
	}

	sort.Slice(contributors, func(i, j int) bool {
		if contributors[i].Similarity != contributors[j].Similarity {
			return contributors[i].Similarity > contributors[j].Similarity
		}
		return contributors[i].NeighborID < contributors[j].NeighborID
	})
	avgRating := ratingSum / float64(len(contributors))
	neighborCount := len(contributors)
	if len(contributors) > maxExplainNeighbors {
		contributors = contributors[:maxExplainNeighbors]
	}

	target := core.NewItem(bookID)
	target.Score = weightedSum / simSum
	target.Features[core.FeatureNeighborCount] = float64(neighborCount)
	target.Features[core.FeatureAvgNeighborRating] = avgRating
	target.Meta[core.MetaContributors] = contributors

	rctx := &core.RecommendContext{UserID: userID, Scene: "explanation"}
	explain := &postprocess.ExplainNode{Ratings: e.ratings, Catalog: e.catalog}
	if _, err := explain.Process(ctx, rctx, []*core.Item{target}); err != nil {
		return nil, err
	}

	detail := &ExplanationDetail{
		BookID:    bookID,
		Neighbors: target.Contributors(),
	}
	if exp := target.Explanation(); exp != nil {
		detail.Explanation = *exp
	}

	shared, err := e.sharedBooks(ctx, userID, detail.Neighbors)
	if err != nil {
		return nil, err
	}
	detail.SharedBooks = shared
	return detail, nil
}

// sharedBooks 计算用户与前 5 位贡献邻居的共同高分书（>=4），
// 返回完整书目记录（ID 排序保证确定性）。
func (e *Engine) sharedBooks(ctx context.Context, userID string, neighbors []core.Contribution) ([]*core.Book, error) {
	if len(neighbors) == 0 || e.catalog == nil {
		return nil, nil
	}
	userIDs := []string{userID}
	for i, c := range neighbors {
		if i >= 5 {
			break
		}
		userIDs = append(userIDs, c.NeighborID)
	}

	favorites, err := e.ratings.GetHighRatedBookIDs(ctx, userIDs, 4)
	if err != nil {
		return nil, err
	}
	userFavs := make(map[string]bool, len(favorites[userID]))
	for _, bookID := range favorites[userID] {
		userFavs[bookID] = true
	}

	sharedIDs := make([]string, 0)
	seen := make(map[string]bool)
	for _, neighborID := range userIDs[1:] {
		for _, bookID := range favorites[neighborID] {
			if userFavs[bookID] && !seen[bookID] {
				seen[bookID] = true
				sharedIDs = append(sharedIDs, bookID)
			}
		}
	}
	if len(sharedIDs) == 0 {
		return nil, nil
	}
	sort.Strings(sharedIDs)

	books, err := e.catalog.GetBooks(ctx, sharedIDs)
	if err != nil {
		return nil, err
	}
	out := make([]*core.Book, 0, len(sharedIDs))
	for _, bookID := range sharedIDs {
		if b, ok := books[bookID]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// ComputeSimilarities 同步计算并持久化单个用户的相似边，返回写入条数。
// 新用户首次授权共享数据后调用，立即获得邻居推荐能力。
func (e *Engine) ComputeSimilarities(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"similarity: user_id is required")
	}
	return e.pairwise.ComputeAndSave(ctx, userID)
}

// BuildSimilarityMatrix 离线批量重算所有符合条件用户的相似边。
// checkpoint 传 nil 时不做断点续跑。
func (e *Engine) BuildSimilarityMatrix(
	ctx context.Context,
	concurrency int,
	checkpoint *similarity.Checkpoint,
	progress similarity.ProgressFunc,
) (*similarity.BatchStats, error) {
	builder := &similarity.BatchMatrixBuilder{
		Ratings:     e.ratings,
		Store:       e.simStore,
		Config:      e.config,
		Concurrency: concurrency,
		Checkpoint:  checkpoint,
		Progress:    progress,
	}
	return builder.ComputeAll(ctx)
}
