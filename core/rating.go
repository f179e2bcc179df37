package core

import "context"

// 评分约定：
//   - 有效评分 ∈ [1,5]
//   - 0 是哨兵值，表示"已知但未评分/屏蔽"（例如反馈已读），
//     绝不进入任何统计计算，但参与"已读排除"。
const SentinelRating = 0

// RatingSource 是评分数据的领域接口（对本引擎只读，反馈写入见 RatingFeedback）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（recall 的 store 适配器等）实现
//   - 所有 Get* 方法只返回有效评分（value > 0），哨兵行只出现在 GetRatedBookIDs
type RatingSource interface {
	// Name 返回数据源名称（用于日志/监控）
	Name() string

	// GetRatings 获取某用户的全部有效评分 map[bookID]rating（1..5）
	GetRatings(ctx context.Context, userID string) (map[string]float64, error)

	// GetRatedBookIDs 获取某用户所有出现过评分行的书籍 ID（含哨兵 0 行），
	// 用于候选排除：已读/已反馈的书不再推荐。
	GetRatedBookIDs(ctx context.Context, userID string) ([]string, error)

	// GetEligibleUsers 获取参与离线批计算的用户：
	// 已授权共享数据，且有效评分数 >= minRatings。
	GetEligibleUsers(ctx context.Context, minRatings int) ([]string, error)

	// GetCandidateUsers 获取与目标用户可能相似的候选用户：
	// 只在目标用户评过的书集合（bookIDs）上做倒排查询，
	// 返回与目标共享 >= minShared 本书、且已授权共享数据的其他用户。
	GetCandidateUsers(ctx context.Context, userID string, bookIDs []string, minShared int) ([]string, error)

	// GetNeighborRatings 批量获取一组邻居在推荐候选书上的有效评分，
	// 按书分组返回 map[bookID]map[userID]rating；excludeBookIDs 中的书被跳过。
	// 一次取齐，打分/过滤/重排全程在内存中完成，避免逐条回查。
	GetNeighborRatings(ctx context.Context, neighborIDs []string, excludeBookIDs []string) (map[string]map[string]float64, error)

	// GetHighRatedBookIDs 批量获取一组用户的高分书（rating >= minRating），
	// 返回 map[userID][]bookID，用于解释文案中的"共同喜爱"书目。
	GetHighRatedBookIDs(ctx context.Context, userIDs []string, minRating float64) (map[string][]string, error)
}

// RatingFeedback 是推荐反馈的写入接口。
//
// 反馈写入是独立的 best-effort 操作：幂等（已有评分行则不再写入）、
// 失败只记录不上抛，绝不阻塞或破坏推荐读路径。
type RatingFeedback interface {
	// HasRating 检查是否已存在评分行（含哨兵行）
	HasRating(ctx context.Context, userID, bookID string) (bool, error)

	// RecordSentinel 写入哨兵评分行（rating=0），source 标记来源（如 "feedback"）
	RecordSentinel(ctx context.Context, userID, bookID, source string) error
}
