package core

// Explanation 是单条推荐的解释信息。
type Explanation struct {
	// SimilarUserCount 贡献打分的相似读者数
	SimilarUserCount int `json:"similar_user_count"`

	// AverageNeighborRating 贡献邻居的平均评分
	AverageNeighborRating float64 `json:"average_neighbor_rating"`

	// TopSharedTitles 与贡献邻居共同高分（>=4）的书名，最多 5 条
	TopSharedTitles []string `json:"top_shared_titles"`

	// SampleExplanation 模板化解释文案，例如
	// "3 similar readers who also loved Fourth Wing rated this 4.5★ average"
	SampleExplanation string `json:"sample_explanation"`
}

// Recommendation 是对外输出的一条推荐结果（请求级临时数据，不持久化）。
type Recommendation struct {
	BookID string `json:"book_id"`

	// Book 书籍元数据（enrich 注入；冷启动路径同样填充）
	Book *Book `json:"book,omitempty"`

	// PredictedRating 加权平均预测评分；冷启动兜底时为 0
	PredictedRating float64 `json:"predicted_rating"`

	// Confidence 置信度启发式 min(n/10,1)*min(Σsim/2,1)；冷启动兜底时为 0
	Confidence float64 `json:"confidence"`

	Explanation Explanation `json:"explanation"`
}
