package core

import "github.com/rushteam/bookrec/pkg/utils"

// Item 是推荐链路中的统一承载结构：特征、分数、元信息、标签。
// 在本工具包中 ID 为书籍 ID，Score 为预测评分；
// Labels 用于解释与策略驱动，Meta 承载书籍元数据与邻居贡献明细。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

// Meta 约定 key（各 Node 之间的数据契约）：
const (
	// MetaBook 是 *core.Book，由 enrich 节点批量注入
	MetaBook = "book"
	// MetaContributors 是 []core.Contribution，由邻居召回注入
	MetaContributors = "contributors"
	// MetaExplanation 是 *core.Explanation，由解释节点注入
	MetaExplanation = "explanation"
)

// Feature 约定 key：
const (
	FeatureConfidence        = "confidence"
	FeatureNeighborCount     = "neighbor_count"
	FeatureAvgNeighborRating = "avg_neighbor_rating"
)

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// Book 返回 Meta 中注入的书籍元数据；未注入时返回 nil。
func (it *Item) Book() *Book {
	if it.Meta == nil {
		return nil
	}
	if b, ok := it.Meta[MetaBook].(*Book); ok {
		return b
	}
	return nil
}

// Contributors 返回 Meta 中的邻居贡献明细；冷启动物品返回 nil。
func (it *Item) Contributors() []Contribution {
	if it.Meta == nil {
		return nil
	}
	if cs, ok := it.Meta[MetaContributors].([]Contribution); ok {
		return cs
	}
	return nil
}

// Explanation 返回解释节点注入的解释信息；未注入时返回 nil。
func (it *Item) Explanation() *Explanation {
	if it.Meta == nil {
		return nil
	}
	if e, ok := it.Meta[MetaExplanation].(*Explanation); ok {
		return e
	}
	return nil
}
