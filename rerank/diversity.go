package rerank

import (
	"context"
	"strings"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pipeline"
)

// AuthorDiversity 是作者多样性 ReRank 节点：同一作者最多保留 Limit 本。
//
// 单遍扫描，按当前（分数降序）顺序统计每个作者的已保留数，
// 超限的物品剔除；存活物品的相对顺序不变（稳定截断，不是重排序）。
// 作者身份做归一化（小写、去首尾空白），避免大小写差异绕过上限。
type AuthorDiversity struct {
	// Limit 同一作者的保留上限；<= 0 时取配置，配置为空则取默认 3
	Limit int

	Config core.EngineConfig
}

func (n *AuthorDiversity) Name() string {
	return "rerank.author_diversity"
}

func (n *AuthorDiversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *AuthorDiversity) limit() int {
	if n.Limit > 0 {
		return n.Limit
	}
	if n.Config != nil {
		return n.Config.DiversityAuthorLimit()
	}
	return (&core.DefaultEngineConfig{}).DiversityAuthorLimit()
}

func (n *AuthorDiversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	limit := n.limit()
	count := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}

		author := ""
		if b := it.Book(); b != nil {
			author = normalizeAuthor(b.Author)
		}
		if author == "" {
			// 作者未知的书不受上限约束
			out = append(out, it)
			continue
		}
		if count[author] >= limit {
			continue
		}
		count[author]++
		out = append(out, it)
	}

	return out, nil
}

// normalizeAuthor 归一化作者身份："J.R. Ward" 与 "j.r. ward" 视作同一人。
func normalizeAuthor(author string) string {
	return strings.ToLower(strings.TrimSpace(author))
}
