package filter

import (
	"context"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/pkg/dsl"
)

// ExpressionFilter 是 CEL 表达式过滤器：表达式为真时保留，为假时过滤。
// 表达式来自两处，任一为空则跳过：
//   - Expr 字段：装配时静态配置（运营策略）
//   - rctx.Filters.Expression：请求级动态条件
//
// 示例：
//   - `book.publication_year >= 2020` → 只出新书
//   - `item.features["confidence"] >= 0.1` → 过滤低置信候选
type ExpressionFilter struct {
	Expr string
}

func (f *ExpressionFilter) Name() string {
	return "filter.expression"
}

func (f *ExpressionFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	exprs := make([]string, 0, 2)
	if f.Expr != "" {
		exprs = append(exprs, f.Expr)
	}
	if rctx != nil && rctx.Filters != nil && rctx.Filters.Expression != "" {
		exprs = append(exprs, rctx.Filters.Expression)
	}
	if len(exprs) == 0 {
		return false, nil
	}

	eval := dsl.NewEval(item, rctx)
	for _, expr := range exprs {
		keep, err := eval.Evaluate(expr)
		if err != nil {
			return false, err
		}
		if !keep {
			return true, nil
		}
	}
	return false, nil
}
