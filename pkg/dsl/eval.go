package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/bookrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("book", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是过滤/策略表达式解释器，使用 CEL (Common Expression Language) 实现。
// CEL 是 Google 开发的表达式语言，具有类型安全、高性能、线程安全等特性。
//
// 表达式语法（CEL 标准语法）：
//   - 标签：label.recall_source == "recall.popular"
//   - 数值：item.score > 4.0 / item.features["confidence"] >= 0.1
//   - 书籍：book.spice_level >= 3 / book.author == "..."
//   - 逻辑：label.recall_source != null && item.score > 3.5
//   - 包含："enemies-to-lovers" in book.tags
//
// 示例：
//   - `item.features["neighbor_count"] >= 3.0` → 至少 3 个邻居贡献
//   - `book.publication_year >= 2020 && item.score > 4.0` → 新书且高预测分
type Eval struct {
	item *core.Item
	rctx *core.RecommendContext
	env  *cel.Env
}

// NewEval 创建一个新的表达式解释器。
func NewEval(item *core.Item, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item: item,
		rctx: rctx,
		env:  env,
	}
}

// Evaluate 解析并执行表达式，返回布尔结果。
// 空表达式视为恒真。
// 注意：CEL 访问不存在的 key 会报错，存在性检查请用 label.key != null。
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}
	if e.env == nil {
		return false, fmt.Errorf("cel env not initialized")
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据。
// 书籍元数据展开为扁平 map（而非透传 *core.Book），保证 CEL 可遍历。
func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	labelAccessor := make(map[string]interface{})
	for k, v := range e.item.Labels {
		labels[k] = map[string]interface{}{
			"value":  v.Value,
			"source": v.Source,
		}
		// label.recall_source 直接取 value，兼容简写
		labelAccessor[k] = v.Value
	}

	item := map[string]interface{}{
		"id":       e.item.ID,
		"score":    e.item.Score,
		"features": e.item.Features,
		"labels":   labels,
	}

	book := make(map[string]interface{})
	if b := e.item.Book(); b != nil {
		spice := -1
		if b.SpiceLevel != nil {
			spice = *b.SpiceLevel
		}
		isYA := false
		yaKnown := b.IsYA != nil
		if yaKnown {
			isYA = *b.IsYA
		}
		tags := make([]interface{}, 0, len(b.Tags))
		for _, t := range b.Tags {
			tags = append(tags, t)
		}
		book = map[string]interface{}{
			"id":                    b.ID,
			"title":                 b.Title,
			"author":                b.Author,
			"publication_year":      b.PublicationYear,
			"spice_level":           spice, // -1 表示未知
			"is_ya":                 isYA,
			"is_ya_known":           yaKnown,
			"tags":                  tags,
			"is_why_choose":         b.IsWhyChoose,
			"why_choose_confidence": b.WhyChooseConfidence,
			"romantasy_confidence":  b.RomantasyConfidence,
		}
	}

	rctx := map[string]interface{}{}
	if e.rctx != nil {
		rctx = map[string]interface{}{
			"user_id": e.rctx.UserID,
			"scene":   e.rctx.Scene,
			"params":  e.rctx.Params,
		}
	}

	return map[string]interface{}{
		"item":  item,
		"label": labelAccessor,
		"book":  book,
		"rctx":  rctx,
	}
}
