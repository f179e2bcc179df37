// Package bookrec 是一个书籍推荐引擎工具包（Book Recommender Kit）。
//
// 面向"读者-读者"协同过滤（User-User CF）场景：
// - 相似度：共同评分上的 Pearson 相关 / 均值中心化余弦，带显著性加权（shrinkage）
// - 召回：邻居加权评分召回 + 热门兜底（冷启动）
// - 过滤：辣度区间 / YA / 内容预警 / trope 标签包含与排除 / CEL 表达式
// - 重排：作者多样性上限 + 分页
// - 解释：邻居数量 / 共同喜爱书目的模板化解释文案
//
// 设计要点：
// - Pipeline-first: 所有推荐逻辑通过 Node 串联（Recall → Filter → ReRank → PostProcess）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测 / 策略驱动
// - Node 可扩展: 自定义 Node 即可插拔扩展
package bookrec

import "github.com/rushteam/bookrec/pipeline"

// 轻量 facade：便于用户直接 import "bookrec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRank        = pipeline.KindRank
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
