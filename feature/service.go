// Package feature 提供读者/书籍数值特征的获取与缓存。
// 领域接口是 core.FeatureService；本包给出组合式实现：
// Provider（Store / Feast）+ 可选缓存装饰器。
package feature

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFeatureNotFound 特征未找到
	ErrFeatureNotFound = errors.New("feature: feature not found")
	// ErrFeatureServiceUnavailable 特征服务不可用
	ErrFeatureServiceUnavailable = errors.New("feature: service unavailable")
)

// FeatureProvider 是特征提供者的抽象接口，采用策略模式。
// 不同的特征源（Store、Feast、Memory）实现此接口。
type FeatureProvider interface {
	// Name 返回提供者名称
	Name() string

	// GetUserFeatures 获取读者特征
	GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error)

	// BatchGetUserFeatures 批量获取读者特征
	BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error)

	// GetItemFeatures 获取书籍特征
	GetItemFeatures(ctx context.Context, bookID string) (map[string]float64, error)

	// BatchGetItemFeatures 批量获取书籍特征
	BatchGetItemFeatures(ctx context.Context, bookIDs []string) (map[string]map[string]float64, error)
}

// FeatureCache 是特征缓存接口，采用装饰器模式，为特征服务添加缓存能力。
type FeatureCache interface {
	// GetUserFeatures 从缓存获取读者特征
	GetUserFeatures(ctx context.Context, userID string) (map[string]float64, bool)

	// SetUserFeatures 设置读者特征缓存
	SetUserFeatures(ctx context.Context, userID string, features map[string]float64, ttl time.Duration)

	// GetItemFeatures 从缓存获取书籍特征
	GetItemFeatures(ctx context.Context, bookID string) (map[string]float64, bool)

	// SetItemFeatures 设置书籍特征缓存
	SetItemFeatures(ctx context.Context, bookID string, features map[string]float64, ttl time.Duration)

	// InvalidateUserFeatures 失效读者特征缓存
	InvalidateUserFeatures(ctx context.Context, userID string)

	// InvalidateItemFeatures 失效书籍特征缓存
	InvalidateItemFeatures(ctx context.Context, bookID string)

	// Clear 清空所有缓存
	Clear(ctx context.Context)
}
