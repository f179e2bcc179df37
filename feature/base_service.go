package feature

import (
	"context"
	"time"

	"github.com/rushteam/bookrec/core"
)

// BaseFeatureService 是特征服务的基础实现，采用组合模式，
// 将 FeatureProvider 与可选的缓存装饰器组合。
type BaseFeatureService struct {
	provider    FeatureProvider
	cache       FeatureCache
	enableCache bool
	cacheTTL    time.Duration
}

// NewBaseFeatureService 创建基础特征服务
func NewBaseFeatureService(provider FeatureProvider, opts ...ServiceOption) *BaseFeatureService {
	service := &BaseFeatureService{
		provider: provider,
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ServiceOption 是特征服务的配置选项，采用函数式选项模式。
type ServiceOption func(*BaseFeatureService)

// WithCache 启用缓存
func WithCache(cache FeatureCache, ttl time.Duration) ServiceOption {
	return func(s *BaseFeatureService) {
		s.cache = cache
		s.enableCache = true
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func (s *BaseFeatureService) Name() string {
	return s.provider.Name()
}

func (s *BaseFeatureService) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	if s.enableCache && s.cache != nil {
		if features, ok := s.cache.GetUserFeatures(ctx, userID); ok {
			return features, nil
		}
	}

	features, err := s.provider.GetUserFeatures(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.enableCache && s.cache != nil {
		s.cache.SetUserFeatures(ctx, userID, features, s.cacheTTL)
	}
	return features, nil
}

func (s *BaseFeatureService) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	if len(userIDs) == 0 {
		return make(map[string]map[string]float64), nil
	}

	result := make(map[string]map[string]float64)
	missedIDs := make([]string, 0)

	if s.enableCache && s.cache != nil {
		for _, userID := range userIDs {
			if features, ok := s.cache.GetUserFeatures(ctx, userID); ok {
				result[userID] = features
			} else {
				missedIDs = append(missedIDs, userID)
			}
		}
	} else {
		missedIDs = userIDs
	}

	if len(missedIDs) > 0 {
		features, err := s.provider.BatchGetUserFeatures(ctx, missedIDs)
		if err != nil {
			return result, err
		}
		for userID, f := range features {
			result[userID] = f
			if s.enableCache && s.cache != nil {
				s.cache.SetUserFeatures(ctx, userID, f, s.cacheTTL)
			}
		}
	}

	return result, nil
}

func (s *BaseFeatureService) GetItemFeatures(ctx context.Context, bookID string) (map[string]float64, error) {
	if s.enableCache && s.cache != nil {
		if features, ok := s.cache.GetItemFeatures(ctx, bookID); ok {
			return features, nil
		}
	}

	features, err := s.provider.GetItemFeatures(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if s.enableCache && s.cache != nil {
		s.cache.SetItemFeatures(ctx, bookID, features, s.cacheTTL)
	}
	return features, nil
}

func (s *BaseFeatureService) BatchGetItemFeatures(ctx context.Context, bookIDs []string) (map[string]map[string]float64, error) {
	if len(bookIDs) == 0 {
		return make(map[string]map[string]float64), nil
	}

	result := make(map[string]map[string]float64)
	missedIDs := make([]string, 0)

	if s.enableCache && s.cache != nil {
		for _, bookID := range bookIDs {
			if features, ok := s.cache.GetItemFeatures(ctx, bookID); ok {
				result[bookID] = features
			} else {
				missedIDs = append(missedIDs, bookID)
			}
		}
	} else {
		missedIDs = bookIDs
	}

	if len(missedIDs) > 0 {
		features, err := s.provider.BatchGetItemFeatures(ctx, missedIDs)
		if err != nil {
			return result, err
		}
		for bookID, f := range features {
			result[bookID] = f
			if s.enableCache && s.cache != nil {
				s.cache.SetItemFeatures(ctx, bookID, f, s.cacheTTL)
			}
		}
	}

	return result, nil
}

func (s *BaseFeatureService) Close(_ context.Context) error {
	if s.cache != nil {
		s.cache.Clear(context.Background())
	}
	return nil
}

// 确保 BaseFeatureService 实现了 core.FeatureService 接口
var _ core.FeatureService = (*BaseFeatureService)(nil)
