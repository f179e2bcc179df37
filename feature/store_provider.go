package feature

import (
	"context"
	"encoding/json"

	"github.com/rushteam/bookrec/core"
	"github.com/rushteam/bookrec/store"
)

// StoreFeatureProvider 是基于 Store 的特征提供者实现，采用适配器模式。
// 将 store.Store 适配为 FeatureProvider 接口。
//
// 存储布局：
//
//	读者特征：{User 前缀}{userID} → JSON map[feature]value
//	书籍特征：{Item 前缀}{bookID} → JSON map[feature]value
type StoreFeatureProvider struct {
	store     store.Store
	keyPrefix KeyPrefix
}

// KeyPrefix 定义特征存储的 key 前缀
type KeyPrefix struct {
	User string // 读者特征前缀，例如 "reader:features:"
	Item string // 书籍特征前缀，例如 "book:features:"
}

// NewStoreFeatureProvider 创建基于 Store 的特征提供者
func NewStoreFeatureProvider(s store.Store, keyPrefix KeyPrefix) *StoreFeatureProvider {
	if keyPrefix.User == "" {
		keyPrefix.User = "reader:features:"
	}
	if keyPrefix.Item == "" {
		keyPrefix.Item = "book:features:"
	}
	return &StoreFeatureProvider{
		store:     s,
		keyPrefix: keyPrefix,
	}
}

func (p *StoreFeatureProvider) Name() string {
	return "store." + p.store.Name()
}

func (p *StoreFeatureProvider) getOne(ctx context.Context, key string) (map[string]float64, error) {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, ErrFeatureNotFound
		}
		return nil, err
	}

	var features map[string]float64
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, err
	}
	return features, nil
}

func (p *StoreFeatureProvider) batchGet(ctx context.Context, prefix string, ids []string) (map[string]map[string]float64, error) {
	if len(ids) == 0 {
		return make(map[string]map[string]float64), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}

	dataMap, err := p.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]float64, len(dataMap))
	for i, id := range ids {
		data, ok := dataMap[keys[i]]
		if !ok {
			continue
		}
		var features map[string]float64
		if err := json.Unmarshal(data, &features); err != nil {
			// 跳过反序列化失败的特征
			continue
		}
		result[id] = features
	}
	return result, nil
}

func (p *StoreFeatureProvider) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	return p.getOne(ctx, p.keyPrefix.User+userID)
}

func (p *StoreFeatureProvider) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	return p.batchGet(ctx, p.keyPrefix.User, userIDs)
}

func (p *StoreFeatureProvider) GetItemFeatures(ctx context.Context, bookID string) (map[string]float64, error) {
	return p.getOne(ctx, p.keyPrefix.Item+bookID)
}

func (p *StoreFeatureProvider) BatchGetItemFeatures(ctx context.Context, bookIDs []string) (map[string]map[string]float64, error) {
	return p.batchGet(ctx, p.keyPrefix.Item, bookIDs)
}

// 确保实现 FeatureProvider 接口
var _ FeatureProvider = (*StoreFeatureProvider)(nil)
