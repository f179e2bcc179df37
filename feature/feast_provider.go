package feature

import (
	"context"

	"github.com/rushteam/bookrec/feast"
)

// FeastProvider 是基于 Feast Feature Store 的特征提供者。
// 将 feast.Client 适配为 FeatureProvider 接口：
// 读者/书籍的数值特征托管在 Feast 在线存储，按实体批量拉取。
type FeastProvider struct {
	client feast.Client

	// UserEntityKey 读者实体键名，默认 "reader_id"
	UserEntityKey string

	// ItemEntityKey 书籍实体键名，默认 "book_id"
	ItemEntityKey string

	// UserFeatures 要拉取的读者特征列表，例如
	// ["reader_stats:rating_count", "reader_stats:avg_rating"]
	UserFeatures []string

	// ItemFeatures 要拉取的书籍特征列表，例如
	// ["book_stats:romantasy_confidence", "book_stats:spice_level"]
	ItemFeatures []string
}

// NewFeastProvider 创建基于 Feast 的特征提供者
func NewFeastProvider(client feast.Client, userFeatures, itemFeatures []string) *FeastProvider {
	return &FeastProvider{
		client:        client,
		UserEntityKey: "reader_id",
		ItemEntityKey: "book_id",
		UserFeatures:  userFeatures,
		ItemFeatures:  itemFeatures,
	}
}

func (p *FeastProvider) Name() string {
	return "feast"
}

// fetch 批量拉取一组实体的特征，返回 map[entityID]map[feature]value。
// Feast 返回的非数值特征值被丢弃（FeatureProvider 的契约是数值特征）。
func (p *FeastProvider) fetch(ctx context.Context, entityKey string, features []string, ids []string) (map[string]map[string]float64, error) {
	if len(ids) == 0 || len(features) == 0 {
		return make(map[string]map[string]float64), nil
	}

	entityRows := make([]map[string]interface{}, len(ids))
	for i, id := range ids {
		entityRows[i] = map[string]interface{}{entityKey: id}
	}

	resp, err := p.client.GetOnlineFeatures(ctx, &feast.GetOnlineFeaturesRequest{
		Features:   features,
		EntityRows: entityRows,
	})
	if err != nil {
		return nil, err
	}

	result := make(map[string]map[string]float64, len(ids))
	for i, fv := range resp.FeatureVectors {
		if i >= len(ids) {
			break
		}
		values := make(map[string]float64, len(fv.Values))
		for name, v := range fv.Values {
			if f, ok := v.(float64); ok {
				values[name] = f
			}
		}
		if len(values) > 0 {
			result[ids[i]] = values
		}
	}
	return result, nil
}

func (p *FeastProvider) GetUserFeatures(ctx context.Context, userID string) (map[string]float64, error) {
	result, err := p.fetch(ctx, p.UserEntityKey, p.UserFeatures, []string{userID})
	if err != nil {
		return nil, err
	}
	features, ok := result[userID]
	if !ok {
		return nil, ErrFeatureNotFound
	}
	return features, nil
}

func (p *FeastProvider) BatchGetUserFeatures(ctx context.Context, userIDs []string) (map[string]map[string]float64, error) {
	return p.fetch(ctx, p.UserEntityKey, p.UserFeatures, userIDs)
}

func (p *FeastProvider) GetItemFeatures(ctx context.Context, bookID string) (map[string]float64, error) {
	result, err := p.fetch(ctx, p.ItemEntityKey, p.ItemFeatures, []string{bookID})
	if err != nil {
		return nil, err
	}
	features, ok := result[bookID]
	if !ok {
		return nil, ErrFeatureNotFound
	}
	return features, nil
}

func (p *FeastProvider) BatchGetItemFeatures(ctx context.Context, bookIDs []string) (map[string]map[string]float64, error) {
	return p.fetch(ctx, p.ItemEntityKey, p.ItemFeatures, bookIDs)
}

// 确保实现 FeatureProvider 接口
var _ FeatureProvider = (*FeastProvider)(nil)
