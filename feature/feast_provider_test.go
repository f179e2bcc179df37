package feature

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/bookrec/feast"
)

// fakeFeastClient 记录最近一次请求并返回预置响应。
type fakeFeastClient struct {
	lastReq *feast.GetOnlineFeaturesRequest
	resp    *feast.GetOnlineFeaturesResponse
	err     error
}

func (c *fakeFeastClient) GetOnlineFeatures(_ context.Context, req *feast.GetOnlineFeaturesRequest) (*feast.GetOnlineFeaturesResponse, error) {
	c.lastReq = req
	return c.resp, c.err
}

func (c *fakeFeastClient) ListFeatures(_ context.Context) ([]feast.Feature, error) { return nil, nil }

func (c *fakeFeastClient) GetFeatureService(_ context.Context) (*feast.FeatureServiceInfo, error) {
	return nil, nil
}

func (c *fakeFeastClient) Close() error { return nil }

func TestFeastProvider_BatchGetItemFeatures(t *testing.T) {
	client := &fakeFeastClient{
		resp: &feast.GetOnlineFeaturesResponse{
			FeatureVectors: []feast.FeatureVector{
				// 非数值特征值被丢弃
				{Values: map[string]interface{}{"book_stats:spice_level": 3.0, "book_stats:title": "Fourth Wing"}},
				// 全部非数值：实体整体不出现在结果里
				{Values: map[string]interface{}{"book_stats:title": "Iron Flame"}},
				{Values: map[string]interface{}{"book_stats:romantasy_confidence": 0.9}},
			},
		},
	}
	p := NewFeastProvider(client, nil, []string{"book_stats:spice_level", "book_stats:romantasy_confidence"})

	got, err := p.BatchGetItemFeatures(context.Background(), []string{"bk_1", "bk_2", "bk_3"})
	if err != nil {
		t.Fatalf("BatchGetItemFeatures() error = %v", err)
	}

	// 请求按书籍实体键逐行构建，顺序与入参一致
	if client.lastReq == nil || len(client.lastReq.EntityRows) != 3 {
		t.Fatalf("request entity rows = %+v, want 3 rows", client.lastReq)
	}
	if id := client.lastReq.EntityRows[0]["book_id"]; id != "bk_1" {
		t.Errorf("entity row[0][book_id] = %v, want bk_1", id)
	}

	if len(got) != 2 {
		t.Fatalf("BatchGetItemFeatures() returned %d entities, want 2", len(got))
	}
	if got["bk_1"]["book_stats:spice_level"] != 3.0 {
		t.Errorf("features[bk_1] = %v, want spice_level 3.0", got["bk_1"])
	}
	if _, ok := got["bk_1"]["book_stats:title"]; ok {
		t.Error("non-numeric feature value kept, want dropped")
	}
	if _, ok := got["bk_2"]; ok {
		t.Error("bk_2 present, want dropped (no numeric features)")
	}
	if got["bk_3"]["book_stats:romantasy_confidence"] != 0.9 {
		t.Errorf("features[bk_3] = %v, want romantasy_confidence 0.9", got["bk_3"])
	}
}

func TestFeastProvider_GetItemFeaturesNotFound(t *testing.T) {
	client := &fakeFeastClient{resp: &feast.GetOnlineFeaturesResponse{}}
	p := NewFeastProvider(client, nil, []string{"book_stats:spice_level"})

	_, err := p.GetItemFeatures(context.Background(), "bk_missing")
	if !errors.Is(err, ErrFeatureNotFound) {
		t.Errorf("GetItemFeatures(missing) error = %v, want ErrFeatureNotFound", err)
	}
}

func TestFeastProvider_ClientError(t *testing.T) {
	client := &fakeFeastClient{err: errors.New("online store unreachable")}
	p := NewFeastProvider(client, []string{"reader_stats:avg_rating"}, nil)

	if _, err := p.BatchGetUserFeatures(context.Background(), []string{"u_42"}); err == nil {
		t.Error("BatchGetUserFeatures() error = nil, want propagated client error")
	}
}
