package feast

import (
	"context"
	"testing"
)

// 需要连接真实的 Feast 服务器才能运行的联通性测试。
func TestGrpcClientGetOnlineFeatures(t *testing.T) {
	t.Skip("需要连接真实的 Feast 服务器才能运行")

	ctx := context.Background()

	client, err := NewGrpcClient("localhost", 6565, "bookrec")
	if err != nil {
		t.Fatalf("创建客户端失败: %v", err)
	}
	defer client.Close()

	req := &GetOnlineFeaturesRequest{
		Features: []string{
			"book_stats:romantasy_confidence",
			"book_stats:spice_level",
		},
		EntityRows: []map[string]interface{}{
			{"book_id": "bk_1001"},
			{"book_id": "bk_1002"},
		},
		Project: "bookrec",
	}

	resp, err := client.GetOnlineFeatures(ctx, req)
	if err != nil {
		t.Fatalf("获取特征失败: %v", err)
	}

	if len(resp.FeatureVectors) != 2 {
		t.Errorf("期望 2 个特征向量，实际得到 %d 个", len(resp.FeatureVectors))
	}
}

func TestFromSDKValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected interface{}
	}{
		{"string", "hot-hockey-romance", "hot-hockey-romance"},
		{"int64", int64(100), float64(100)},
		{"float64", 0.93, 0.93},
		{"bool_true", true, float64(1)},
		{"bool_false", false, float64(0)},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fromSDKValue(tt.input)
			if result != tt.expected {
				t.Errorf("fromSDKValue(%v) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		port     int
	}{
		{"localhost:6565", "localhost", 6565},
		{"grpc://feast.internal:6565", "feast.internal", 6565},
		{"feast.internal", "feast.internal", 0},
	}

	for _, tt := range tests {
		host, port := parseEndpoint(tt.endpoint)
		if host != tt.host || port != tt.port {
			t.Errorf("parseEndpoint(%q) = (%q, %d), want (%q, %d)", tt.endpoint, host, port, tt.host, tt.port)
		}
	}
}
