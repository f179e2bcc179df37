// Package feast 提供 Feast Feature Store 的客户端抽象与 gRPC 实现。
// 书籍/读者的数值特征可以托管在 Feast 在线存储中，
// 由 feature.FeastProvider 适配为引擎的特征提供者。
package feast

import (
	"context"
	"time"
)

// Client 是 Feast Feature Store 的客户端接口。
//
// Feast 是一个开源的 Feature Store，这里只抽象引擎用到的在线读路径：
//   - 在线特征获取（打分/过滤用的书籍、读者数值特征）
//   - 特征注册信息查询（用于启动校验与观测）
//
// 参考：https://github.com/feast-dev/feast
type Client interface {
	// GetOnlineFeatures 获取在线特征。
	//
	// 参数：
	//   - features: 特征名称列表，例如 ["book_stats:romantasy_confidence", "book_stats:spice_level"]
	//   - entityRows: 实体行，例如 [{"book_id": "bk_1001"}]
	GetOnlineFeatures(ctx context.Context, req *GetOnlineFeaturesRequest) (*GetOnlineFeaturesResponse, error)

	// ListFeatures 列出所有可用的特征
	ListFeatures(ctx context.Context) ([]Feature, error)

	// GetFeatureService 获取特征服务信息
	GetFeatureService(ctx context.Context) (*FeatureServiceInfo, error)

	// Close 关闭客户端连接
	Close() error
}

// GetOnlineFeaturesRequest 获取在线特征请求
type GetOnlineFeaturesRequest struct {
	// Features 特征名称列表，例如 ["reader_stats:rating_count", "reader_stats:avg_rating"]
	Features []string

	// EntityRows 实体行，例如 [{"reader_id": "u_42"}, {"reader_id": "u_43"}]
	EntityRows []map[string]interface{}

	// Project 项目名称（可选，默认取客户端的 Project）
	Project string
}

// GetOnlineFeaturesResponse 获取在线特征响应
type GetOnlineFeaturesResponse struct {
	// FeatureVectors 特征向量列表，每个元素对应一个实体行
	FeatureVectors []FeatureVector

	// Metadata 元数据
	Metadata map[string]interface{}
}

// FeatureVector 特征向量
type FeatureVector struct {
	// Values 特征值，key 为特征名称
	Values map[string]interface{}

	// EntityRow 对应的实体行
	EntityRow map[string]interface{}
}

// Feature 特征定义
type Feature struct {
	// Name 特征名称，例如 "book_stats:romantasy_confidence"
	Name string

	// FeatureView 特征视图名称，例如 "book_stats"
	FeatureView string

	// ValueType 特征值类型，例如 "FLOAT", "INT64", "STRING"
	ValueType string

	// Description 特征描述
	Description string
}

// FeatureServiceInfo 特征服务信息
type FeatureServiceInfo struct {
	Endpoint     string
	Project      string
	FeatureViews []string
	OnlineStore  string
	OfflineStore string
}

// ClientFactory 是 Feast 客户端工厂接口（用于依赖注入）。
type ClientFactory interface {
	NewClient(ctx context.Context, endpoint string, project string, opts ...ClientOption) (Client, error)
}

// ClientOption Feast 客户端配置选项
type ClientOption func(*ClientConfig)

// ClientConfig Feast 客户端配置
type ClientConfig struct {
	// Endpoint 服务端点
	Endpoint string

	// Project 项目名称
	Project string

	// Timeout 超时时间
	Timeout time.Duration

	// Auth 认证信息
	Auth *AuthConfig
}

// AuthConfig 认证配置
type AuthConfig struct {
	// Type 认证类型：static（gRPC 静态 Token）
	Type string

	// Token Token（static auth）
	Token string
}

// WithTimeout 配置选项：设置超时时间
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithAuth 配置选项：设置认证信息
func WithAuth(auth *AuthConfig) ClientOption {
	return func(c *ClientConfig) {
		c.Auth = auth
	}
}
