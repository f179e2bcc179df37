package feast

import (
	"context"
	"strconv"
	"strings"
)

// DefaultClientFactory 是默认的客户端工厂，创建基于官方 SDK 的 gRPC 客户端。
type DefaultClientFactory struct{}

func (f *DefaultClientFactory) NewClient(_ context.Context, endpoint, project string, opts ...ClientOption) (Client, error) {
	host, port := parseEndpoint(endpoint)
	return NewGrpcClient(host, port, project, opts...)
}

// NewClient 统一的客户端创建函数。
//
// 参数：
//   - endpoint: Feature Server 端点，例如 "localhost:6565" 或 "grpc://feast.internal:6565"
//   - project: 项目名称
//
// 示例：
//
//	client, err := feast.NewClient("localhost:6565", "bookrec")
func NewClient(endpoint, project string, opts ...ClientOption) (Client, error) {
	factory := &DefaultClientFactory{}
	return factory.NewClient(context.Background(), endpoint, project, opts...)
}

// parseEndpoint 解析端点地址，返回 host 和 port。
func parseEndpoint(endpoint string) (string, int) {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "grpc://")

	parts := strings.Split(endpoint, ":")
	if len(parts) == 2 {
		port, err := strconv.Atoi(parts[1])
		if err == nil {
			return parts[0], port
		}
	}

	// 没有端口时返回 0，由客户端取默认端口
	return endpoint, 0
}
