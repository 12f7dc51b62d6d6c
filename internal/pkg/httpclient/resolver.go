package httpclient

import (
	"context"
	"fmt"
	"strings"
)

// Resolver 返回下游服务的基础 URL，例如 http://10.0.0.3:8002。
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// StaticResolver 直接使用配置中的地址。
type StaticResolver string

func (s StaticResolver) Resolve(context.Context) (string, error) {
	return strings.TrimRight(string(s), "/"), nil
}

// Discoverer 是服务发现客户端需要提供的能力（nacos.Client 实现了它）。
type Discoverer interface {
	DiscoverServiceInstance(serviceName string) (string, int, error)
}

// DiscoveryResolver 每次调用都向注册中心挑选一个健康实例。
type DiscoveryResolver struct {
	Discoverer  Discoverer
	ServiceName string
}

func (d DiscoveryResolver) Resolve(context.Context) (string, error) {
	ip, port, err := d.Discoverer.DiscoverServiceInstance(d.ServiceName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", ip, port), nil
}
