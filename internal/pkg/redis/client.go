// internal/pkg/redis/client.go
package redis

import (
	"context"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 的 UniversalClient，传入多个地址时使用集群模式。
type Client struct {
	rdb goredis.UniversalClient
}

// NewClient 连接 redis 并执行一次 PING。
func NewClient(ctx context.Context, addrs []string, password string) (*Client, error) {
	if len(addrs) == 0 {
		return nil, errors.New("redis: no address configured")
	}
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    addrs,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis: ping %v", addrs)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) GetClient() goredis.UniversalClient {
	return c.rdb
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
