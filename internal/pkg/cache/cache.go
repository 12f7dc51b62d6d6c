// internal/pkg/cache/cache.go
package cache

import (
	"context"
	"strconv"
	"time"
)

// Cache 是非权威的键值缓存。写路径只删除，不原地更新。
type Cache interface {
	// Get 返回缓存值；hit 为 false 表示未命中或已过期。
	Get(ctx context.Context, key string) (value []byte, hit bool, err error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Policy 描述一类资源的缓存策略。
type Policy struct {
	Resource string
	TTL      time.Duration
}

var (
	MenuPolicy     = Policy{Resource: "menu", TTL: 30 * time.Second}
	AllMenusPolicy = Policy{Resource: "all_menus", TTL: 10 * time.Second}
	OrderPolicy    = Policy{Resource: "order", TTL: 300 * time.Second}
)

const AllMenusKey = "all_menus"

func MenuKey(id int64) string {
	return "menu:" + strconv.FormatInt(id, 10)
}

func OrderKey(id int64) string {
	return "order:" + strconv.FormatInt(id, 10)
}
