package cache

import (
	"context"
	"hash/fnv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
)

// LoadFunc 从权威数据源加载序列化后的快照。
type LoadFunc func(ctx context.Context) ([]byte, error)

// ReadThrough 在 Cache 之上实现读穿透：先查缓存，未命中时从数据源加载并回填。
// 同一个 key 的并发未命中只会触发一次加载。
// 缓存本身的故障只记录日志，读路径退化为直接访问数据源。
//
// 每个 key 映射到一个写入代数，Put 和 Invalidate 都会推进它。
// 加载期间代数变化说明数据源已被改写，加载结果只返回给本次调用方，不回填缓存。
// 代数只在本进程内可见，多副本共享 Redis 时跨进程的交错仍依赖 TTL 兜底。
type ReadThrough struct {
	cache   Cache
	group   singleflight.Group
	gens    [generationSlots]atomic.Uint64
	metrics *metrics.Metrics
}

const generationSlots = 256

func NewReadThrough(c Cache, m *metrics.Metrics) *ReadThrough {
	return &ReadThrough{cache: c, metrics: m}
}

func (r *ReadThrough) Get(ctx context.Context, policy Policy, key string, load LoadFunc) ([]byte, error) {
	val, hit, err := r.cache.Get(ctx, key)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache read failed, falling back to source")
	}
	r.metrics.ObserveCache(policy.Resource, hit)
	if hit {
		return val, nil
	}

	gen := r.generation(key)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		before := gen.Load()
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if gen.Load() != before {
			logger.Ctx(ctx).Debug().Str("key", key).Msg("entity written during load, skip populate")
			return data, nil
		}
		if err := r.cache.Put(ctx, key, data, policy.TTL); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache populate failed")
		}
		// 回填和写入交错时再删一次
		if gen.Load() != before {
			r.invalidate(ctx, key)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Put 直接写入实体的最新快照。
func (r *ReadThrough) Put(ctx context.Context, policy Policy, key string, data []byte) {
	r.generation(key).Add(1)
	r.group.Forget(key)
	if err := r.cache.Put(ctx, key, data, policy.TTL); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache populate failed")
	}
}

// Invalidate 删除缓存，失败只记录日志；下一次读取会从数据源重建。
func (r *ReadThrough) Invalidate(ctx context.Context, keys ...string) {
	for _, k := range keys {
		r.generation(k).Add(1)
		r.group.Forget(k)
	}
	r.invalidate(ctx, keys...)
}

func (r *ReadThrough) invalidate(ctx context.Context, keys ...string) {
	if err := r.cache.Invalidate(ctx, keys...); err != nil {
		logger.Ctx(ctx).Error().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

func (r *ReadThrough) generation(key string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &r.gens[h.Sum32()%generationSlots]
}
