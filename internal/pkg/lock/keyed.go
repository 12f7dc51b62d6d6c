// internal/pkg/lock/keyed.go
package lock

import (
	"context"
	"sync"
)

// Locker 按资源 key 加互斥锁。返回的 unlock 必须被调用且只调用一次。
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func() error, err error)
}

// Keyed 是进程内按 key 粒度的互斥锁：不同 key 互不阻塞，
// 相同 key 串行。空闲的 key 会被回收。
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*keyedEntry)}
}

func (k *Keyed) Lock(ctx context.Context, key string) (func() error, error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() error {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
		return nil
	}, nil
}

func (k *Keyed) release(key string, e *keyedEntry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}

// Len 返回当前持有或等待中的 key 数量。
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

// Noop 不做任何互斥，单实例部署时用于替代分布式锁。
type Noop struct{}

func (Noop) Lock(context.Context, string) (func() error, error) {
	return func() error { return nil }, nil
}
