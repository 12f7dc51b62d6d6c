// internal/zookeeper/lock.go
package zookeeper

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"
)

const (
	lockRoot = "/fooddash_locks" // 所有分布式锁的根节点
	lockNode = "lock-"
)

var ErrLockTimeout = errors.New("zookeeper: timeout waiting for lock")

// DistributedLock 是基于临时顺序节点的公平锁。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁的路径，例如 /fooddash_locks/catalog-seed
	lockNode string // 成功获取锁后，自己创建的节点路径
	wait     time.Duration
}

// NewDistributedLock 创建锁实例，并确保锁路径存在。
func NewDistributedLock(conn *Conn, resourceID string, wait time.Duration) (*DistributedLock, error) {
	lockPath := lockRoot + "/" + strings.ReplaceAll(resourceID, "/", "_")
	for _, p := range []string{lockRoot, lockPath} {
		if err := ensureNode(conn, p); err != nil {
			return nil, err
		}
	}
	return &DistributedLock{conn: conn, path: lockPath, wait: wait}, nil
}

func ensureNode(conn *Conn, path string) error {
	exists, _, err := conn.Exists(path)
	if err != nil {
		return errors.Wrapf(err, "zookeeper: check node %s", path)
	}
	if exists {
		return nil
	}
	_, err = conn.Create(path, []byte(""), 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return errors.Wrapf(err, "zookeeper: create node %s", path)
	}
	return nil
}

// Lock 获取锁，拿不到时监听前一个节点，直到超时或 ctx 取消。
func (l *DistributedLock) Lock(ctx context.Context) error {
	// 格式为: /fooddash_locks/resourceID/_c_<guid>-lock-0000000001
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/"+lockNode, []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return errors.Wrap(err, "zookeeper: create sequential node")
	}
	l.lockNode = nodePath
	myName := strings.TrimPrefix(nodePath, l.path+"/")

	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			l.abandon()
			return errors.Wrap(err, "zookeeper: list lock nodes")
		}

		prev, held, err := predecessor(children, myName)
		if err != nil {
			l.abandon()
			return err
		}
		if held {
			return nil
		}

		// 使用 ExistsW 设置一次性 Watcher
		exists, _, eventChan, err := l.conn.ExistsW(l.path + "/" + prev)
		if err != nil {
			l.abandon()
			return errors.Wrap(err, "zookeeper: watch previous node")
		}
		if !exists {
			continue
		}

		select {
		case <-eventChan:
		case <-deadline.C:
			l.abandon()
			return ErrLockTimeout
		case <-ctx.Done():
			l.abandon()
			return ctx.Err()
		}
	}
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("zookeeper: no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && !errors.Is(err, zk.ErrNoNode) {
		return errors.Wrap(err, "zookeeper: delete lock node")
	}
	l.lockNode = ""
	return nil
}

func (l *DistributedLock) abandon() {
	if l.lockNode != "" {
		_ = l.conn.Delete(l.lockNode, -1)
		l.lockNode = ""
	}
}

// predecessor 按序号排序子节点，返回排在 mine 之前的节点；
// held 为 true 表示 mine 已经是最小节点。
// protected 节点名带 GUID 前缀，不能直接按字符串排序。
func predecessor(children []string, mine string) (prev string, held bool, err error) {
	sorted := append([]string(nil), children...)
	sort.Slice(sorted, func(i, j int) bool { return sequence(sorted[i]) < sequence(sorted[j]) })

	for i, child := range sorted {
		if child != mine {
			continue
		}
		if i == 0 {
			return "", true, nil
		}
		return sorted[i-1], false, nil
	}
	return "", false, fmt.Errorf("zookeeper: own node %s not found among %d children", mine, len(children))
}

func sequence(name string) int64 {
	idx := strings.LastIndex(name, "-")
	if idx < 0 {
		return -1
	}
	n, err := strconv.ParseInt(name[idx+1:], 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// Locker 把 DistributedLock 适配为 lock.Locker。
type Locker struct {
	conn *Conn
	wait time.Duration
}

func NewLocker(conn *Conn, wait time.Duration) *Locker {
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &Locker{conn: conn, wait: wait}
}

func (z *Locker) Lock(ctx context.Context, key string) (func() error, error) {
	l, err := NewDistributedLock(z.conn, key, z.wait)
	if err != nil {
		return nil, err
	}
	if err := l.Lock(ctx); err != nil {
		return nil, err
	}
	return l.Unlock, nil
}
