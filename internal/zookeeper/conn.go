// internal/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/pkg/errors"

	"fooddash/internal/pkg/logger"
)

// Conn 包装 zk.Conn，供分布式锁使用。
type Conn struct {
	*zk.Conn
}

// Connect 连接 ZooKeeper 集群，并在后台把会话事件写入日志。
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	if len(servers) == 0 {
		return nil, errors.New("zookeeper: no servers configured")
	}
	c, events, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
	if err != nil {
		return nil, errors.Wrapf(err, "zookeeper: connect %v", servers)
	}
	go func() {
		for ev := range events {
			if ev.Type == zk.EventSession {
				logger.L().Debug().Str("state", ev.State.String()).Msg("zookeeper session event")
			}
		}
	}()
	return &Conn{Conn: c}, nil
}
