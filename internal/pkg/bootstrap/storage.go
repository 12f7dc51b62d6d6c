package bootstrap

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"fooddash/internal/pkg/cache"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/redis"
)

// OpenMySQL 按配置连接 MySQL，连接池在关停时关闭。
func (a *AppCtx) OpenMySQL() (*gorm.DB, error) {
	c := a.Config.Infra.MySQL
	db, err := gorm.Open(mysql.Open(c.DSN()), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, errors.Wrapf(err, "open mysql %s:%d", c.Host, c.Port)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	a.OnShutdown(func(context.Context) { _ = sqlDB.Close() })

	logger.L().Info().Str("host", c.Host).Str("database", c.Database).Msg("✅ connected to mysql")
	return db, nil
}

// NewCache 按 storage.cache 选择 redis 或进程内缓存。
func (a *AppCtx) NewCache() (*cache.ReadThrough, error) {
	cfg := a.Config
	switch cfg.Storage.Cache {
	case "memory":
		return cache.NewReadThrough(cache.NewMemory(), a.Metrics), nil
	case "redis", "":
		client, err := redis.NewClient(a.Ctx, cfg.Infra.Redis.Addrs, cfg.Infra.Redis.Password)
		if err != nil {
			return nil, err
		}
		a.OnShutdown(func(context.Context) { _ = client.Close() })
		logger.L().Info().Strs("addrs", cfg.Infra.Redis.Addrs).Msg("✅ connected to redis")
		return cache.NewReadThrough(cache.NewRedis(client.GetClient()), a.Metrics), nil
	default:
		return nil, errors.Errorf("unknown cache driver %q", cfg.Storage.Cache)
	}
}
