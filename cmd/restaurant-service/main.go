// cmd/restaurant-service/main.go
package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/bootstrap"
	"fooddash/internal/pkg/lock"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/service/restaurant/application"
	"fooddash/internal/service/restaurant/domain"
	"fooddash/internal/service/restaurant/infrastructure"
	"fooddash/internal/service/restaurant/interfaces"
	"fooddash/internal/zookeeper"
)

const (
	serviceName = "restaurant-service"
	servicePort = 8002
)

// main 函数是应用的"组装根" (Composition Root)
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             servicePort,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(app *bootstrap.AppCtx) error {
	// 1. 存储：菜单和库存的唯一权威数据源
	store, err := newStore(app)
	if err != nil {
		return err
	}

	// 2. 缓存：非权威，读穿透，写路径只删除
	rt, err := app.NewCache()
	if err != nil {
		return err
	}

	// 3. 示例数据，多副本时由 ZooKeeper 锁保证只写一次
	if app.Config.Storage.Seed {
		locker, err := newSeedLocker(app)
		if err != nil {
			return err
		}
		inserted, err := application.SeedSampleData(app.Ctx, store, locker)
		if err != nil {
			return err
		}
		logger.L().Info().Bool("inserted", inserted).Msg("sample data check finished")
	}

	catalog := application.NewCatalogService(store, rt, app.Tracer)
	ledger := application.NewLedger(store, rt, app.Faults, app.Metrics, app.Tracer)
	interfaces.NewRestaurantHandler(catalog, ledger, app.Faults).RegisterRoutes(app.Mux)
	return nil
}

func newStore(app *bootstrap.AppCtx) (domain.Store, error) {
	switch driver := app.Config.Storage.Driver; driver {
	case "memory":
		logger.L().Warn().Msg("using in-memory store, data is lost on restart")
		return infrastructure.NewMemoryStore(), nil
	case "mysql", "":
		db, err := app.OpenMySQL()
		if err != nil {
			return nil, err
		}
		if err := infrastructure.Migrate(db); err != nil {
			return nil, errors.Wrap(err, "migrate restaurant schema")
		}
		return infrastructure.NewGormStore(db), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}

// newSeedLocker 没有配置 ZooKeeper 时退化为进程内锁（单副本部署）。
func newSeedLocker(app *bootstrap.AppCtx) (lock.Locker, error) {
	zkCfg := app.Config.Infra.ZooKeeper
	if len(zkCfg.Servers) == 0 {
		return lock.NewKeyed(), nil
	}
	conn, err := zookeeper.Connect(zkCfg.Servers, zkCfg.Timeout)
	if err != nil {
		return nil, err
	}
	app.OnShutdown(func(context.Context) { conn.Close() })
	return zookeeper.NewLocker(conn, 30*time.Second), nil
}
