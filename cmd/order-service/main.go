// cmd/order-service/main.go
package main

import (
	"context"

	"github.com/pkg/errors"

	"fooddash/internal/pkg/bootstrap"
	"fooddash/internal/pkg/httpclient"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/mq"
	"fooddash/internal/service/order/application"
	"fooddash/internal/service/order/domain"
	"fooddash/internal/service/order/domain/port"
	"fooddash/internal/service/order/infrastructure"
	"fooddash/internal/service/order/infrastructure/adapter"
	"fooddash/internal/service/order/interfaces"
)

const (
	serviceName                 = "order-service"
	servicePort                 = 8003
	compensationConsumerGroupID = "order-service-compensation"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName:      serviceName,
		Port:             servicePort,
		RegisterHandlers: registerHandlers,
	})
}

func registerHandlers(app *bootstrap.AppCtx) error {
	cfg := app.Config

	repo, err := newRepository(app)
	if err != nil {
		return err
	}
	rt, err := app.NewCache()
	if err != nil {
		return err
	}

	// 1. 出站适配器：每次调用都带上超时预算
	client := httpclient.NewClient(app.Tracer, cfg.Order.DownstreamTimeout)
	restaurant := restaurantResolver(app)
	identity := adapter.NewIdentityHTTPAdapter(client, httpclient.StaticResolver(cfg.Order.IdentityURL))
	inventory := adapter.NewInventoryHTTPAdapter(client, restaurant)

	admission, err := adapter.NewCELAdmissionPolicy(cfg.Order.AdmissionRule)
	if err != nil {
		return err
	}

	// 2. 事件：Kafka + websocket 推送
	hub := adapter.NewStatusHub()
	app.OnShutdown(func(context.Context) { hub.Close() })
	publishers := adapter.FanoutPublisher{hub}
	var reporter port.CompensationReporter

	if brokers := cfg.Infra.Kafka.Brokers; len(brokers) > 0 {
		eventWriter := mq.NewKafkaWriter(brokers, adapter.OrderEventsTopic)
		compWriter := mq.NewKafkaWriter(brokers, adapter.CompensationFailureTopic)
		publishers = append(publishers, adapter.NewNotificationKafkaAdapter(eventWriter))
		reporter = adapter.NewCompensationKafkaAdapter(compWriter)

		// 归还失败的库存由消费者再重试一次
		reader := mq.NewKafkaReader(brokers, adapter.CompensationFailureTopic, compensationConsumerGroupID)
		consumer := interfaces.NewCompensationConsumer(reader, inventory, app.Metrics)
		consumer.Start(app.Ctx)

		// 后进先出：先停消费者，再关 writer
		app.OnShutdown(func(context.Context) {
			_ = eventWriter.Close()
			_ = compWriter.Close()
		})
		app.OnShutdown(consumer.Stop)
	} else {
		logger.L().Warn().Msg("kafka brokers not configured, order events are only pushed over websocket")
	}

	svc := application.NewOrderApplicationService(application.Dependencies{
		Repo:      repo,
		Cache:     rt,
		Identity:  identity,
		Catalog:   adapter.NewCatalogHTTPAdapter(client, restaurant),
		Inventory: inventory,
		Payment:   adapter.NewPaymentSimulator(app.Faults),
		Admission: admission,
		Publisher: publishers,
		Reporter:  reporter,
		Faults:    app.Faults,
		Metrics:   app.Metrics,
		Tracer:    app.Tracer,
	}, application.Options{
		CompensatePartialReservation: cfg.Order.CompensatePartialReservation,
	})

	interfaces.NewOrderHandler(svc, hub).RegisterRoutes(app.Mux)
	return nil
}

func newRepository(app *bootstrap.AppCtx) (domain.OrderRepository, error) {
	switch driver := app.Config.Storage.Driver; driver {
	case "memory":
		logger.L().Warn().Msg("using in-memory order repository, data is lost on restart")
		return infrastructure.NewMemoryOrderRepository(), nil
	case "mysql", "":
		db, err := app.OpenMySQL()
		if err != nil {
			return nil, err
		}
		if err := infrastructure.Migrate(db); err != nil {
			return nil, errors.Wrap(err, "migrate order schema")
		}
		return infrastructure.NewGormOrderRepository(db), nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", driver)
	}
}

// restaurantResolver 启用 Nacos 且配置了服务名时走服务发现，否则使用固定地址。
func restaurantResolver(app *bootstrap.AppCtx) httpclient.Resolver {
	if app.Nacos != nil && app.Config.Order.RestaurantService != "" {
		return httpclient.DiscoveryResolver{Discoverer: app.Nacos, ServiceName: app.Config.Order.RestaurantService}
	}
	return httpclient.StaticResolver(app.Config.Order.RestaurantURL)
}
