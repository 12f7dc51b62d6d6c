// internal/pkg/bootstrap/app.go
package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fooddash/internal/pkg/config"
	"fooddash/internal/pkg/faults"
	"fooddash/internal/pkg/httpx"
	"fooddash/internal/pkg/logger"
	"fooddash/internal/pkg/metrics"
	"fooddash/internal/pkg/nacos"
	"fooddash/internal/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// AppCtx 是交给各服务注册路由和后台任务时使用的公共组件。
type AppCtx struct {
	Ctx     context.Context
	Config  *config.Config
	Mux     *http.ServeMux
	Nacos   *nacos.Client // 未启用 Nacos 时为 nil
	Tracer  trace.Tracer
	Metrics *metrics.Metrics
	Faults  *faults.Settings

	group    *errgroup.Group
	cleanups []func(context.Context)
}

// Go 启动一个与 HTTP 服务同生命周期的后台任务，任务返回错误会触发整个进程关停。
func (a *AppCtx) Go(fn func(ctx context.Context) error) {
	a.group.Go(func() error { return fn(a.Ctx) })
}

// OnShutdown 注册关停时的清理函数，按注册顺序的逆序执行。
func (a *AppCtx) OnShutdown(fn func(ctx context.Context)) {
	a.cleanups = append(a.cleanups, fn)
}

// AppInfo 包含了启动一个微服务所需的所有特定信息。
type AppInfo struct {
	ServiceName string
	Port        int
	// RegisterHandlers 允许每个服务注册自己独特的 HTTP 路由和后台任务
	RegisterHandlers func(app *AppCtx) error
}

// StartService 封装了所有微服务的通用启动和优雅关停逻辑。
func StartService(info AppInfo) {
	if err := run(info); err != nil {
		logger.L().Fatal().Err(err).Str("service", info.ServiceName).Msg("service exited with error")
	}
}

func run(info AppInfo) error {
	// 1. 配置：默认值 <- CONFIG_FILE <- 环境变量
	cfg := config.Default(info.ServiceName, info.Port)
	if err := config.Load(os.Getenv("CONFIG_FILE"), cfg); err != nil {
		return err
	}
	logger.Init(info.ServiceName, cfg.Service.LogLevel)

	// 2. 初始化核心组件
	tp, err := tracing.InitTracerProvider(info.ServiceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		return errors.Wrap(err, "init tracer provider")
	}
	m := metrics.New(info.ServiceName, prometheus.DefaultRegisterer)

	settings := faults.NewSettings()
	if err := settings.Apply(chaosSnapshot(cfg)); err != nil {
		return errors.Wrap(err, "apply chaos settings")
	}
	config.Subscribe(func(c *config.Config) {
		if err := settings.Apply(chaosSnapshot(c)); err != nil {
			logger.L().Error().Err(err).Msg("rejected chaos settings from config push")
			return
		}
		logger.L().Warn().Interface("chaos", settings.Snapshot()).Msg("chaos settings reloaded")
	})

	var nc *nacos.Client
	if cfg.Infra.Nacos.Enabled {
		nc, err = nacos.NewNacosClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace, cfg.Infra.Nacos.Group)
		if err != nil {
			return errors.Wrap(err, "init nacos client")
		}
		if err := watchRemoteConfig(nc, cfg); err != nil {
			return err
		}
	}
	config.Store(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, gctx := errgroup.WithContext(ctx)

	// 3. 注册路由
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("GET /metrics", metrics.Handler())

	app := &AppCtx{
		Ctx:     gctx,
		Config:  cfg,
		Mux:     mux,
		Nacos:   nc,
		Tracer:  tp.Tracer(info.ServiceName),
		Metrics: m,
		Faults:  settings,
		group:   group,
	}
	if info.RegisterHandlers != nil {
		if err := info.RegisterHandlers(app); err != nil {
			return errors.Wrapf(err, "register %s handlers", info.ServiceName)
		}
	}

	// 4. 启动 HTTP Server 并注册到 Nacos
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.Port),
		Handler:           httpx.Middleware(m.Middleware(info.ServiceName, mux)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	group.Go(func() error {
		logger.L().Info().Int("port", cfg.Service.Port).Msgf("🚀 %s listening", info.ServiceName)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrapf(err, "listen on %s", server.Addr)
		}
		return nil
	})

	var ip string
	if nc != nil {
		if ip, err = outboundIP(); err != nil {
			return errors.Wrap(err, "get outbound ip")
		}
		if err := nc.RegisterServiceInstance(info.ServiceName, ip, cfg.Service.Port); err != nil {
			return err
		}
	}

	// 5. 优雅关停：收到信号或任一任务出错
	group.Go(func() error {
		<-gctx.Done()
		logger.L().Info().Msgf("Shutting down service %s...", info.ServiceName)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// a. 先从 Nacos 注销，避免新流量进来
		if nc != nil {
			if err := nc.DeregisterServiceInstance(info.ServiceName, ip, cfg.Service.Port); err != nil {
				logger.L().Error().Err(err).Msg("Error deregistering from Nacos")
			}
			nc.Close()
		}
		// b. 关闭 HTTP 服务器
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("Error shutting down http server")
		}
		// c. 服务自己的清理（消费者、连接池），后进先出
		for i := len(app.cleanups) - 1; i >= 0; i-- {
			app.cleanups[i](shutdownCtx)
		}
		// d. 最后关闭 Tracer Provider，确保所有缓冲的 trace 都被发送出去
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.L().Error().Err(err).Msg("Error shutting down tracer provider")
		}
		return nil
	})

	err = group.Wait()
	logger.L().Info().Msgf("Service %s gracefully shut down.", info.ServiceName)
	return err
}

// watchRemoteConfig 拉取 Nacos 上的 YAML 配置并监听变更。
// 每次变更都在本地配置的副本上重新合并，环境变量始终优先。
func watchRemoteConfig(nc *nacos.Client, local *config.Config) error {
	dataID := local.Infra.Nacos.DataID
	if dataID == "" {
		return nil
	}
	base := *local
	content, err := nc.GetConfig(dataID)
	if err != nil {
		logger.L().Warn().Err(err).Str("data_id", dataID).Msg("remote config unavailable, using local config")
	} else if content != "" {
		if err := config.Parse([]byte(content), local); err != nil {
			return errors.Wrapf(err, "parse remote config %s", dataID)
		}
		config.ApplyEnv(local)
	}

	return nc.WatchConfig(dataID, func(content string) {
		next := base
		if err := config.Parse([]byte(content), &next); err != nil {
			logger.L().Error().Err(err).Str("data_id", dataID).Msg("ignored invalid remote config")
			return
		}
		config.ApplyEnv(&next)
		config.Store(&next)
	})
}

func chaosSnapshot(c *config.Config) faults.Snapshot {
	return faults.Snapshot{
		PaymentFailPercent:    c.Chaos.PaymentFailPercent,
		InventoryDelayMs:      c.Chaos.InventoryDelayMs,
		InventoryErrorPercent: c.Chaos.InventoryErrorPercent,
	}
}

// outboundIP 返回本机访问外网时使用的地址，用于服务注册。UDP Dial 不会真正发包。
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
