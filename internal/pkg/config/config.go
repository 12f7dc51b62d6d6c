// internal/pkg/config/config.go
package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 是所有服务共用的配置结构，各服务只读取自己关心的部分。
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Infra   InfraConfig   `yaml:"infra"`
	Storage StorageConfig `yaml:"storage"`
	Order   OrderConfig   `yaml:"order"`
	Chaos   ChaosConfig   `yaml:"chaos"`
}

type ServiceConfig struct {
	Name     string `yaml:"name"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type InfraConfig struct {
	MySQL     MySQLConfig     `yaml:"mysql"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`
	ZooKeeper ZooKeeperConfig `yaml:"zookeeper"`
}

type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DSN 生成 go-sql-driver 格式的连接串。
func (m MySQLConfig) DSN() string {
	c := mysql.NewConfig()
	c.User = m.User
	c.Passwd = m.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	c.DBName = m.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"server_addrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
	DataID      string `yaml:"data_id"`
}

type ZooKeeperConfig struct {
	Servers []string      `yaml:"servers"`
	Timeout time.Duration `yaml:"timeout"`
}

// StorageConfig 选择各个存储的后端实现。
// Driver: mysql | memory；Cache: redis | memory。
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Cache  string `yaml:"cache"`
	Seed   bool   `yaml:"seed"`
}

type OrderConfig struct {
	IdentityURL                  string        `yaml:"identity_url"`
	RestaurantURL                string        `yaml:"restaurant_url"`
	RestaurantService            string        `yaml:"restaurant_service"`
	DownstreamTimeout            time.Duration `yaml:"downstream_timeout"`
	AdmissionRule                string        `yaml:"admission_rule"`
	CompensatePartialReservation bool          `yaml:"compensate_partial_reservation"`
}

type ChaosConfig struct {
	PaymentFailPercent    int `yaml:"payment_fail_percent"`
	InventoryDelayMs      int `yaml:"inventory_delay_ms"`
	InventoryErrorPercent int `yaml:"inventory_error_percent"`
}

// Default 返回带默认值的配置。
func Default(serviceName string, port int) *Config {
	return &Config{
		Service: ServiceConfig{Name: serviceName, Port: port, LogLevel: "info"},
		Infra: InfraConfig{
			MySQL:     MySQLConfig{Host: "localhost", Port: 3306, User: "root", Password: "password", Database: "fooddash"},
			Redis:     RedisConfig{Addrs: []string{"localhost:6379"}},
			Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}},
			Jaeger:    JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Nacos:     NacosConfig{ServerAddrs: "localhost:8848", Group: "DEFAULT_GROUP"},
			ZooKeeper: ZooKeeperConfig{Timeout: 5 * time.Second},
		},
		Storage: StorageConfig{Driver: "mysql", Cache: "redis", Seed: true},
		Order: OrderConfig{
			IdentityURL:       "http://localhost:8001",
			RestaurantURL:     "http://localhost:8002",
			DownstreamTimeout: 5 * time.Second,
			AdmissionRule:     "true",
		},
	}
}

// Parse 把 YAML 内容合并到 cfg 上，未出现的字段保持原值。
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrap(err, "parse yaml config")
	}
	return cfg.Validate()
}

// Load 读取配置文件；path 为空时只应用环境变量。
func Load(path string, cfg *Config) error {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read config file %s", path)
		}
		if err := Parse(data, cfg); err != nil {
			return err
		}
	}
	ApplyEnv(cfg)
	return cfg.Validate()
}

// ApplyEnv 用环境变量覆盖部署相关的配置项。
func ApplyEnv(cfg *Config) {
	cfg.Service.Port = getEnvInt("PORT", cfg.Service.Port)
	cfg.Service.LogLevel = getEnv("LOG_LEVEL", cfg.Service.LogLevel)

	cfg.Infra.MySQL.Host = getEnv("MYSQL_HOST", cfg.Infra.MySQL.Host)
	cfg.Infra.MySQL.Port = getEnvInt("MYSQL_PORT", cfg.Infra.MySQL.Port)
	cfg.Infra.MySQL.User = getEnv("MYSQL_USER", cfg.Infra.MySQL.User)
	cfg.Infra.MySQL.Password = getEnv("MYSQL_PASSWORD", cfg.Infra.MySQL.Password)
	cfg.Infra.MySQL.Database = getEnv("MYSQL_DATABASE", cfg.Infra.MySQL.Database)

	cfg.Infra.Redis.Addrs = getEnvList("REDIS_ADDRS", cfg.Infra.Redis.Addrs)
	cfg.Infra.Kafka.Brokers = getEnvList("KAFKA_BROKERS", cfg.Infra.Kafka.Brokers)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.ZooKeeper.Servers = getEnvList("ZOOKEEPER_SERVERS", cfg.Infra.ZooKeeper.Servers)

	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	cfg.Infra.Nacos.DataID = getEnv("NACOS_DATA_ID", cfg.Infra.Nacos.DataID)
	if v, ok := os.LookupEnv("NACOS_ENABLED"); ok {
		cfg.Infra.Nacos.Enabled, _ = strconv.ParseBool(v)
	}

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Cache = getEnv("CACHE_DRIVER", cfg.Storage.Cache)

	cfg.Order.IdentityURL = getEnv("USER_SERVICE_URL", cfg.Order.IdentityURL)
	cfg.Order.RestaurantURL = getEnv("RESTAURANT_SERVICE_URL", cfg.Order.RestaurantURL)
	cfg.Order.RestaurantService = getEnv("RESTAURANT_SERVICE_NAME", cfg.Order.RestaurantService)
}

// Validate 检查取值范围。
func (c *Config) Validate() error {
	if c.Service.Port <= 0 || c.Service.Port > 65535 {
		return errors.Errorf("invalid service port %d", c.Service.Port)
	}
	if c.Chaos.PaymentFailPercent < 0 || c.Chaos.PaymentFailPercent > 100 {
		return errors.Errorf("chaos.payment_fail_percent must be within 0..100, got %d", c.Chaos.PaymentFailPercent)
	}
	if c.Chaos.InventoryErrorPercent < 0 || c.Chaos.InventoryErrorPercent > 100 {
		return errors.Errorf("chaos.inventory_error_percent must be within 0..100, got %d", c.Chaos.InventoryErrorPercent)
	}
	if c.Chaos.InventoryDelayMs < 0 {
		return errors.Errorf("chaos.inventory_delay_ms must not be negative, got %d", c.Chaos.InventoryDelayMs)
	}
	return nil
}

var (
	currentMu   sync.RWMutex
	current     *Config
	subscribers []func(*Config)
)

// Current 返回当前生效的配置。
func Current() *Config {
	currentMu.RLock()
	defer currentMu.RUnlock()
	return current
}

// Store 替换当前配置，并通知所有订阅者。
func Store(cfg *Config) {
	currentMu.Lock()
	current = cfg
	subs := append([]func(*Config){}, subscribers...)
	currentMu.Unlock()

	for _, fn := range subs {
		fn(cfg)
	}
}

// Subscribe 注册配置变更回调（例如 Nacos 推送后刷新故障注入开关）。
func Subscribe(fn func(*Config)) {
	currentMu.Lock()
	defer currentMu.Unlock()
	subscribers = append(subscribers, fn)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
