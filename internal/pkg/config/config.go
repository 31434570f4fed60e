package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the settings of the hub server (storefront serve).
type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Hub       HubConfig
	Inventory InventoryConfig
}

type MongoConfig struct {
	URI         string `env:"MONGO_URI,           default=mongodb://localhost:27017"`
	Database    string `env:"MONGO_DB,            default=storefront"`
	MaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE, default=100"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,      default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,        default=0"`
	PoolSize int    `env:"REDIS_POOL_SIZE, default=20"`
}

type HubConfig struct {
	SendBuffer   int           `env:"HUB_SEND_BUFFER,   default=64"`
	WriteTimeout time.Duration `env:"HUB_WRITE_TIMEOUT, default=10s"`
	PingInterval time.Duration `env:"HUB_PING_INTERVAL, default=30s"`
	// ServerSideFilter drops events a session is not addressed by before
	// they reach the socket. When false every session sees every event and
	// the client filters.
	ServerSideFilter bool `env:"HUB_SERVER_SIDE_FILTER, default=true"`
}

type InventoryConfig struct {
	StockWorkers    int           `env:"STOCK_WORKERS,     default=8"`
	PublishDedupTTL time.Duration `env:"PUBLISH_DEDUP_TTL, default=1h"`
}

// WatchConfig holds the settings of the reconciling client (storefront watch).
type WatchConfig struct {
	LogLevel string `env:"LOG_LEVEL, default=info"`
	Env      string `env:"ENV,       default=development"`

	HubURL string `env:"HUB_URL, default=ws://localhost:8080/v1/ws"`
	APIURL string `env:"API_URL, default=http://localhost:8080"`
	Token  string `env:"HUB_TOKEN"`

	ReconnectInterval    time.Duration `env:"RECONNECT_INTERVAL,     default=3s"`
	ReconnectMaxAttempts int           `env:"RECONNECT_MAX_ATTEMPTS, default=5"`
	ActivityQuietWindow  time.Duration `env:"ACTIVITY_QUIET_WINDOW,  default=500ms"`
	ActivityRetention    time.Duration `env:"ACTIVITY_RETENTION,     default=24h"`
	SnapshotTimeout      time.Duration `env:"SNAPSHOT_TIMEOUT,       default=10s"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}

// LoadWatch reads the client configuration from environment variables.
func LoadWatch() (*WatchConfig, error) {
	var cfg WatchConfig
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load watch configuration: %w", err)
	}
	return &cfg, nil
}
