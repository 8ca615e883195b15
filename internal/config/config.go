package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// ConfigPathEnvVar apunta al YAML opcional.
	ConfigPathEnvVar = "HEXASHOP_CONFIG"
	envPrefix        = "HEXASHOP_"
)

const (
	TransportMemory = "memory"
	TransportKafka  = "kafka"
	TransportNATS   = "nats"
)

type Config struct {
	HTTPPort   string           `koanf:"http_port"`
	LogLevel   string           `koanf:"log_level"`
	Transport  string           `koanf:"transport"`
	Kafka      KafkaConfig      `koanf:"kafka"`
	NATS       NATSConfig       `koanf:"nats"`
	Redis      RedisConfig      `koanf:"redis"`
	Identity   DatabaseConfig   `koanf:"identity"`
	Shop       DatabaseConfig   `koanf:"shop"`
	Outbox     OutboxConfig     `koanf:"outbox"`
	Inbox      InboxConfig      `koanf:"inbox"`
	ClickHouse ClickHouseConfig `koanf:"clickhouse"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	GroupID string   `koanf:"group_id"`
}

type NATSConfig struct {
	URL      string `koanf:"url"`
	Stream   string `koanf:"stream"`
	Embedded bool   `koanf:"embedded"`
	StoreDir string `koanf:"store_dir"`
	Port     int    `koanf:"port"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// DatabaseConfig es la base de datos propia de un contexto acotado.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite | pgx
	DSN    string `koanf:"dsn"`
}

type OutboxConfig struct {
	PollInterval    time.Duration `koanf:"poll_interval"`
	BatchSize       int           `koanf:"batch_size"`
	MaxAttempts     int           `koanf:"max_attempts"`
	PublishTimeout  time.Duration `koanf:"publish_timeout"`
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// BreakerThreshold a 0 desactiva el circuit breaker del bus.
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

type InboxConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

type ClickHouseConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Database string `koanf:"database"`
}

// Default devuelve la configuración por defecto, sin fichero ni entorno.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		HTTPPort:  "8080",
		LogLevel:  "info",
		Transport: TransportMemory,
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			GroupID: "hexashop",
		},
		NATS: NATSConfig{
			URL:      "nats://127.0.0.1:4222",
			Stream:   "HEXASHOP",
			Embedded: false,
			StoreDir: "./data/nats",
			Port:     4222,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			CacheTTL: 5 * time.Minute,
		},
		Identity: DatabaseConfig{Driver: "sqlite", DSN: "./hexashop_identity.db"},
		Shop:     DatabaseConfig{Driver: "sqlite", DSN: "./hexashop_shop.db"},
		Outbox: OutboxConfig{
			PollInterval:     2 * time.Second,
			BatchSize:        50,
			MaxAttempts:      5,
			PublishTimeout:   5 * time.Second,
			Retention:        7 * 24 * time.Hour,
			CleanupInterval:  time.Hour,
			BreakerThreshold: 5,
			BreakerTimeout:   30 * time.Second,
		},
		Inbox: InboxConfig{TTL: 24 * time.Hour},
		ClickHouse: ClickHouseConfig{
			Enabled:  false,
			Addr:     "localhost:9000",
			Database: "default",
		},
	}
}

// LoadConfig compone defaults, YAML opcional y variables de entorno, en ese orden.
//
//	HEXASHOP_OUTBOX__MAX_ATTEMPTS=3  ->  outbox.max_attempts
//	HEXASHOP_KAFKA__BROKERS=a:9092,b:9092
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey traduce HEXASHOP_OUTBOX__BATCH_SIZE a outbox.batch_size.
// Las variables que no llevan el prefijo ni siquiera llegan aquí.
func envKey(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// splitList admite "a,b" en un solo elemento (entorno) además de listas YAML.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Transport {
	case TransportMemory, TransportNATS:
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown transport %q", c.Transport))
	}

	for name, db := range map[string]DatabaseConfig{"identity": c.Identity, "shop": c.Shop} {
		switch db.Driver {
		case "sqlite", "pgx":
		default:
			errs = append(errs, fmt.Errorf("%s.driver: unknown driver %q", name, db.Driver))
		}
		if db.DSN == "" {
			errs = append(errs, fmt.Errorf("%s.dsn is empty", name))
		}
	}

	o := c.Outbox
	if o.BatchSize <= 0 {
		errs = append(errs, errors.New("outbox.batch_size must be positive"))
	}
	if o.MaxAttempts < 1 {
		errs = append(errs, errors.New("outbox.max_attempts must be >= 1"))
	}
	if o.PollInterval <= 0 || o.PublishTimeout <= 0 || o.CleanupInterval <= 0 {
		errs = append(errs, errors.New("outbox intervals must be positive"))
	}
	if o.Retention < 0 {
		errs = append(errs, errors.New("outbox.retention must not be negative"))
	}

	if c.ClickHouse.Enabled && c.ClickHouse.Addr == "" {
		errs = append(errs, errors.New("clickhouse.addr is empty"))
	}

	return errors.Join(errs...)
}
