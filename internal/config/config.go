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

// ConfigPathEnvVar overrides the YAML config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var defaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server         ServerConfig         `koanf:"server"`
	Log            LogConfig            `koanf:"log"`
	Database       DatabaseConfig       `koanf:"database"`
	Redis          RedisConfig          `koanf:"redis"`
	Recommendation RecommendationConfig `koanf:"recommendation"`
	Catalog        CatalogConfig        `koanf:"catalog"`
	Marketplace    MarketplaceConfig    `koanf:"marketplace"`
	Snapshot       SnapshotConfig       `koanf:"snapshot"`
	Kafka          KafkaConfig          `koanf:"kafka"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	AllowedOrigin   string        `koanf:"allowed_origin"`
	RequestsPerMin  int           `koanf:"requests_per_min"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DatabaseConfig selects the history repository. The first non-empty of
// URL (postgres), SQLitePath and HistoryFile wins; none means in-memory.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	SQLitePath  string `koanf:"sqlite_path"`
	HistoryFile string `koanf:"history_file"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RecommendationConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type CatalogConfig struct {
	BasePath      string        `koanf:"base_path"`
	ManualPath    string        `koanf:"manual_path"`
	SourceTimeout time.Duration `koanf:"source_timeout"`
	ShareTimeout  time.Duration `koanf:"share_timeout"`
}

type MarketplaceConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Mode          string        `koanf:"mode"`
	BaseURL       string        `koanf:"base_url"`
	SamplePath    string        `koanf:"sample_path"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Latitude      float64       `koanf:"latitude"`
	Longitude     float64       `koanf:"longitude"`
}

type SnapshotConfig struct {
	Bucket string `koanf:"bucket"`
	Key    string `koanf:"key"`
	Region string `koanf:"region"`
}

type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8000",
			AllowedOrigin:   "http://127.0.0.1:5173",
			RequestsPerMin:  120,
			ShutdownTimeout: 8 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Recommendation: RecommendationConfig{
			CacheTTL: 20 * time.Second,
		},
		Catalog: CatalogConfig{
			BasePath:      "data/menu_items.json",
			SourceTimeout: 4 * time.Second,
			ShareTimeout:  12 * time.Second,
		},
		Marketplace: MarketplaceConfig{
			Mode:          "sandbox",
			SamplePath:    "data/marketplace_search_response.json",
			Timeout:       12 * time.Second,
			RatePerSecond: 2,
			Latitude:      12.9716,
			Longitude:     77.5946,
		},
		Snapshot: SnapshotConfig{Region: "ap-south-1"},
		Kafka:    KafkaConfig{Topic: "eatdecider.feedback"},
	}
}

// envMappings lists the environment variables the service understands.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"port":                        "server.port",
	"allowed_origin":              "server.allowed_origin",
	"requests_per_min":            "server.requests_per_min",
	"shutdown_timeout":            "server.shutdown_timeout",
	"log_level":                   "log.level",
	"log_format":                  "log.format",
	"database_url":                "database.url",
	"sqlite_path":                 "database.sqlite_path",
	"history_file":                "database.history_file",
	"redis_addr":                  "redis.addr",
	"redis_password":              "redis.password",
	"redis_db":                    "redis.db",
	"recommendation_cache_ttl":    "recommendation.cache_ttl",
	"catalog_base_path":           "catalog.base_path",
	"catalog_manual_path":         "catalog.manual_path",
	"catalog_source_timeout":      "catalog.source_timeout",
	"catalog_share_timeout":       "catalog.share_timeout",
	"marketplace_enabled":         "marketplace.enabled",
	"ondc_mode":                   "marketplace.mode",
	"ondc_base_url":               "marketplace.base_url",
	"ondc_http_timeout":           "marketplace.timeout",
	"marketplace_sample_path":     "marketplace.sample_path",
	"marketplace_rate_per_second": "marketplace.rate_per_second",
	"marketplace_latitude":        "marketplace.latitude",
	"marketplace_longitude":       "marketplace.longitude",
	"snapshot_bucket":             "snapshot.bucket",
	"snapshot_key":                "snapshot.key",
	"snapshot_region":             "snapshot.region",
	"kafka_brokers":               "kafka.brokers",
	"kafka_topic":                 "kafka.topic",
}

func envTransform(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// Load layers struct defaults, an optional YAML file and environment
// variables, in that order of precedence.
func Load() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if raw, ok := k.Get("kafka.brokers").(string); ok && raw != "" {
		if err := k.Set("kafka.brokers", splitList(raw)); err != nil {
			return Config{}, fmt.Errorf("parse kafka brokers: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Port) == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Catalog.SourceTimeout <= 0 {
		errs = append(errs, errors.New("catalog.source_timeout must be positive"))
	}
	switch c.Marketplace.Mode {
	case "sandbox":
	case "live":
		if c.Marketplace.Enabled && strings.TrimSpace(c.Marketplace.BaseURL) == "" {
			errs = append(errs, errors.New("marketplace.base_url is required in live mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("marketplace.mode must be sandbox or live, got %q", c.Marketplace.Mode))
	}
	if (c.Snapshot.Bucket == "") != (c.Snapshot.Key == "") {
		errs = append(errs, errors.New("snapshot.bucket and snapshot.key must be set together"))
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Server.Port)
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, path := range defaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
