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
	// EnvPrefix namespaces every environment override.
	EnvPrefix = "CLIPCAST_"
	// ConfigPathEnvVar points at an optional YAML file.
	ConfigPathEnvVar = "CLIPCAST_CONFIG"
)

// DefaultConfigPaths are probed in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/clipcast/config.yaml",
}

// Config captures the runtime configuration for the clipcast backend service.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Mongo      MongoConfig      `koanf:"mongo"`
	Auth       AuthConfig       `koanf:"auth"`
	Media      MediaConfig      `koanf:"media"`
	Search     SearchConfig     `koanf:"search"`
	Pagination PaginationConfig `koanf:"pagination"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
	Log        LogConfig        `koanf:"log"`
	Probe      ProbeConfig      `koanf:"probe"`
}

type ServerConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	MaxUploadBytes    int64         `koanf:"max_upload_bytes"`
}

// Transactions modes for MongoConfig.
const (
	TransactionsAuto = "auto"
	TransactionsOn   = "on"
	TransactionsOff  = "off"
)

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// Transactions is auto (detect replica set), on, or off.
	Transactions string `koanf:"transactions"`
}

type AuthConfig struct {
	AccessSecret  string        `koanf:"access_secret"`
	RefreshSecret string        `koanf:"refresh_secret"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	CookieSecure  bool          `koanf:"cookie_secure"`
	CookieDomain  string        `koanf:"cookie_domain"`
}

// Media drivers.
const (
	MediaDriverS3    = "s3"
	MediaDriverMinIO = "minio"
)

type MediaConfig struct {
	Driver        string `koanf:"driver"`
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	Endpoint      string `koanf:"endpoint"`
	PublicBaseURL string `koanf:"public_base_url"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	UseSSL        bool   `koanf:"use_ssl"`
	// CleanupWorkers and CleanupQueue size the remote-delete janitor.
	CleanupWorkers int `koanf:"cleanup_workers"`
	CleanupQueue   int `koanf:"cleanup_queue"`
}

type SearchConfig struct {
	Mode       string `koanf:"mode"`
	AtlasIndex string `koanf:"atlas_index"`
}

type PaginationConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ProbeConfig struct {
	Enabled bool          `koanf:"enabled"`
	Timeout time.Duration `koanf:"timeout"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"http://localhost:5173"},
			MaxUploadBytes:    512 << 20,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "clipcast",
			ConnectTimeout: 10 * time.Second,
			Transactions:   TransactionsAuto,
		},
		Auth: AuthConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   10 * 24 * time.Hour,
			CookieSecure: true,
		},
		Media: MediaConfig{
			Driver:         MediaDriverS3,
			Bucket:         "clipcast-media",
			Region:         "us-east-1",
			CleanupWorkers: 2,
			CleanupQueue:   64,
		},
		Search: SearchConfig{
			Mode:       "text",
			AtlasIndex: "videos",
		},
		Pagination: PaginationConfig{
			DefaultLimit: 10,
			MaxLimit:     100,
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   time.Minute,
			Burst:    5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Probe: ProbeConfig{
			Enabled: true,
			Timeout: 30 * time.Second,
		},
	}
}

// Load layers built-in defaults, an optional YAML file, and CLIPCAST_ environment
// variables, in increasing priority, then validates the result.
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

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envKey maps CLIPCAST_MONGO__URI to mongo.uri. A double underscore separates
// sections so field names keep their single underscores.
func envKey(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		return path
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

// Validate rejects configurations the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if strings.TrimSpace(c.Mongo.URI) == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if strings.TrimSpace(c.Mongo.Database) == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	switch c.Mongo.Transactions {
	case TransactionsAuto, TransactionsOn, TransactionsOff:
	default:
		errs = append(errs, fmt.Errorf("mongo.transactions %q must be auto, on or off", c.Mongo.Transactions))
	}
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("auth.access_secret and auth.refresh_secret are required"))
	}
	if c.Auth.AccessTTL <= 0 || c.Auth.RefreshTTL <= 0 {
		errs = append(errs, errors.New("auth token ttls must be positive"))
	}
	switch c.Media.Driver {
	case MediaDriverS3, MediaDriverMinIO:
	default:
		errs = append(errs, fmt.Errorf("unknown media.driver %q", c.Media.Driver))
	}
	if c.Media.Bucket == "" {
		errs = append(errs, errors.New("media.bucket is required"))
	}
	if c.Media.Driver == MediaDriverMinIO && c.Media.Endpoint == "" {
		errs = append(errs, errors.New("media.endpoint is required for the minio driver"))
	}
	switch c.Search.Mode {
	case "text", "atlas":
	default:
		errs = append(errs, fmt.Errorf("unknown search.mode %q", c.Search.Mode))
	}
	if c.Pagination.DefaultLimit < 1 || c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		errs = append(errs, errors.New("pagination limits must satisfy 1 <= default_limit <= max_limit"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
