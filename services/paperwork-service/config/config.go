package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	GRPCPort        string        `mapstructure:"grpc_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
	LogLevel string `mapstructure:"log_level"`
}

type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key"`
	SecretAccessKey string `mapstructure:"secret_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket"`
}

// StorageConfig selects the artifact backend: minio, fs or memory.
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"`
	Root            string        `mapstructure:"root"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type ArchiveConfig struct {
	MaxEntryBytes int64 `mapstructure:"max_entry_bytes"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// 环境变量与配置键的对应关系
var envBindings = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.grpc_port":         "GRPC_PORT",
	"server.shutdown_timeout":  "SHUTDOWN_TIMEOUT",
	"server.max_upload_bytes":  "MAX_UPLOAD_BYTES",
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.dbname":          "DB_NAME",
	"database.sslmode":         "DB_SSLMODE",
	"database.timezone":        "DB_TIMEZONE",
	"database.log_level":       "DB_LOG_LEVEL",
	"minio.endpoint":           "MINIO_ENDPOINT",
	"minio.access_key":         "MINIO_ACCESS_KEY",
	"minio.secret_key":         "MINIO_SECRET_KEY",
	"minio.use_ssl":            "MINIO_USE_SSL",
	"minio.bucket":             "MINIO_BUCKET_NAME",
	"storage.backend":          "STORAGE_BACKEND",
	"storage.root":             "STORAGE_ROOT",
	"storage.max_retries":      "STORAGE_MAX_RETRIES",
	"storage.initial_interval": "STORAGE_RETRY_INITIAL",
	"storage.max_interval":     "STORAGE_RETRY_MAX",
	"kafka.brokers":            "KAFKA_BROKERS",
	"kafka.topic":              "KAFKA_TOPIC",
	"nats.url":                 "NATS_URL",
	"nats.subject":             "NATS_SUBJECT",
	"auth.jwt_secret":          "JWT_SECRET",
	"archive.max_entry_bytes":  "ARCHIVE_MAX_ENTRY_BYTES",
	"metrics.enabled":          "METRICS_ENABLED",
	"metrics.port":             "METRICS_PORT",
	"log.level":                "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.grpc_port", "")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(200<<20))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("minio.bucket", "paperwork")
	v.SetDefault("storage.backend", "minio")
	v.SetDefault("storage.root", "./data/artifacts")
	v.SetDefault("storage.max_retries", 3)
	v.SetDefault("storage.initial_interval", 100*time.Millisecond)
	v.SetDefault("storage.max_interval", time.Second)
	v.SetDefault("kafka.topic", "paperwork-events")
	v.SetDefault("nats.subject", "paperwork.events")
	v.SetDefault("archive.max_entry_bytes", int64(10<<20))
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", "9090")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads an optional .env file, the YAML file named by
// PAPERWORK_CONFIG if set, then environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path := os.Getenv("PAPERWORK_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KAFKA_BROKERS arrives as one comma separated string from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "minio":
		if c.MinIO.Endpoint == "" {
			return errors.New("storage backend minio requires MINIO_ENDPOINT")
		}
	case "fs":
		if c.Storage.Root == "" {
			return errors.New("storage backend fs requires STORAGE_ROOT")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode, c.TimeZone)
}
