package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`
	PostgresConn  string `mapstructure:"POSTGRES_CONN"`
	PostgresUser  string `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass  string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost  string `mapstructure:"POSTGRES_HOST"`
	PostgresPort  string `mapstructure:"POSTGRES_PORT"`
	PostgresDB    string `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL  string `mapstructure:"MIGRATION_URL"`

	StorageDriver  string        `mapstructure:"STORAGE_DRIVER"`
	JWTSecret      string        `mapstructure:"JWT_SECRET"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	HandlerTimeout time.Duration `mapstructure:"HANDLER_TIMEOUT"`
	RequestTTL     time.Duration `mapstructure:"REQUEST_TTL"`
	OfferTTL       time.Duration `mapstructure:"OFFER_TTL"`
	SweepInterval  time.Duration `mapstructure:"SWEEP_INTERVAL"`

	NotifyDriver string `mapstructure:"NOTIFY_DRIVER"`
	NotifyBuffer int    `mapstructure:"NOTIFY_BUFFER"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	RedisDB      int    `mapstructure:"REDIS_DB"`
	NotifyStream string `mapstructure:"NOTIFY_STREAM"`
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string `mapstructure:"KAFKA_TOPIC"`

	BlobDriver      string `mapstructure:"BLOB_DRIVER"`
	BlobFSRoot      string `mapstructure:"BLOB_FS_ROOT"`
	BlobS3Bucket    string `mapstructure:"BLOB_S3_BUCKET"`
	BlobS3Region    string `mapstructure:"BLOB_S3_REGION"`
	BlobS3Endpoint  string `mapstructure:"BLOB_S3_ENDPOINT"`
	BlobS3PathStyle bool   `mapstructure:"BLOB_S3_PATH_STYLE"`
	MaxUploadBytes  int64  `mapstructure:"MAX_UPLOAD_BYTES"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":     "0.0.0.0:8080",
	"POSTGRES_CONN":      "",
	"POSTGRES_USERNAME":  "",
	"POSTGRES_PASSWORD":  "",
	"POSTGRES_HOST":      "",
	"POSTGRES_PORT":      "5432",
	"POSTGRES_DATABASE":  "",
	"MIGRATION_URL":      "file://db/migration",
	"STORAGE_DRIVER":     "postgres",
	"JWT_SECRET":         "",
	"LOG_LEVEL":          "info",
	"HANDLER_TIMEOUT":    "5s",
	"REQUEST_TTL":        "24h",
	"OFFER_TTL":          "24h",
	"SWEEP_INTERVAL":     "5m",
	"NOTIFY_DRIVER":      "log",
	"NOTIFY_BUFFER":      256,
	"REDIS_ADDR":         "localhost:6379",
	"REDIS_DB":           0,
	"NOTIFY_STREAM":      "rfq:notifications",
	"KAFKA_BROKERS":      "",
	"KAFKA_TOPIC":        "rfq.notifications",
	"BLOB_DRIVER":        "fs",
	"BLOB_FS_ROOT":       "./data/blobs",
	"BLOB_S3_BUCKET":     "",
	"BLOB_S3_REGION":     "us-east-1",
	"BLOB_S3_ENDPOINT":   "",
	"BLOB_S3_PATH_STYLE": false,
	"MAX_UPLOAD_BYTES":   20 << 20,
}

// LoadConfig загружает конфигурацию из файла app.env в path и переменных окружения.
// Отсутствие файла не ошибка: все ключи имеют значения по умолчанию.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.HandlerTimeout <= 0 {
		problems = append(problems, "HANDLER_TIMEOUT must be positive")
	}
	if c.RequestTTL <= 0 || c.OfferTTL <= 0 {
		problems = append(problems, "REQUEST_TTL and OFFER_TTL must be positive")
	}
	if c.SweepInterval < 0 {
		problems = append(problems, "SWEEP_INTERVAL must not be negative")
	}

	switch c.StorageDriver {
	case "postgres":
		if c.DSN() == "" {
			problems = append(problems, "POSTGRES_CONN or POSTGRES_HOST/USERNAME/DATABASE is required for postgres storage")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.NotifyDriver {
	case "log", "redis":
	case "kafka":
		if len(c.Brokers()) == 0 {
			problems = append(problems, "KAFKA_BROKERS is required for kafka notifications")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown NOTIFY_DRIVER %q", c.NotifyDriver))
	}

	switch c.BlobDriver {
	case "fs", "memory":
	case "s3":
		if c.BlobS3Bucket == "" {
			problems = append(problems, "BLOB_S3_BUCKET is required for s3 blobs")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown BLOB_DRIVER %q", c.BlobDriver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DSN возвращает строку подключения к Postgres. Если POSTGRES_CONN не задан,
// строка собирается из POSTGRES_USERNAME, POSTGRES_PASSWORD, POSTGRES_HOST,
// POSTGRES_PORT и POSTGRES_DATABASE.
func (c Config) DSN() string {
	if c.PostgresConn != "" {
		return c.PostgresConn
	}
	if c.PostgresUser == "" || c.PostgresHost == "" || c.PostgresDB == "" {
		return ""
	}
	host := c.PostgresHost
	if c.PostgresPort != "" {
		host = net.JoinHostPort(c.PostgresHost, c.PostgresPort)
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPass),
		Host:     host,
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return dsn.String()
}

// Brokers возвращает список брокеров Kafka из строки через запятую.
func (c Config) Brokers() []string {
	var out []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
