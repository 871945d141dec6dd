package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"todo-app/src/domain"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultConfigFile 設定ファイルのデフォルトパス
const DefaultConfigFile = "todo.toml"

// Config アプリケーション設定
type Config struct {
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
	S3     S3Config     `toml:"s3"`
}

// StoreConfig ストア設定
type StoreConfig struct {
	Driver string `toml:"driver"` // sqlite | postgres | memory
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

// ServerConfig サーバー設定
type ServerConfig struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

// Addr host:port 形式のアドレスを返す
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// LogConfig ログ設定
type LogConfig struct {
	Level          string        `toml:"level"`
	Directory      string        `toml:"directory"`
	Stdout         bool          `toml:"stdout"`
	UploadEnabled  bool          `toml:"upload_enabled"`
	UploadMaxAge   time.Duration `toml:"upload_max_age"`
	UploadInterval time.Duration `toml:"upload_interval"`
}

// S3Config S3設定
type S3Config struct {
	Endpoint        string `toml:"endpoint"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	Region          string `toml:"region"`
	Bucket          string `toml:"bucket"`
	UseSSL          bool   `toml:"use_ssl"`
}

// Default デフォルト設定を返す
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   domain.DatabaseName + ".db",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Log: LogConfig{
			Level:          "info",
			Directory:      "logs",
			UploadEnabled:  false,
			UploadMaxAge:   24 * time.Hour,
			UploadInterval: 1 * time.Hour,
		},
		S3: S3Config{
			Endpoint:        "http://localhost:9000", // MinIO用のデフォルト
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			Region:          "us-east-1",
			Bucket:          "todo-app-logs",
			UseSSL:          false,
		},
	}
}

// LoadConfig デフォルト値、.env、TOMLファイル、環境変数の順に設定を読み込み
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	// .env は既存の環境変数を上書きしない。TODO_CONFIG も .env で指定できる
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		path = getEnv("TODO_CONFIG", DefaultConfigFile)
	}
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// loadFile TOMLファイルを読み込む（存在しない場合は無視）
func loadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// loadFromEnv 環境変数で設定を上書き
func loadFromEnv(cfg *Config) {
	cfg.Store.Driver = getEnv("TODO_STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Path = getEnv("TODO_STORE_PATH", cfg.Store.Path)
	cfg.Store.DSN = getEnv("TODO_STORE_DSN", cfg.Store.DSN)

	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Directory = getEnv("LOG_DIRECTORY", cfg.Log.Directory)
	cfg.Log.Stdout = getBoolEnv("LOG_STDOUT", cfg.Log.Stdout)
	cfg.Log.UploadEnabled = getBoolEnv("LOG_UPLOAD_ENABLED", cfg.Log.UploadEnabled)
	cfg.Log.UploadMaxAge = getDurationEnv("LOG_UPLOAD_MAX_AGE", cfg.Log.UploadMaxAge)
	cfg.Log.UploadInterval = getDurationEnv("LOG_UPLOAD_INTERVAL", cfg.Log.UploadInterval)

	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", cfg.S3.SecretAccessKey)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region)
	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.UseSSL = getBoolEnv("S3_USE_SSL", cfg.S3.UseSSL)
}

// getEnv 環境変数を取得（デフォルト値付き）
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv 環境変数をboolで取得
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv 環境変数をtime.Durationで取得
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
