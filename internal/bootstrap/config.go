package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"woori-codeshare/internal/infra/setup"
)

// Config 结构体用于存储从环境变量或文件加载的配置
type Config struct {
	DB                  setup.DBConfig
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	KeyPrefix           string // Redis Key 前缀
	UpstreamURL         string // 外部 REST 后端地址
	UpstreamTimeout     time.Duration
	RoomPassSecret      string
	RoomPassExpiryHours int
	ServerPort          string
	LogLevel            string
	AppEnv              string // development/production
	RateLimitMax        int
	RateLimitWindow     time.Duration
	CheckpointDelay     time.Duration
	AllowedOrigin       string
}

// LoadConfig 从环境变量加载配置
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件 (如果存在)
	_ = godotenv.Load()

	cfg := &Config{
		DB: setup.DBConfig{
			Driver:   os.Getenv("DB_DRIVER"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			Name:     os.Getenv("DB_NAME"),
			Path:     os.Getenv("DB_PATH"),
		},
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		KeyPrefix:           os.Getenv("REDIS_KEY_PREFIX"),
		UpstreamURL:         os.Getenv("UPSTREAM_API_URL"),
		RoomPassSecret:      os.Getenv("ROOM_PASS_SECRET"),
		ServerPort:          os.Getenv("SERVER_PORT"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		AppEnv:              os.Getenv("APP_ENV"),
		AllowedOrigin:       os.Getenv("CORS_ALLOWED_ORIGIN"),
		UpstreamTimeout:     10 * time.Second,
		RoomPassExpiryHours: 24,
		RateLimitMax:        100,
		RateLimitWindow:     1 * time.Second,
		CheckpointDelay:     5 * time.Second,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB")) // 忽略错误，默认为 0
	if v, err := strconv.Atoi(os.Getenv("ROOM_PASS_EXPIRY_HOURS")); err == nil && v > 0 {
		cfg.RoomPassExpiryHours = v
	}
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_MAX")); err == nil && v > 0 {
		cfg.RateLimitMax = v
	}
	if raw := os.Getenv("CHECKPOINT_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid CHECKPOINT_DELAY %q", raw)
		}
		cfg.CheckpointDelay = d
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cs:"
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = setup.DriverSQLite
	}
	if cfg.AllowedOrigin == "" {
		cfg.AllowedOrigin = "http://localhost:3000"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("environment variable UPSTREAM_API_URL must be set")
	}
	if cfg.RoomPassSecret == "" {
		return nil, fmt.Errorf("environment variable ROOM_PASS_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
