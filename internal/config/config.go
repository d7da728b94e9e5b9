// Package config 负责从环境变量（以及可选的 .env 文件）加载应用配置。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 聚合应用的全部配置项，启动时构建一次并注入各层。
type Config struct {
	App        AppConfig
	Log        LogConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Cache      CacheConfig
	Migrations MigrationsConfig
	Admin      AdminConfig
	Bank       BankConfig
	Policy     PolicyConfig
	Notify     NotifyConfig
	RateLimit  RateLimitConfig
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name            string
	Env             string
	Version         string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string
	Encoding string
}

// DatabaseConfig MySQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled bool
	Type    string // redis | memory
	TTL     time.Duration
}

// MigrationsConfig 数据库迁移配置
type MigrationsConfig struct {
	Dir string
}

// AdminConfig 管理后台共享密钥。
// SecretHash 为 bcrypt 哈希，设置后优先于明文 Secret。
type AdminConfig struct {
	Secret     string
	SecretHash string
}

// BankConfig 无通帐入金账户信息，用于下单通知和催款邮件。
type BankConfig struct {
	Name    string
	Account string
	Holder  string
}

// PolicyConfig 业务策略常量
type PolicyConfig struct {
	ShippingFee           int64
	FreeShippingThreshold int64
	ReturnShippingFee     int64
	ReturnWindowDays      int
}

// NotifyConfig 通知渠道配置，未配置的渠道只记录日志。
type NotifyConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	ChatAPIURL   string
	ChatAPIKey   string
	ChatSenderID string

	KafkaBrokers []string
	KafkaTopic   string
}

// RateLimitConfig 顾客自助查询接口的限流配置
type RateLimitConfig struct {
	Enabled          bool
	LookupsPerMinute int64
}

// Load 读取 .env（如存在）和环境变量构建配置，并校验必填项。
func Load() (*Config, error) {
	// .env 不存在时忽略错误，生产环境直接使用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "bp-store"),
			Env:             getEnv("APP_ENV", "dev"),
			Version:         getEnv("APP_VERSION", "0.1.0"),
			Port:            getEnvAsInt("APP_PORT", 8080),
			RequestTimeout:  getEnvAsDuration("APP_REQUEST_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("APP_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Log: LogConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "127.0.0.1"),
			Port:     getEnvAsInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "bp_store"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "127.0.0.1"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Enabled: getEnvAsBool("CACHE_ENABLED", false),
			Type:    getEnv("CACHE_TYPE", "memory"),
			TTL:     getEnvAsDuration("CACHE_TTL", time.Minute),
		},
		Migrations: MigrationsConfig{
			Dir: getEnv("MIGRATIONS_DIR", "migrations"),
		},
		Admin: AdminConfig{
			Secret:     getEnv("ADMIN_SECRET", ""),
			SecretHash: getEnv("ADMIN_SECRET_HASH", ""),
		},
		Bank: BankConfig{
			Name:    getEnv("BANK_NAME", ""),
			Account: getEnv("BANK_ACCOUNT", ""),
			Holder:  getEnv("BANK_HOLDER", ""),
		},
		Policy: PolicyConfig{
			ShippingFee:           getEnvAsInt64("POLICY_SHIPPING_FEE", 3000),
			FreeShippingThreshold: getEnvAsInt64("POLICY_FREE_SHIPPING_THRESHOLD", 70000),
			ReturnShippingFee:     getEnvAsInt64("POLICY_RETURN_SHIPPING_FEE", 6000),
			ReturnWindowDays:      getEnvAsInt("POLICY_RETURN_WINDOW_DAYS", 7),
		},
		Notify: NotifyConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			MailFrom:     getEnv("MAIL_FROM", ""),
			ChatAPIURL:   getEnv("CHAT_API_URL", ""),
			ChatAPIKey:   getEnv("CHAT_API_KEY", ""),
			ChatSenderID: getEnv("CHAT_SENDER_ID", ""),
			KafkaBrokers: getEnvAsList("KAFKA_BROKERS"),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "bp-store.events"),
		},
		RateLimit: RateLimitConfig{
			Enabled:          getEnvAsBool("RATE_LIMIT_ENABLED", true),
			LookupsPerMinute: getEnvAsInt64("RATE_LIMIT_LOOKUPS_PER_MINUTE", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的完整性
func (c *Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT out of range: %d", c.App.Port))
	}
	if strings.TrimSpace(c.Database.Host) == "" || strings.TrimSpace(c.Database.DBName) == "" {
		errs = append(errs, errors.New("DB_HOST and DB_NAME are required"))
	}
	if c.Admin.Secret == "" && c.Admin.SecretHash == "" {
		errs = append(errs, errors.New("ADMIN_SECRET or ADMIN_SECRET_HASH is required"))
	}
	if c.Policy.ShippingFee < 0 || c.Policy.FreeShippingThreshold < 0 || c.Policy.ReturnShippingFee < 0 {
		errs = append(errs, errors.New("policy amounts must not be negative"))
	}
	if c.Policy.ReturnWindowDays <= 0 {
		errs = append(errs, errors.New("POLICY_RETURN_WINDOW_DAYS must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.LookupsPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_LOOKUPS_PER_MINUTE must be positive when rate limiting is enabled"))
	}
	switch c.Cache.Type {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_TYPE %q", c.Cache.Type))
	}

	return errors.Join(errs...)
}

// ReturnWindow 返回可申请退换货的期限
func (p PolicyConfig) ReturnWindow() time.Duration {
	return time.Duration(p.ReturnWindowDays) * 24 * time.Hour
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
