package config

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Shop     ShopConfig
	JWT      JWTConfig
	Log      LogConfig
	Redis    RedisConfig
	CORS       CORSConfig
	Security   SecurityConfig
	Pagination PaginationConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig 共享库配置（用户、刷新令牌等全局数据）
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ShopConfig 店铺注册表配置
type ShopConfig struct {
	ConfigFile string // 店铺配置文件路径（JSON）
}

type JWTConfig struct {
	SecretKey             string // JWT密钥
	AccessTokenDuration   string // 访问令牌有效期，如 "30m"
	RefreshTokenDuration  string // 刷新令牌有效期，如 "168h"
	PasswordResetDuration string // 密码重置令牌有效期
	EmailVerifyDuration   string // 邮箱验证令牌有效期
}

type LogConfig struct {
	Level      string
	FilePath   string
	MaxSize    int    // MB
	MaxBackups int    // 保留的备份文件数
	MaxAge     int    // 保留天数
	Compress   bool   // 是否压缩
	Format     string // json 或 text
}

type RedisConfig struct {
	Host     string // Redis主机地址
	Port     int    // Redis端口
	Password string // Redis密码
	DB       int    // Redis数据库编号
	Prefix   string // 邮件队列键前缀
}

type CORSConfig struct {
	AllowOrigins     []string // 允许的源
	AllowMethods     []string // 允许的HTTP方法
	AllowHeaders     []string // 允许的请求头
	ExposeHeaders    []string // 暴露的响应头
	AllowCredentials bool     // 是否允许携带凭证
	MaxAge           int      // 预检请求缓存时间（小时）
}

type SecurityConfig struct {
	PasswordMinLength int // 密码最小长度
}

// PaginationConfig 列表接口的分页策略
type PaginationConfig struct {
	DefaultPageSize int // 未指定page_size时的默认值
	MaxPageSize     int // page_size上限
}

// 全局配置实例和同步锁
var (
	globalConfig *Config
	once         sync.Once
)

func GetConfig() *Config {
	once.Do(func() {
		var err error
		globalConfig, err = LoadConfig()
		if err != nil {
			panic("Failed to load config: " + err.Error())
		}
	})
	return globalConfig
}

// 获取环境变量，如果不存在则使用默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// 获取环境变量转换为int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// 获取环境变量转换为bool
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

// 获取环境变量转换为字符串数组（逗号分隔）
func getEnvAsStringArray(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return defaultValue
}

func LoadConfig() (*Config, error) {
	// .env不存在时直接读环境变量
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Mode: getEnv("SERVER_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "multi_shop_shared"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Shop: ShopConfig{
			ConfigFile: getEnv("SHOPS_CONFIG_FILE", "shops.json"),
		},
		JWT: JWTConfig{
			SecretKey:             getEnv("JWT_SECRET_KEY", "default-secret-change-me"),
			AccessTokenDuration:   getEnv("JWT_ACCESS_DURATION", "30m"),
			RefreshTokenDuration:  getEnv("JWT_REFRESH_DURATION", "168h"),
			PasswordResetDuration: getEnv("JWT_PASSWORD_RESET_DURATION", "1h"),
			EmailVerifyDuration:   getEnv("JWT_EMAIL_VERIFY_DURATION", "24h"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE_PATH", "logs/app.log"),
			MaxSize:    getEnvAsInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 7),
			MaxAge:     getEnvAsInt("LOG_MAX_AGE", 30),
			Compress:   getEnvAsBool("LOG_COMPRESS", true),
			Format:     getEnv("LOG_FORMAT", "json"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "mshop:mail"),
		},
		CORS: CORSConfig{
			AllowOrigins:     getEnvAsStringArray("CORS_ALLOW_ORIGINS", []string{"*"}),
			AllowMethods:     getEnvAsStringArray("CORS_ALLOW_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			AllowHeaders:     getEnvAsStringArray("CORS_ALLOW_HEADERS", []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"}),
			ExposeHeaders:    getEnvAsStringArray("CORS_EXPOSE_HEADERS", []string{"Content-Length", "Content-Type"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 12),
		},
		Security: SecurityConfig{
			PasswordMinLength: getEnvAsInt("PASSWORD_MIN_LENGTH", 8),
		},
		Pagination: PaginationConfig{
			DefaultPageSize: getEnvAsInt("PAGE_SIZE_DEFAULT", 10),
			MaxPageSize:     getEnvAsInt("PAGE_SIZE_MAX", 100),
		},
	}

	return config, nil
}
