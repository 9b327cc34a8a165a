package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Consul    ConsulConfig    `json:"consul"`
	Jaeger    JaegerConfig    `json:"jaeger"`
	Log       LogConfig       `json:"log"`
	Auth      AuthConfig      `json:"auth"`
	Catalog   CatalogConfig   `json:"catalog"`
	Detector  DetectorConfig  `json:"detector"`
	RateLimit RateLimitConfig `json:"rate_limit"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	HTTPPort int    `json:"http_port"` // HTTP端口
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// ConsulConfig Consul配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Driver string `json:"driver"` // logrus, zap
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// AuthConfig 鉴权配置（管理类接口需要 admin 角色）。
type AuthConfig struct {
	Enabled     bool                `json:"enabled"`
	JWTSecret   string              `json:"jwt_secret"`
	Issuer      string              `json:"issuer"`
	Audience    string              `json:"audience"`
	PublicPaths []string            `json:"public_paths"` // 免鉴权路径前缀
	RBAC        map[string][]string `json:"rbac"`         // 路径前缀 -> 允许角色
}

// CatalogConfig 车型库配置
type CatalogConfig struct {
	Path string `json:"path"` // .csv（分号分隔）或 .xlsx
}

// DetectorConfig 外部识别服务配置（品牌分类 + 文本识别）。
type DetectorConfig struct {
	BrandURL   string `json:"brand_url"`
	TextURL    string `json:"text_url"`
	TimeoutSec int    `json:"timeout_sec"`
	RetryCount int    `json:"retry_count"`
}

// RateLimitConfig 入场接口限流配置
type RateLimitConfig struct {
	Enabled    bool  `json:"enabled"`
	Capacity   int64 `json:"capacity"`    // 令牌桶容量
	RefillRate int64 `json:"refill_rate"` // 每秒补充令牌数
}

// LoadConfig 从文件加载配置；文件不存在时返回默认配置。
// 配置对象由进程入口持有并注入到各组件，不做全局缓存。
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		logrus.Warnf("Config file not found: %s, using default config", configPath)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// DefaultConfig 默认配置（开发环境）
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "parking-service",
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "smartparkvision",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "localhost:6831",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Driver: "logrus",
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
		Auth: AuthConfig{
			Enabled:     false,
			Issuer:      "smartparkvision",
			Audience:    "smartparkvision",
			PublicPaths: []string{"/healthz", "/api/process", "/api/exit", "/api/status", "/api/recent", "/api/all-vehicles", "/api/stats"},
			RBAC: map[string][]string{
				"/api/reset-system":  {"admin"},
				"/api/clear-history": {"admin"},
				"/api/export-data":   {"admin"},
				"/api/vehicle":       {"admin"},
			},
		},
		Catalog: CatalogConfig{
			Path: "data/inforcar.csv",
		},
		Detector: DetectorConfig{
			BrandURL:   "http://localhost:9001",
			TextURL:    "http://localhost:9002",
			TimeoutSec: 30,
			RetryCount: 3,
		},
		RateLimit: RateLimitConfig{
			Enabled:    true,
			Capacity:   20,
			RefillRate: 10,
		},
	}
}
