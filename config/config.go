package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config 服务全量配置（config.yaml + PAIRLINK_ 环境变量覆盖）
type Config struct {
	Server struct {
		Addr string `mapstructure:"addr"`
		Mode string `mapstructure:"mode"` // debug, release, test
	} `mapstructure:"server"`

	Database struct {
		Driver string `mapstructure:"driver"` // postgres, sqlite
		DSN    string `mapstructure:"dsn"`
	} `mapstructure:"database"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		// 关注边缓存 TTL（秒），0 关闭缓存
		EdgeCacheTTL int `mapstructure:"edge_cache_ttl"`
	} `mapstructure:"redis"`

	JWT struct {
		Secret     string `mapstructure:"secret"`
		ExpireHour int    `mapstructure:"expire_hour"`
	} `mapstructure:"jwt"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	Sentry struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"sentry"`

	Trace struct {
		Enabled  bool   `mapstructure:"enabled"`
		Endpoint string `mapstructure:"endpoint"` // OTLP HTTP endpoint
	} `mapstructure:"trace"`

	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

// Load 读取 config.yaml（可选）并应用默认值与环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:pairlink.db?cache=shared")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.edge_cache_ttl", 30)
	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.expire_hour", 72)
	v.SetDefault("log.level", "info")
	v.SetDefault("trace.enabled", false)
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetEnvPrefix("PAIRLINK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 允许无配置文件启动
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
