package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server          ServerConfig
	Database        DatabaseConfig
	JWT             JWTConfig
	Redis           RedisConfig
	Tracing         TracingConfig         `mapstructure:"tracing"`
	CORS            CORSConfig            `mapstructure:"cors"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	Personalization PersonalizationConfig `mapstructure:"personalization"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

// PersonalizationConfig 个性化引擎的阈值参数
type PersonalizationConfig struct {
	MinDataPoints       int     `mapstructure:"min_data_points"`       // 画像合成所需的最少行为数据量
	ProfileWindowDays   int     `mapstructure:"profile_window_days"`   // 画像合成回看的行为窗口
	SessionMaxAgeHours  int     `mapstructure:"session_max_age_hours"` // 实时会话状态的最大保留时长
	MinTrainingRows     int     `mapstructure:"min_training_rows"`
	MinClusterUsers     int     `mapstructure:"min_cluster_users"`
	ClusterCount        int     `mapstructure:"cluster_count"`
	RecommendationFloor float64 `mapstructure:"recommendation_floor"` // 主题推荐路径的最低综合分
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("MENTORA")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// 个性化引擎默认值
	viper.SetDefault("personalization.min_data_points", 5)
	viper.SetDefault("personalization.profile_window_days", 90)
	viper.SetDefault("personalization.session_max_age_hours", 24)
	viper.SetDefault("personalization.min_training_rows", 50)
	viper.SetDefault("personalization.min_cluster_users", 10)
	viper.SetDefault("personalization.cluster_count", 4)
	viper.SetDefault("personalization.recommendation_floor", 0.3)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	return &cfg, nil
}

// SessionMaxAge 实时会话清理阈值
func (c *PersonalizationConfig) SessionMaxAge() time.Duration {
	hours := c.SessionMaxAgeHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// ProfileWindow 画像合成回看窗口
func (c *PersonalizationConfig) ProfileWindow() time.Duration {
	days := c.ProfileWindowDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}
