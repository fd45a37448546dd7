package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/gcbaptista/forum-query-engine/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. QE_SERVER_PORT.
const EnvPrefix = "QE"

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	Engine  EngineSettings `mapstructure:"engine"`
	Source  SourceConfig   `mapstructure:"source"`
	Refresh RefreshConfig  `mapstructure:"refresh"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Auth    AuthConfig     `mapstructure:"auth"`
	Log     logging.Config `mapstructure:"log"`
	DataDir string         `mapstructure:"data_dir"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	MaxBodyBytes int64  `mapstructure:"max_body_bytes"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SourceConfig selects where forum content is loaded from.
type SourceConfig struct {
	Kind        string `mapstructure:"kind"` // "file" or "postgres"
	FilePath    string `mapstructure:"file_path"`
	DatabaseURL string `mapstructure:"database_url"`
}

type RefreshConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"` // cron spec, e.g. "@every 5m"
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads configuration from an optional YAML file, QE_* environment
// variables and defaults, in decreasing priority. An empty configPath
// looks for config.yaml in the working directory and ./config.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed overrides for container platforms
	_ = v.BindEnv("server.port", "QE_SERVER_PORT", "PORT")
	_ = v.BindEnv("source.database_url", "QE_SOURCE_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("redis.address", "QE_REDIS_ADDRESS", "REDIS_ADDRESS")
	_ = v.BindEnv("auth.jwt_secret", "QE_AUTH_JWT_SECRET", "JWT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Engine.ApplyDefaults()

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("engine.default_limit", 25)
	v.SetDefault("engine.max_limit", 100)
	v.SetDefault("engine.highlight_context_chars", 60)
	v.SetDefault("engine.max_fragments_per_post", 0)
	v.SetDefault("engine.enable_scroll_cursors", false)
	v.SetDefault("engine.bm25_k1", 1.2)
	v.SetDefault("engine.bm25_b", 0.75)
	v.SetDefault("engine.cache_ttl_seconds", 30)
	v.SetDefault("source.kind", "file")
	v.SetDefault("source.file_path", "./data/site.json")
	v.SetDefault("refresh.enabled", false)
	v.SetDefault("refresh.schedule", "@every 5m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "qe:results")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "forum-query-engine")
	v.SetDefault("data_dir", "./data")
}

// Validate returns one message per invalid setting
func (cfg *Config) Validate() []string {
	problems := cfg.Engine.Validate()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", cfg.Server.Port))
	}
	switch cfg.Source.Kind {
	case "file":
		if cfg.Source.FilePath == "" {
			problems = append(problems, "source.file_path is required for source kind 'file'")
		}
	case "postgres":
		if cfg.Source.DatabaseURL == "" {
			problems = append(problems, "source.database_url is required for source kind 'postgres'")
		}
	default:
		problems = append(problems, "source.kind must be 'file' or 'postgres', got '"+cfg.Source.Kind+"'")
	}
	if cfg.Refresh.Enabled && strings.TrimSpace(cfg.Refresh.Schedule) == "" {
		problems = append(problems, "refresh.schedule is required when refresh is enabled")
	}
	return problems
}
