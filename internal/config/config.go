package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "CANVAS"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultDatabaseDriver     = "sqlite"
	defaultDatabasePath       = "uibuilder.db"
	defaultLogLevel           = "info"
	defaultRealtimeBufferSize = 16
	defaultRelayChannelPrefix = "canvas:rooms:"
	defaultPreviewScale       = 1.0
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	DatabaseDriver     string
	DatabasePath       string
	DatabaseDSN        string
	LogLevel           string
	RealtimeBufferSize int
	RedisAddress       string
	RelayChannelPrefix string
	PreviewScale       float64
	AllowedOrigins     []string
}

// RelayEnabled reports whether a Redis address was configured.
func (c AppConfig) RelayEnabled() bool {
	return strings.TrimSpace(c.RedisAddress) != ""
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.dsn", "")
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("realtime.buffer_size", defaultRealtimeBufferSize)
	configViper.SetDefault("relay.redis_addr", "")
	configViper.SetDefault("relay.channel_prefix", defaultRelayChannelPrefix)
	configViper.SetDefault("preview.scale", defaultPreviewScale)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabaseDriver:     strings.ToLower(strings.TrimSpace(configViper.GetString("database.driver"))),
		DatabasePath:       configViper.GetString("database.path"),
		DatabaseDSN:        configViper.GetString("database.dsn"),
		LogLevel:           configViper.GetString("log.level"),
		RealtimeBufferSize: configViper.GetInt("realtime.buffer_size"),
		RedisAddress:       configViper.GetString("relay.redis_addr"),
		RelayChannelPrefix: configViper.GetString("relay.channel_prefix"),
		PreviewScale:       configViper.GetFloat64("preview.scale"),
		AllowedOrigins:     configViper.GetStringSlice("http.allowed_origins"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.DatabaseDriver {
	case "sqlite":
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required")
		}
	case "postgres":
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.RealtimeBufferSize <= 0 {
		return fmt.Errorf("realtime.buffer_size must be positive")
	}
	if c.RelayEnabled() && strings.TrimSpace(c.RelayChannelPrefix) == "" {
		return fmt.Errorf("relay.channel_prefix is required when relay.redis_addr is set")
	}
	if c.PreviewScale <= 0 || c.PreviewScale > 4 {
		return fmt.Errorf("preview.scale must be within (0, 4]")
	}
	return nil
}
