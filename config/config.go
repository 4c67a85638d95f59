package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	// Driver selects the persistent store backend: "sqlite" or "memory"
	// (the latter for local development and tests).
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type AuthConfig struct {
	// Secret verifies bearer tokens minted by the external auth service.
	Secret           string        `mapstructure:"secret"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type HubConfig struct {
	MailboxSize   int           `mapstructure:"mailbox_size"`
	SessionBuffer int           `mapstructure:"session_buffer"`
	SendTimeout   time.Duration `mapstructure:"send_timeout"`
}

type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
	// RatePerSec / RateBurst bound inbound commands per connection.
	RatePerSec float64 `mapstructure:"rate_per_sec"`
	RateBurst  int     `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Hub    HubConfig    `mapstructure:"hub"`
	Chat   ChatConfig   `mapstructure:"chat"`
	Log    LogConfig    `mapstructure:"log"`

	// Level is the live log level; the config watcher retargets it when the
	// file changes, without a restart.
	Level *slog.LevelVar `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "devconnect.db")
	v.SetDefault("auth.handshake_timeout", 10*time.Second)
	v.SetDefault("hub.mailbox_size", 256)
	v.SetDefault("hub.session_buffer", 256)
	v.SetDefault("hub.send_timeout", 500*time.Millisecond)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.rate_per_sec", 10.0)
	v.SetDefault("chat.rate_burst", 20)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads configuration from defaults, an optional YAML file and
// DEVCONNECT_* environment variables, in ascending precedence. With a file
// present, changes to log.level are applied live.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEVCONNECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{Level: new(slog.LevelVar)}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Level.Set(ParseLevel(cfg.Log.Level))

	if path != "" {
		v.OnConfigChange(func(in fsnotify.Event) {
			cfg.Level.Set(ParseLevel(v.GetString("log.level")))
		})
		v.WatchConfig()
	}

	return cfg, nil
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
