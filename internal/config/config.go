package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	PingPeriod      time.Duration `mapstructure:"ping_period"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	WriteWait       time.Duration `mapstructure:"write_wait"`
	SendBuffer      int           `mapstructure:"send_buffer"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SessionCapacity int           `mapstructure:"session_capacity"`
	SlowConsumer    string        `mapstructure:"slow_consumer"`
	EventRateLimit  int           `mapstructure:"event_rate_limit"`
	EventRateWindow time.Duration `mapstructure:"event_rate_window"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ICEServers      []ICEServer   `mapstructure:"ice_servers"`
	LogLevel        string        `mapstructure:"log_level"`
	MetricsPath     string        `mapstructure:"metrics_path"`
	NotifyToken     string        `mapstructure:"notify_token"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("session_ttl", "1h")
	v.SetDefault("session_capacity", 0)
	v.SetDefault("slow_consumer", "drop")
	v.SetDefault("event_rate_limit", 0)
	v.SetDefault("event_rate_window", "1s")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("notify_token", "")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Error().Err(err).Str("module", "config").Msg("failed to parse defaults")
	}
	return &cfg
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		fileLoaded = false
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ApplyLogLevel(cfg.LogLevel)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) {
				return
			}
			lvl := v.GetString("log_level")
			ApplyLogLevel(lvl)
			log.Info().Str("module", "config").Str("file", e.Name).Str("log_level", lvl).Msg("config reloaded")
		})
		v.WatchConfig()
	}

	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Dur("session_ttl", cfg.SessionTTL).
		Str("slow_consumer", cfg.SlowConsumer).
		Msg("config ready")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.SlowConsumer {
	case "drop", "kick":
	default:
		return fmt.Errorf("invalid slow_consumer %q: want drop or kick", c.SlowConsumer)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("invalid send_buffer %d", c.SendBuffer)
	}
	if c.EventRateLimit > 0 && c.EventRateWindow <= 0 {
		return fmt.Errorf("event_rate_window must be positive when event_rate_limit is set")
	}
	if c.PingPeriod >= c.PongWait {
		return fmt.Errorf("ping_period %s must be shorter than pong_wait %s", c.PingPeriod, c.PongWait)
	}
	return nil
}

// ApplyLogLevel sets the zerolog global level; unknown values fall back to info.
func ApplyLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
