package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"perfect-volume-control/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. PVC_SERVER_ADDR.
const EnvPrefix = "PVC"

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Platform PlatformConfig `mapstructure:"platform"`
	Bridge   BridgeConfig   `mapstructure:"bridge"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address for the HTTP API and the channel.
	Addr string `mapstructure:"addr"`
}

// ChannelConfig controls the method channel.
type ChannelConfig struct {
	Name        string        `mapstructure:"name"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
	// SendBuffer is the per-peer outbound queue length.
	SendBuffer int `mapstructure:"send_buffer"`
}

// PlatformConfig selects and tunes the host platform.
type PlatformConfig struct {
	// Backend is "sim" or "osascript".
	Backend string `mapstructure:"backend"`
	// PollInterval is how often osascript re-reads the output volume.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// InitialVolume seeds the sim backend.
	InitialVolume float64 `mapstructure:"initial_volume"`
}

// BridgeConfig tunes the volume bridge.
type BridgeConfig struct {
	Category string `mapstructure:"category"`
	Mode     string `mapstructure:"mode"`
	// DedupWindow collapses equal volume events; zero disables it.
	DedupWindow time.Duration `mapstructure:"dedup_window"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Backend names.
const (
	BackendSim       = "sim"
	BackendOsascript = "osascript"
)

// Default returns a Config with the default values.
func Default() *Config {
	session := domain.DefaultSessionOptions()
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:8765",
		},
		Channel: ChannelConfig{
			Name:        domain.ChannelName,
			CallTimeout: 5 * time.Second,
			SendBuffer:  64,
		},
		Platform: PlatformConfig{
			Backend:       BackendSim,
			PollInterval:  500 * time.Millisecond,
			InitialVolume: 0.5,
		},
		Bridge: BridgeConfig{
			Category:    session.Category,
			Mode:        session.Mode,
			DedupWindow: 0,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.addr", defaults.Server.Addr)

	v.SetDefault("channel.name", defaults.Channel.Name)
	v.SetDefault("channel.call_timeout", defaults.Channel.CallTimeout)
	v.SetDefault("channel.send_buffer", defaults.Channel.SendBuffer)

	v.SetDefault("platform.backend", defaults.Platform.Backend)
	v.SetDefault("platform.poll_interval", defaults.Platform.PollInterval)
	v.SetDefault("platform.initial_volume", defaults.Platform.InitialVolume)

	v.SetDefault("bridge.category", defaults.Bridge.Category)
	v.SetDefault("bridge.mode", defaults.Bridge.Mode)
	v.SetDefault("bridge.dedup_window", defaults.Bridge.DedupWindow)

	v.SetDefault("log.level", defaults.Log.Level)
}

// NewViper returns a viper instance with defaults and PVC_ environment
// overrides. If file is empty the default locations are searched.
func NewViper(file string) *viper.Viper {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the config file into v. A missing file is not an error.
func Read(v *viper.Viper) error {
	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	if v.ConfigFileUsed() != "" && isNotExist(err) {
		return nil
	}
	return fmt.Errorf("read config: %w", err)
}

// Load reads the configuration from v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// SessionOptions returns the audio session options for the bridge.
func (c *Config) SessionOptions() domain.SessionOptions {
	opts := domain.DefaultSessionOptions()
	if c.Bridge.Category != "" {
		opts.Category = c.Bridge.Category
	}
	if c.Bridge.Mode != "" {
		opts.Mode = c.Bridge.Mode
	}
	return opts
}
