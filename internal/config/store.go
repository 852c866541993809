package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout written by Save. Durations are kept as
// strings so the file stays readable and round-trips through viper.
type fileConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Channel struct {
		Name        string `yaml:"name"`
		CallTimeout string `yaml:"call_timeout"`
		SendBuffer  int    `yaml:"send_buffer"`
	} `yaml:"channel"`
	Platform struct {
		Backend       string  `yaml:"backend"`
		PollInterval  string  `yaml:"poll_interval"`
		InitialVolume float64 `yaml:"initial_volume"`
	} `yaml:"platform"`
	Bridge struct {
		Category    string `yaml:"category"`
		Mode        string `yaml:"mode"`
		DedupWindow string `yaml:"dedup_window"`
	} `yaml:"bridge"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func toFile(cfg *Config) fileConfig {
	var f fileConfig
	f.Server.Addr = cfg.Server.Addr
	f.Channel.Name = cfg.Channel.Name
	f.Channel.CallTimeout = cfg.Channel.CallTimeout.String()
	f.Channel.SendBuffer = cfg.Channel.SendBuffer
	f.Platform.Backend = cfg.Platform.Backend
	f.Platform.PollInterval = cfg.Platform.PollInterval.String()
	f.Platform.InitialVolume = cfg.Platform.InitialVolume
	f.Bridge.Category = cfg.Bridge.Category
	f.Bridge.Mode = cfg.Bridge.Mode
	f.Bridge.DedupWindow = cfg.Bridge.DedupWindow.String()
	f.Log.Level = cfg.Log.Level
	return f
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(toFile(cfg))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// Save writes cfg to path atomically. Parent directories are created.
func Save(path string, cfg *Config) error {
	if path == "" {
		return fmt.Errorf("path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}
