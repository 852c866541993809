package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"perfect-volume-control/internal/logging"
)

// Watch reloads the config file on change and passes every valid
// revision to onChange. Invalid revisions are logged and skipped.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(v)
		if err != nil {
			logging.Warnf("config %s changed but is invalid: %v", e.Name, err)
			return
		}
		logging.Infof("config %s reloaded", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}

// ApplyLogLevel is an onChange hook that follows log.level.
func ApplyLogLevel(cfg *Config) {
	if logging.LevelName() == normalizeLevel(cfg.Log.Level) {
		return
	}
	if _, err := logging.SetLevel(cfg.Log.Level); err != nil {
		logging.Warnf("log.level: %v", err)
		return
	}
	logging.Infof("log level set to %s", logging.LevelName())
}

func normalizeLevel(name string) string {
	l, _, err := logging.ParseLevel(name)
	if err != nil {
		return name
	}
	return logging.LevelToString(l)
}
