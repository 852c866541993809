package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"perfect-volume-control/internal/config"
	"perfect-volume-control/internal/logging"
)

var (
	cfgPath   string
	verbosity int

	// verboseSet records whether -v was given, so the configured
	// log.level does not override it.
	verboseSet bool
)

// NewRootCmd creates the root CLI command.
// This is the primary adapter that translates CLI inputs to use case calls.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "perfect-volume-control",
		Short:         "システム出力音量をメソッドチャネル経由で取得・設定するブリッジ",
		Long:          "音量ブリッジ + WebSocketメソッドチャネル + REST API + CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "設定ファイルのパス")
	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "ロギングを詳細化 (-v, -vv, ... 最大4回)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		verboseSet = cmd.Flags().Changed("verbose")
		if verboseSet {
			logging.SetVerbosity(verbosity)
		}
	}

	cmd.AddCommand(
		newServeCmd(),
		newGetCmd(),
		newSetCmd(),
		newHideCmd(),
		newShowCmd(),
		newWatchCmd(),
		newConfigCmd(),
		newShellCmd(),
	)

	return cmd
}

// loadConfig reads the config file named by --config and applies its
// log level unless -v was given or an interactive shell owns the level.
func loadConfig() (*viper.Viper, *config.Config, error) {
	v := config.NewViper(cfgPath)
	if err := config.Read(v); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	if !verboseSet && !inShell {
		if _, err := logging.SetLevel(cfg.Log.Level); err != nil {
			logging.Warnf("log.level: %v", err)
		}
	}
	return v, cfg, nil
}
