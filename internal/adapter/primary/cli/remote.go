package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"perfect-volume-control/internal/adapter/primary/channel"
	"perfect-volume-control/internal/config"
	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
)

// remoteFlags are shared by the commands that talk to a running server.
type remoteFlags struct {
	addr    string
	timeout time.Duration
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.addr, "addr", "", "接続先サーバーのアドレス:ポート (既定は設定値)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "呼び出しのタイムアウト (既定は channel.call_timeout)")
}

// dial connects to the server's method channel.
func (f *remoteFlags) dial(ctx context.Context, cfg *config.Config) (*channel.Client, error) {
	addr := cfg.Server.Addr
	if f.addr != "" {
		addr = f.addr
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: channel.PathFor(cfg.Channel.Name)}
	return channel.Dial(ctx, u.String())
}

func (f *remoteFlags) callTimeout(cfg *config.Config) time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return cfg.Channel.CallTimeout
}

// invoke performs one call against the running server.
func (f *remoteFlags) invoke(cmd *cobra.Command, method string, args any) (any, error) {
	_, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), f.callTimeout(cfg))
	defer cancel()

	client, err := f.dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.InvokeMethod(ctx, method, args)
}

func newGetCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "get",
		Short: "現在の出力音量(0.0-1.0)を表示",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := rf.invoke(cmd, domain.MethodGetVolume, nil)
			if err != nil {
				return err
			}
			v, ok := domain.ToFloat(res)
			if !ok {
				return fmt.Errorf("unexpected getVolume result %v", res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", v)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newSetCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "set <volume>",
		Short: "出力音量を設定 (0.0-1.0 または 0%-100%)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVolume(args[0])
			if err != nil {
				return err
			}
			if _, err := rf.invoke(cmd, domain.MethodSetVolume, map[string]any{"volume": v}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "音量を %.4f に設定しました\n", v)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

// parseVolume accepts a fraction ("0.4") or a percentage ("40%").
func parseVolume(s string) (float64, error) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	if percent {
		v /= 100
	}
	return v, nil
}

func newHideCmd() *cobra.Command {
	return newHUDCmd("hide", "システムの音量HUDを非表示にする", true)
}

func newShowCmd() *cobra.Command {
	return newHUDCmd("show", "システムの音量HUDを再表示する", false)
}

func newHUDCmd(use, short string, hide bool) *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := rf.invoke(cmd, domain.MethodHideUI, map[string]any{"hide": hide})
			return err
		},
	}
	rf.register(cmd)
	return cmd
}

func newWatchCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "volumeChangeListener イベントを表示し続ける (Ctrl-Cで終了)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			dialCtx, cancel := context.WithTimeout(ctx, rf.callTimeout(cfg))
			client, err := rf.dial(dialCtx, cfg)
			cancel()
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			client.SetMethodCallHandler(func(method string, arguments any) {
				if method != domain.MethodVolumeChangeListener {
					return
				}
				printVolumeEvent(out, arguments)
			})

			select {
			case <-ctx.Done():
				return nil
			case <-client.Done():
				return fmt.Errorf("接続が切断されました")
			}
		},
	}
	rf.register(cmd)
	return cmd
}

// printVolumeEvent writes one timestamped volume line. Events without a
// numeric volume are logged and skipped.
func printVolumeEvent(out io.Writer, arguments any) {
	v, ok := domain.ToFloat(arguments)
	if !ok {
		logging.Warnf("ignoring %s event with arguments %v", domain.MethodVolumeChangeListener, arguments)
		return
	}
	fmt.Fprintf(out, "%s %.4f\n", time.Now().Format(time.TimeOnly), v)
}
