package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"perfect-volume-control/internal/adapter/primary/channel"
	"perfect-volume-control/internal/adapter/primary/web"
	"perfect-volume-control/internal/adapter/secondary/platform/applescript"
	"perfect-volume-control/internal/adapter/secondary/platform/sim"
	"perfect-volume-control/internal/config"
	"perfect-volume-control/internal/domain"
	"perfect-volume-control/internal/logging"
	"perfect-volume-control/internal/usecase"
)

func newServeCmd() *cobra.Command {
	var (
		addr    string
		backend string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "音量ブリッジ・メソッドチャネル・Web UIを起動",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("platform") {
				if !slices.Contains(config.ValidBackends(), backend) {
					return fmt.Errorf("--platform は %v のいずれかを指定してください", config.ValidBackends())
				}
				cfg.Platform.Backend = backend
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if used := v.ConfigFileUsed(); used != "" {
				if _, err := os.Stat(used); err == nil {
					config.Watch(v, func(c *config.Config) {
						if !verboseSet {
							config.ApplyLogLevel(c)
						}
					})
				}
			}

			return runServe(ctx, cfg, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTPサーバーのアドレス:ポート (既定は設定値)")
	cmd.Flags().StringVar(&backend, "platform", "", "プラットフォーム (sim|osascript)")
	return cmd
}

// host is what serve builds per backend.
type host struct {
	ports     domain.Platform
	simulator web.Simulator
}

func buildHost(cfg *config.Config) (host, error) {
	switch cfg.Platform.Backend {
	case config.BackendSim:
		p := sim.New(sim.WithVolume(cfg.Platform.InitialVolume))
		return host{ports: p.Ports(), simulator: p}, nil
	case config.BackendOsascript:
		p := applescript.New(applescript.OsascriptRunner, cfg.Platform.PollInterval)
		return host{ports: p.Ports()}, nil
	default:
		return host{}, fmt.Errorf("unknown platform backend %q", cfg.Platform.Backend)
	}
}

// runServe wires platform, bridge, channel and HTTP server and blocks
// until ctx is done or the listener fails.
func runServe(ctx context.Context, cfg *config.Config, out io.Writer) error {
	h, err := buildHost(cfg)
	if err != nil {
		return err
	}

	ch := channel.New(cfg.Channel.Name,
		channel.WithCallTimeout(cfg.Channel.CallTimeout),
		channel.WithSendBuffer(cfg.Channel.SendBuffer),
	)
	bridge, err := usecase.NewVolumeBridge(h.ports, ch, usecase.Options{
		Session:     cfg.SessionOptions(),
		DedupWindow: cfg.Bridge.DedupWindow,
	})
	if err != nil {
		return err
	}

	// Observers are registered before any call can arrive.
	if err := bridge.Start(ctx); err != nil {
		return err
	}
	ch.SetMethodCallHandler(bridge.Handle)

	opts := []web.Option{web.WithChannel(ch.Path(), ch)}
	if h.simulator != nil {
		opts = append(opts, web.WithSimulator(h.simulator))
	}
	srv := web.NewServer(bridge, cfg.Server.Addr, opts...)

	fmt.Fprintf(out, "Perfect Volume Control running at http://%s (channel %s, platform %s)\n",
		cfg.Server.Addr, ch.Path(), cfg.Platform.Backend)
	logging.Infof("serving on %s with %s platform", cfg.Server.Addr, cfg.Platform.Backend)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Infof("shutting down")
		ch.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if cerr := bridge.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return err
	})
	return g.Wait()
}
