package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/normanking/cortexface/internal/avatar"
	"github.com/normanking/cortexface/internal/bus"
	"github.com/normanking/cortexface/internal/config"
	"github.com/normanking/cortexface/internal/metrics"
	"github.com/normanking/cortexface/internal/mouthfeed"
	"github.com/normanking/cortexface/internal/renderer"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the face window",
		Long: `Open a window showing the animated face. When feed.enabled is set the
mouth follows values received on the configured WebSocket topic, and when
metrics.addr is set Prometheus metrics are served on /metrics and recent
log lines on /logs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loader, cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logger.Close()
			log := logger.Component("main")

			loader.Watch(func(next *config.Config, err error) {
				if err != nil {
					log.Warn().Err(err).Msg("Ignoring invalid configuration change")
					return
				}
				if err := logger.SetLevel(next.Log.Level); err != nil {
					log.Warn().Err(err).Msg("Keep previous log level")
					return
				}
				log.Info().Str("level", next.Log.Level).Msg("Configuration reloaded")
			})

			b := bus.NewEventBus()
			face, err := avatar.New(cfg, logger.Component("avatar"))
			if err != nil {
				return err
			}
			face.SubscribeBus(b)
			if cfg.Feed.Enabled {
				watchFeed(b, logger.Component("feed"))
			}

			if err := glfw.Init(); err != nil {
				return fmt.Errorf("init glfw: %w", err)
			}
			defer glfw.Terminate()

			win, err := renderer.New(renderer.Config{
				Width:     cfg.Window.Width,
				Height:    cfg.Window.Height,
				Title:     cfg.Window.Title,
				VSync:     cfg.Window.VSync,
				ShaderDir: cfg.Window.ShaderDir,
			}, logger.Component("renderer"))
			if err != nil {
				return err
			}
			defer win.Shutdown()

			win.SetResizeHandler(func(w, h int) {
				b.PublishSync(bus.Event{Type: bus.EventTypeResize, Data: map[string]any{"width": w, "height": h}})
			})
			win.SetCloseHandler(func() {
				b.PublishSync(bus.Event{Type: bus.EventTypeClosed})
			})

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logs := metrics.Route{Pattern: "/logs", Handler: logger.HistoryHandler()}
				if err := metrics.Serve(gctx, cfg.Metrics.Addr, logger.Component("metrics"), logs); err != nil {
					return fmt.Errorf("metrics server: %w", err)
				}
				return nil
			})
			if cfg.Feed.Enabled {
				feed := mouthfeed.New(mouthfeed.Config{
					URL:               cfg.Feed.URL,
					Topic:             cfg.Feed.Topic,
					MessageType:       cfg.Feed.MessageType,
					ReconnectDelay:    cfg.Feed.ReconnectDelay,
					MaxReconnectDelay: cfg.Feed.MaxReconnectDelay,
				}, b, logger.Component("mouthfeed"))
				g.Go(func() error { return feed.Run(gctx) })
			}

			log.Info().Str("version", version).Str("config", loader.ConfigFile()).Msg("Face running")

			// the frame loop owns the GL context and stays on this thread
			loopErr := face.Run(gctx, win)
			stop()
			// the face is no longer drawn; drop handlers before the feed drains
			b.Clear()

			if err := g.Wait(); err != nil && loopErr == nil {
				loopErr = err
			}
			log.Info().Int("triangles", win.Triangles()).Msg("Face stopped")
			return loopErr
		},
	}
}

// watchFeed logs mouth feed connection changes and failures.
func watchFeed(b *bus.EventBus, log zerolog.Logger) {
	b.SubscribeMultiple([]bus.EventType{
		bus.EventTypeFeedConnected,
		bus.EventTypeFeedDisconnected,
		bus.EventTypeFeedError,
	}, func(e bus.Event) {
		url, _ := e.Data["url"].(string)
		switch e.Type {
		case bus.EventTypeFeedConnected:
			log.Info().Str("url", url).Msg("Mouth feed up")
		case bus.EventTypeFeedDisconnected:
			log.Warn().Str("url", url).Msg("Mouth feed down")
		case bus.EventTypeFeedError:
			failures, _ := e.Float("failures")
			errMsg, _ := e.Data["error"].(string)
			log.Debug().Str("url", url).Str("error", errMsg).Int("failures", int(failures)).Msg("Mouth feed attempt failed")
		}
	})
}
