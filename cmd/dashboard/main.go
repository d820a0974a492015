package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/score-dashboard/internal/chart"
	"github.com/DoyleJ11/score-dashboard/internal/config"
	"github.com/DoyleJ11/score-dashboard/internal/container"
	"github.com/DoyleJ11/score-dashboard/internal/feed"
	"github.com/DoyleJ11/score-dashboard/internal/httpapi"
	"github.com/DoyleJ11/score-dashboard/internal/logging"
	"github.com/DoyleJ11/score-dashboard/internal/metrics"
	"github.com/DoyleJ11/score-dashboard/internal/palette"
	"github.com/DoyleJ11/score-dashboard/internal/sink"
	"github.com/DoyleJ11/score-dashboard/internal/sink/termsink"
	"github.com/DoyleJ11/score-dashboard/internal/sink/websink"
	"github.com/DoyleJ11/score-dashboard/internal/snapshot"
)

func main() {
	config.LoadDotEnv()
	cfg, cfgErr := config.DashboardFromEnv()

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	if cfgErr != nil {
		log.Error("bad configuration", zap.Error(cfgErr))
		_ = log.Sync()
		os.Exit(2)
	}
	if err := run(cfg, log); err != nil {
		log.Error("dashboard stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cfg config.Dashboard, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	colors := palette.NewDefault()
	if cfg.PaletteFile != "" {
		if colors, err = palette.LoadFile(cfg.PaletteFile); err != nil {
			return err
		}
	}

	var (
		out sink.Sink
		web *websink.Sink
	)
	switch cfg.Sink {
	case "term":
		out = termsink.New(os.Stdout, termsink.WithClear())
	case "web":
		if web, err = websink.New(cfg.Title, websink.WithLogger(log)); err != nil {
			return err
		}
		out = web
	default:
		return config.ErrInvalid
	}

	hub := feed.NewHub(ctx, source(cfg), feed.WithLogger(log), feed.WithMetrics(m))
	c := container.New(container.Config{
		Title: cfg.Title,
		ChartOptions: []chart.Option{
			chart.WithLogger(log),
			chart.WithColors(colors),
			chart.WithMetrics(m),
			chart.WithDebounce(cfg.Debounce),
		},
	}, snapshot.NewClient(cfg.SnapshotURL, cfg.FetchTimeout, log), hub, out, log, m)

	if err := c.Mount(ctx); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, c.Close()) }()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupDashboardRoutes(web, c, m, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("sink", cfg.Sink))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func source(cfg config.Dashboard) feed.Source {
	if cfg.NATSURL != "" {
		return feed.NATSSource{URL: cfg.NATSURL, Subject: cfg.NATSSubject}
	}
	return feed.WebSocketSource{URL: cfg.FeedURL}
}
