// Command scorefeed is a development score backend: an in-memory team/test/score
// board with the REST endpoints and results websocket the dashboard reads.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/score-dashboard/internal/board"
	"github.com/DoyleJ11/score-dashboard/internal/config"
	"github.com/DoyleJ11/score-dashboard/internal/httpapi"
	"github.com/DoyleJ11/score-dashboard/internal/logging"
	"github.com/DoyleJ11/score-dashboard/internal/metrics"
)

func main() {
	config.LoadDotEnv()
	cfg := config.ScoreFeedFromEnv()

	log, err := logging.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	if err := run(cfg, log); err != nil {
		log.Error("scorefeed stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cfg config.ScoreFeed, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	opts := []board.Option{board.WithLogger(log), board.WithMetrics(m)}

	if cfg.NATSURL != "" {
		mirror, err := board.NewNATSMirror(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		defer func() {
			if err := mirror.Close(); err != nil {
				log.Warn("close nats mirror", zap.Error(err))
			}
		}()
		opts = append(opts, board.WithMirror(mirror))
		log.Info("mirroring results", zap.String("subject", cfg.NATSSubject))
	}

	g, gctx := errgroup.WithContext(ctx)

	// The board stops itself when gctx ends.
	b, err := board.New(gctx, opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupFeedRoutes(b, m, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		<-b.Done()
		return err
	})
	return g.Wait()
}
