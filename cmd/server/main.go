package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/Circles/internal/adapters/http"
	"github.com/dkeye/Circles/internal/app"
	"github.com/dkeye/Circles/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "circles",
		Short:         "Live location sharing coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd)
		},
	}
	flags := cmd.Flags()
	flags.Int("port", 3000, "HTTP listen port")
	flags.String("mode", "release", "gin mode: release or debug")
	flags.String("static_path", "./public", "directory served at / and /static")
	flags.String("log_level", "info", "zerolog level")
	return cmd
}

func serve(cmd *cobra.Command) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}
	configureLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := app.NewMetrics(reg)

	registry := app.NewRegistry()
	circles := app.NewCircleStore(app.NewCodeGenerator(cfg.CodeMaxAttempts))
	rt := app.NewRouter(registry, app.PolicyByName(cfg.SlowConsumerPolicy), metrics)
	orch := app.NewOrchestrator(registry, circles, rt, metrics)

	// Connections outlive the signal context until their circles have been ended.
	connCtx, connCancel := context.WithCancel(context.Background())
	defer connCancel()

	r := router.SetupRouter(connCtx, cfg, orch, reg)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("Circles server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		ended := orch.EvictAll()
		log.Info().Int("circles", ended).Msg("ended active circles")
		connCancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}

func configureLogger(cfg *config.Config) {
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, keeping info")
		return
	}
	zerolog.SetGlobalLevel(level)
}
