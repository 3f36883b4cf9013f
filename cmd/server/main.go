package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MegaGrindStone/chat-widget/internal/handlers"
	"github.com/MegaGrindStone/chat-widget/internal/render"
	"github.com/MegaGrindStone/chat-widget/internal/services"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:          "chat-widget",
		Short:        "Serve the campus chat widget",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "path to the YAML config file")
	cmd.Flags().StringVar(&flags.port, "port", "", "port to listen on")
	cmd.Flags().StringVar(&flags.backendURL, "backend", "", "base URL of the chat backend")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (trace|debug|info|warn|error)")

	return cmd
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func run(ctx context.Context, cfg config) error {
	logger := newLogger(cfg.LogLevel)

	var renderOpts []render.Option
	if cfg.HighlightStyle != "" {
		renderOpts = append(renderOpts, render.WithHighlighting(cfg.HighlightStyle))
	}
	renderer := render.New(renderOpts...)

	endpoint, err := cfg.endpoint()
	if err != nil {
		return err
	}
	texts := cfg.Texts.texts()
	api := services.NewChatAPI(endpoint,
		services.WithReplyDefaults(texts.ReplyDefaults()),
		services.WithLogger(logger.With().Str("component", "chatapi").Logger()),
	)

	hCfg := cfg.handlersConfig(texts)
	hCfg.Logger = logger.With().Str("component", "host").Logger()
	m, err := handlers.NewMain(api, renderer, hCfg)
	if err != nil {
		return errors.Wrap(err, "error creating widget host")
	}

	handler, err := m.Routes()
	if err != nil {
		return errors.Wrap(err, "error creating routes")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// SSE streams only end once the host shuts down, so it has to go before the server waits for
	// open connections.
	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("Failed to shutdown widget host")
		}
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("addr", srv.Addr).
			Str("backend", endpoint).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Start shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
			if err := srv.Close(); err != nil {
				logger.Error().Err(err).Msg("Forcing server close")
			}
			return errors.Wrap(err, "graceful shutdown failed")
		}
		return nil
	})

	return g.Wait()
}
