package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-console/internal/app"
	"github.com/odyssey-erp/odyssey-console/jobs"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the console HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func loadConsole(cmd *cobra.Command) (*app.Console, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := app.LoadConfig(envFile)
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg)
	return app.NewConsole(cmd.Context(), cfg, logger, app.Options{})
}

func runServe(cmd *cobra.Command, _ []string) error {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return nil
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	console, err := loadConsole(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := console.Close(); err != nil {
			console.Logger.Warn("close console", slog.Any("error", err))
		}
	}()
	cfg, logger := console.Config, console.Logger

	var jobHandler *jobs.Handler
	if console.Redis != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)
	}
	console.ListenForInvalidation(ctx)

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      app.NewServerRouter(console, jobHandler),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
