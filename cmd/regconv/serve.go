package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/store"
	"github.com/JonMunkholm/regconv/internal/web"
)

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context())
		},
	}
}

func (a *app) runServe(ctx context.Context) error {
	cfg := a.cfg

	opts, err := core.OptionsFromConfig(cfg.Convert)
	if err != nil {
		return err
	}

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"persistence", cfg.Database.Enabled(),
		"api_key_required", cfg.Security.RequireAPIKey,
	)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if cfg.Database.Enabled() {
		s, closeStore, err := openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closeStore()
		st = s

		go st.StartRetention(sigCtx, cfg.Database.RetentionDays, cfg.Database.RetentionInterval)
	}

	server := web.NewServer(cfg, opts, st)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	slog.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.WaitForConversions(shutdownCtx); err != nil {
		slog.Warn("conversions did not complete in time", "error", err)
	} else {
		slog.Info("all conversions completed")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}

	return <-errCh
}
