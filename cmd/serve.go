package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the guidance engine over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		cmd.SetContext(ctx)

		e, err := buildEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			e.cfg.Server.Port = port
			if err := e.cfg.Server.Validate(); err != nil {
				return err
			}
		}

		srv, err := api.NewServer(e.guide, e.phraser, e.registry, e.logger.Named("http"), e.cfg.Server)
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}

		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- srv.Start()
		}()

		select {
		case err := <-serverErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case <-ctx.Done():
			e.logger.Info("shutdown signal received")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("server shutdown error", zap.Error(err))
			return err
		}
		e.logger.Info("server stopped gracefully", zap.Int("live_sessions", e.sessions.Len()))
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides server.port)")
}
