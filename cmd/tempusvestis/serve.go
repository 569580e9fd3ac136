// In file: cmd/tempusvestis/serve.go
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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve recommendations over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port != "" {
				cfg.Port = port
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if os.Getenv("APP_ENV") == "production" {
				gin.SetMode(gin.ReleaseMode)
			}
			handler := NewHandler(a.consultant, a.tracker)
			srv := &http.Server{
				Addr:              fmt.Sprintf(":%s", cfg.Port),
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return runServerWithGracefulShutdown(srv)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return cmd
}

// runServerWithGracefulShutdown serves until SIGINT or SIGTERM, then drains
// in-flight requests.
func runServerWithGracefulShutdown(srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("👂 TempusVestis is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen error: %w", err)
	case <-quit:
	}

	zap.S().Info("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	zap.S().Info("👋 Server exited gracefully.")
	return nil
}
