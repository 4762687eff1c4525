package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"sentinelhive/internal/bootstrap"
	httptransport "sentinelhive/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve <client|db>",
	Short: "Run one API server in the foreground",
	Long: `Run the client-facing or database-facing API server in the
foreground. The supervisor spawns this command as a detached process;
running it directly is useful for development.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"client", "db"},
	RunE:      runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var role, addr string
	switch args[0] {
	case "client":
		role = "client-api"
	case "db":
		role = "db-api"
	default:
		return fmt.Errorf("unknown server role %q", args[0])
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap.NewWithConfig(ctx, cfg, role)
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			app.Logger.Warn("close resources failed", zap.Error(err))
		}
	}()

	var router *gin.Engine
	if role == "client-api" {
		router = httptransport.NewClientRouter(app)
		addr = cfg.ClientAddr()
	} else {
		router = httptransport.NewDBRouter(app)
		addr = cfg.DBAddr()
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		app.Logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
