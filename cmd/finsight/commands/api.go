package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YuvrajArora777/Finsight-Clean/internal/api"
	"github.com/YuvrajArora777/Finsight-Clean/internal/api/handlers"
	"github.com/YuvrajArora777/Finsight-Clean/pkg/metrics"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

This command:
- Serves the hybrid live-vs-cached views
- Streams view updates over WebSocket
- Exposes a manual pipeline trigger

Endpoints:
  GET  /health                    - Health check
  GET  /api/symbols               - Configured symbols
  GET  /api/view                  - Views for all symbols
  GET  /api/view/{symbol}         - View for one symbol
  GET  /api/view/{symbol}/stream  - WebSocket view stream
  POST /api/pipeline/run          - Trigger a pipeline run
  GET  /api/runs/latest           - Latest pipeline run report

Example:
  go run ./cmd/finsight api
  go run ./cmd/finsight api --port 8090`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== FinSight API Server ===")

	c, err := initComponents(cmd.Context())
	if err != nil {
		return err
	}
	defer c.close()

	// Override port if flag is set
	if apiPort != "" {
		c.cfg.Port = apiPort
	}

	c.log.WithFields(map[string]interface{}{
		"port": c.cfg.Port,
		"env":  c.cfg.Env,
	}).Info("Initializing API server")

	viewHandler := handlers.NewViewHandler(c.accessor, c.cfg.Pipeline.Symbols, c.log)
	pipelineHandler := handlers.NewPipelineHandler(c.orch, c.store, c.log)

	router := api.NewRouter(viewHandler, pipelineHandler, c.limiter, c.log)
	server := api.New(c.cfg, c.log, router)

	// Metrics endpoint runs on its own port
	var metricsServer *http.Server
	if c.metrics != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: ":" + c.cfg.MetricsPort, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				c.log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			c.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	c.log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", c.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/symbols")
	fmt.Println("  GET  /api/view")
	fmt.Println("  GET  /api/view/{symbol}")
	fmt.Println("  GET  /api/view/{symbol}/stream")
	fmt.Println("  POST /api/pipeline/run")
	fmt.Println("  GET  /api/runs/latest")
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	c.log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		_ = metricsServer.Shutdown(ctx)
	}
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	c.log.Info("Server stopped")
	return nil
}
