package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/wirecall/internal/logger"
	"github.com/marmos91/wirecall/pkg/metrics"
	promMetrics "github.com/marmos91/wirecall/pkg/metrics/prometheus"
	"github.com/marmos91/wirecall/pkg/payload"
	"github.com/marmos91/wirecall/pkg/server"
)

var serveDemoHandlers bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a wirecall server",
	Long: `Start a wirecall server with the built-in probe handlers.

The server answers _ping and _getStats out of the box. With --demo a few
sample handlers (echo, sum, upper) are registered as well, which makes the
binary usable end-to-end against "wirecall ping" for smoke testing.

Examples:
  # Start with default config location
  wirecall serve

  # Start with custom config file and demo handlers
  wirecall serve --config /etc/wirecall/config.yaml --demo

  # Start with environment variable overrides
  WIRECALL_LOGGING_LEVEL=DEBUG wirecall serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDemoHandlers, "demo", false, "Register sample handlers (echo, sum, upper)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	var m metrics.RPCMetrics
	if cfg.Metrics.Enabled {
		m = promMetrics.WithDefaultRegistry()
		go serveMetrics(cfg.Metrics.Port)
	}

	srv := server.New(cfg.Server, payload.NewMsgpack(), m)

	if serveDemoHandlers {
		if err := registerDemoHandlers(srv); err != nil {
			return err
		}
	}

	// Serve until SIGINT/SIGTERM triggers graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}

// registerDemoHandlers wires the sample handlers used for smoke testing.
func registerDemoHandlers(srv *server.Server) error {
	if err := server.RegisterHandler(srv, "echo", func(s string) (string, error) {
		return s, nil
	}); err != nil {
		return err
	}

	if err := server.RegisterHandler(srv, "sum", func(ns []int64) (int64, error) {
		var total int64
		for _, n := range ns {
			total += n
		}
		return total, nil
	}); err != nil {
		return err
	}

	if err := server.RegisterHandler(srv, "upper", func(s string) (string, error) {
		return strings.ToUpper(s), nil
	}); err != nil {
		return err
	}

	logger.Info("demo handlers registered", "handlers", "echo, sum, upper")
	return nil
}

// serveMetrics exposes the Prometheus endpoint on its own listener.
func serveMetrics(port int) {
	addr := fmt.Sprintf(":%d", port)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promMetrics.Handler())

	logger.Info("metrics endpoint listening", "port", port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint failed", "error", err)
	}
}
