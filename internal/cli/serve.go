package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/roach88/bimbridge/internal/engine"
	"github.com/roach88/bimbridge/internal/mcpserver"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Scene       string
	Journal     string
	MetricsAddr string

	// Transport overrides stdio (for testing).
	Transport mcp.Transport
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the element tools over MCP stdio",
		Long: `Load a scene, start the host loop and serve the element tools to an
MCP client over stdin/stdout. Logs go to stderr.

Example:
  bimbridge serve --scene office.yaml
  bimbridge serve --scene office.yaml --journal bridge.db --metrics-addr :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Scene, "scene", "", "scene file to load (required)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	_ = cmd.MarkFlagRequired("scene")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.RootOptions, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	journalPath := cfg.Journal
	if opts.Journal != "" {
		journalPath = opts.Journal
	}
	st, err := openJournal(journalPath)
	if err != nil {
		return err
	}
	if st != nil {
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()
		logger.Info("journal ready", "path", journalPath)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := engine.NewMetrics(reg)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	metricsAddr := cfg.MetricsAddr
	if opts.MetricsAddr != "" {
		metricsAddr = opts.MetricsAddr
	}
	if metricsAddr != "" {
		stopMetrics := serveMetrics(ctx, metricsAddr, reg, logger.With("component", "metrics"))
		defer stopMetrics()
	}

	rt, err := startRuntime(ctx, runtimeOptions{
		scenePath: opts.Scene,
		cfg:       cfg,
		journal:   st,
		metrics:   metrics,
		logger:    logger,
	})
	if err != nil {
		return err
	}

	srv := mcpserver.New(rt.bridge, mcpserver.WithLogger(logger)).NewMCPServer(Version)
	transport := opts.Transport
	if transport == nil {
		transport = &mcp.StdioTransport{}
	}

	logger.Info("serving tools", "scene", opts.Scene, "elements", len(rt.doc.Elements()))
	serveErr := srv.Run(ctx, transport)

	cancel()
	if err := rt.stop(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("host loop stopped with error", "error", err)
	}

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) && !errors.Is(serveErr, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "mcp server error", serveErr)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// serveMetrics exposes reg on addr/metrics until the returned func is
// called.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	hs := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", "error", fmt.Errorf("shutdown: %w", err))
		}
	}
}
