package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hupe1980/imgdedup"
	"github.com/hupe1980/imgdedup/codec"
	"github.com/hupe1980/imgdedup/internal/httpapi"
	"github.com/hupe1980/imgdedup/internal/resource"
	promcollector "github.com/hupe1980/imgdedup/metrics/prometheus"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP intake",
	Long: `Run the HTTP intake.

Uploads are fingerprinted and added to or checked against the configured
store. Prometheus metrics are exposed at /metrics.

Examples:
  imgdedup serve
  imgdedup serve --listen 0.0.0.0:8000 --config imgdedup.toml`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address, overrides server.listen")
}

func runServe(cmd *cobra.Command, _ []string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := initContext(cmd.Context(), imgdedup.WithMetricsCollector(promcollector.New(reg)))
	defer c.Close()

	sc := c.Config.Server
	if serveListen != "" {
		sc.Listen = serveListen
	}

	cd, ok := codec.ByName(sc.Codec)
	if !ok {
		exitError("unknown codec %q", sc.Codec)
	}

	h := httpapi.Handler(c.Service, httpapi.Config{
		MaxUploadBytes: sc.MaxUploadBytes,
		Codec:          cd,
		Admission: resource.NewController(resource.Config{
			MemoryLimitBytes:  sc.MemoryLimitBytes,
			MaxInFlight:       sc.MaxInFlight,
			RequestsPerSecond: sc.RequestsPerSecond,
			Burst:             sc.Burst,
		}),
		Gatherer: reg,
		Logger:   c.Logger.Logger,
	})

	srv := &http.Server{
		Addr:              sc.Listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       sc.ReadTimeout.Duration,
		WriteTimeout:      sc.WriteTimeout.Duration,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return context.Background() },
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("starting imgdedup server",
			"listen", sc.Listen,
			"storage", c.Config.Storage.Backend,
			"lock", c.Config.Lock.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-done:
	case err := <-errCh:
		c.Logger.Error("server error", "error", err)
		c.Close()
		os.Exit(1)
	}
	c.Logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout.Duration)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		c.Logger.Error("server shutdown error", "error", err)
	}
	c.Logger.Info("server stopped")
}
