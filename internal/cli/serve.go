package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ambiyansyah-risyal/frappekit"
	"github.com/ambiyansyah-risyal/frappekit/proxy"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand runs the same-origin proxy.
type ServeCommand struct {
	*Command

	flagListen string
	flagStatic string
}

func (c *ServeCommand) Synopsis() string {
	return "Serve an application with the backend API on the same origin"
}

func (c *ServeCommand) Help() string {
	return `Usage: frappekit serve [options]

  Forwards /api/* to the backend so its session cookies are stored for this
  origin, serves the application under every other route behind the
  session guard, and exposes Prometheus metrics at /metrics.` +
		c.Flags().Help()
}

func (c *ServeCommand) Flags() *FlagSet {
	f := NewFlagSet("serve")
	c.addConnectionFlags(f)
	f.StringVarP(&c.flagListen, "listen", "l", "",
		"Address to listen on. Overrides listen and $FRAPPE_LISTEN.")
	f.StringVar(&c.flagStatic, "static", "",
		"Directory of the application's static files.")
	return f
}

func (c *ServeCommand) Run(args []string) int {
	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		c.UI.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}

	cfg, err := c.config()
	if err != nil {
		c.UI.Error(fmt.Sprintf("error loading config: %v", err))
		return 1
	}
	listen := cfg.ListenAddr
	if c.flagListen != "" {
		listen = c.flagListen
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := frappekit.NewMetricsCollectorWithRegistry(registry)

	opts := []proxy.Option{proxy.WithLogger(c.Log)}
	if c.flagStatic != "" {
		opts = append(opts, proxy.WithApp(http.FileServer(http.Dir(c.flagStatic))))
	}
	srv, err := proxy.New(cfg.BaseURL, metrics, opts...)
	if err != nil {
		c.UI.Error(fmt.Sprintf("error creating proxy: %v", err))
		return 1
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", srv)

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := c.context()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		c.Log.Info("listening", "addr", listen, "backend", cfg.BaseURL, "version", frappekit.GetVersion())
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			c.UI.Error(fmt.Sprintf("error serving: %v", err))
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	c.Log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.UI.Error(fmt.Sprintf("error shutting down: %v", err))
		return 1
	}
	return 0
}
