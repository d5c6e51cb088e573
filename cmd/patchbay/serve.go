package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-patchbay/internal/bridge"
	"github.com/cwbudde/algo-patchbay/internal/studio"
	"github.com/cwbudde/algo-patchbay/internal/tracing"
	"github.com/cwbudde/algo-patchbay/internal/watcher"
	"github.com/cwbudde/algo-patchbay/patch"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a live patch for the editor",
		Long: `Run a live patch and expose it to the browser editor.

The editor connects to /ws; Prometheus metrics are served on /metrics and a
liveness check on /healthz. With --snapshot the patch is loaded on start, and
with --watch it is reloaded whenever the file changes on disk.

Example:
  patchbay serve
  patchbay serve --addr :9000 --snapshot patch.json --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address")
	cmd.Flags().String("snapshot", "", "patch to load on start")
	cmd.Flags().Bool("watch", false, "reload the patch when the file changes")

	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("snapshot.path", cmd.Flags().Lookup("snapshot"))
	_ = a.v.BindPFlag("snapshot.watch", cmd.Flags().Lookup("watch"))

	return cmd
}

func (a *app) serve(ctx context.Context) error {
	tp, err := tracing.New(a.cfg.Tracing.Enabled, a.cfg.Tracing.Exporter, os.Stderr)
	if err != nil {
		return err
	}

	defer func() { _ = tp.Shutdown(context.WithoutCancel(ctx)) }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := a.studioOptions()
	opts.Tracer = tp.Tracer()
	opts.Metrics = patch.NewMetrics(reg)

	st := studio.New(opts)
	defer func() { _ = st.Close() }()

	path := a.cfg.Snapshot.Path
	if path != "" {
		err = a.loadFile(st, path)
		if err != nil {
			return err
		}

		if a.cfg.Snapshot.Watch {
			stopWatch, watchErr := a.watch(ctx, st, path)
			if watchErr != nil {
				return watchErr
			}
			defer stopWatch()
		}
	}

	err = bridge.New(st, reg, a.logger).Run(ctx, a.cfg.Server.Addr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

func (a *app) loadFile(st *studio.Studio, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	return st.LoadReader(f)
}

// watch reloads path into st after every change until ctx is done. A file
// that fails to load leaves the running patch in place.
func (a *app) watch(ctx context.Context, st *studio.Studio, path string) (func(), error) {
	cfg := watcher.DefaultConfig(path)
	cfg.Logger = a.logger

	if a.cfg.Snapshot.Debounce > 0 {
		cfg.Debounce = a.cfg.Snapshot.Debounce
	}

	w, err := watcher.New(cfg)
	if err != nil {
		return nil, err
	}

	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				err := a.loadFile(st, path)
				if err != nil {
					a.logger.Warn("snapshot reload failed", slog.String("path", path), slog.Any("error", err))
					continue
				}

				a.logger.Info("snapshot reloaded", slog.String("path", path))
			}
		}
	}()

	return func() { _ = w.Stop() }, nil
}
