package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/internal/presentation/tui"
	httpAdapter "github.com/aretw0/lattice/pkg/adapters/http"
	"github.com/aretw0/lattice/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger bridge",
	Long: `Loads every script of the configured scripts directory and exposes the trigger bridge,
inspection endpoints, server-sent run events and Prometheus metrics over HTTP.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		watch, _ := cmd.Flags().GetBool("watch")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}
		streams := httpAdapter.NewStreamManager(logger)

		eng, err := cli.NewEngine(cfg, logger,
			lattice.WithMetrics(metrics),
			lattice.WithScriptListener(streams.Listener),
		)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		if eng.Loader() != nil {
			if err := eng.LoadAll(ctx); err != nil {
				logger.Warn("some scripts failed to load", "err", err)
			}
		}
		for _, path := range args {
			data, err := cli.ReadScript(path)
			if err != nil {
				return err
			}
			if _, err := eng.LoadDocument(ctx, data); err != nil {
				return err
			}
		}

		handler, err := httpAdapter.NewHandler(eng,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(reg),
			httpAdapter.WithStreams(streams),
		)
		if err != nil {
			return err
		}
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		tui.PrintBanner(os.Stderr, lattice.Version)
		logger.Info("serving", "addr", srv.Addr, "scripts", eng.Scripts())

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		if watch {
			g.Go(func() error { return cli.WatchScripts(gctx, eng, logger) })
		}
		g.Go(func() error {
			<-gctx.Done()
			if sig := ctx.Signal(); sig != nil {
				logger.Info("shutdown signal received", "signal", sig.String())
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides http.addr)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload scripts when their documents change")
}
