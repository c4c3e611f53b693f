// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gcode-corrector/pkg/cache"
	"gcode-corrector/pkg/log"
	"gcode-corrector/pkg/metrics"
	"gcode-corrector/pkg/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr        string
		redisURL    string
		cacheTTL    time.Duration
		cacheSize   int
		history     int
		maxBody     int64
		metricsAddr string
		metricsUser string
		metricsPass string
		of          *optionFlags
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the correction HTTP API",
		Long: `Serve the correction API:

  POST   /v1/correct              correct the request body
  POST   /v1/jobs                 start a background correction
  GET    /v1/jobs                 list jobs
  GET    /v1/jobs/{id}            job status
  GET    /v1/jobs/{id}/result     corrected G-code
  GET    /v1/jobs/{id}/ws         progress over a websocket
  DELETE /v1/jobs/{id}            cancel or forget a job
  GET    /healthz, /metrics

Query parameters named like config options override them per request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := of.resolve(cmd)
			if err != nil {
				return err
			}
			l := log.GetLogger("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var store cache.Cache = cache.NewMemory(cacheSize)
			if redisURL != "" {
				r, err := cache.NewRedis(ctx, redisURL, cacheTTL)
				if err != nil {
					return err
				}
				store = r
				l.WithField("ttl", cacheTTL).Info("using redis result cache")
			}
			defer store.Close()

			m := metrics.GlobalMetrics()
			srv, err := server.New(server.Config{
				Addr:         addr,
				Options:      opts,
				Cache:        store,
				Metrics:      m,
				MaxBodyBytes: maxBody,
				HistoryLimit: history,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 2)
			go func() { errCh <- srv.Start() }()

			var ms *metrics.ScrapeServer
			if metricsAddr != "" {
				ms = metrics.NewScrapeServer(m, metrics.ScrapeConfig{
					Addr:     metricsAddr,
					Username: metricsUser,
					Password: metricsPass,
					Ready:    srv.Ready,
				})
				go func() { errCh <- ms.ListenAndServe() }()
			}

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				l.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = srv.Shutdown(shutdownCtx)
			if ms != nil {
				err = errors.Join(err, ms.Shutdown(shutdownCtx))
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	f.StringVar(&redisURL, "redis", "", "redis URL for the result cache, e.g. redis://localhost:6379/0 (default in-memory)")
	f.DurationVar(&cacheTTL, "cache-ttl", time.Hour, "redis entry lifetime")
	f.IntVar(&cacheSize, "cache-size", 128, "in-memory cache entries")
	f.IntVar(&history, "history", 100, "finished jobs to remember")
	f.Int64Var(&maxBody, "max-body", 256<<20, "largest accepted upload in bytes")
	f.StringVar(&metricsAddr, "metrics-addr", "", "also serve /metrics on this address")
	f.StringVar(&metricsUser, "metrics-user", "", "basic auth user for --metrics-addr")
	f.StringVar(&metricsPass, "metrics-password", "", "basic auth password for --metrics-addr")
	of = addOptionFlags(cmd)
	return cmd
}
