package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

// serveProbes starts the optional metrics and health endpoints. Bind errors
// are returned; the servers stop when ctx is done.
func serveProbes(ctx context.Context, log logr.Logger, opts *options, check healthz.Checker) error {
	if !isDisabled(opts.metricsBindAddress) {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
		if err := listenAndServe(ctx, log.WithValues("kind", "metrics"), opts.metricsBindAddress, mux); err != nil {
			return fmt.Errorf("unable to start metrics server: %w", err)
		}
	}

	if !isDisabled(opts.healthProbeBindAddr) {
		mux := http.NewServeMux()
		mux.Handle("/healthz", http.StripPrefix("/healthz", &healthz.Handler{Checks: map[string]healthz.Checker{
			"ping":       healthz.Ping,
			"supervisor": check,
		}}))
		mux.Handle("/readyz", http.StripPrefix("/readyz", &healthz.Handler{Checks: map[string]healthz.Checker{
			"ping": healthz.Ping,
		}}))
		if err := listenAndServe(ctx, log.WithValues("kind", "health probe"), opts.healthProbeBindAddr, mux); err != nil {
			return fmt.Errorf("unable to start health probe server: %w", err)
		}
	}
	return nil
}

func listenAndServe(ctx context.Context, log logr.Logger, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info("serving", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "server exited")
		}
	}()
	return nil
}
