package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"certverify/internal/app"
	"certverify/internal/config"
	"certverify/internal/metrics"
	"certverify/pkg/logger"
)

func main() {
	cfg, cfgErr := config.Load()
	l := logger.NewWithOptions(cfg.Env, cfg.LogLevel)
	defer l.Sync()
	if cfgErr != nil {
		l.Warnf("config: %v", cfgErr)
	}

	reg := prometheus.NewRegistry()
	a, err := app.New(cfg, l, app.Options{Registerer: reg})
	if err != nil {
		l.Errorf("startup: %v", err)
		l.Sync()
		os.Exit(1)
	}
	defer a.Close()

	s := &server{
		analyzer:   a.Pipeline,
		admin:      a.Verifier,
		stats:      a.Store,
		metrics:    metrics.Handler(reg),
		adminToken: cfg.AdminToken,
		log:        l,
	}
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: verifyTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	if err := serve(srv, stop, l); err != nil {
		l.Errorf("server error: %v", err)
		a.Close()
		l.Sync()
		os.Exit(1)
	}
	l.Infof("bye")
}

// serve runs srv until a signal arrives on stop or the listener fails. A
// listener failure is returned; a signal shuts the server down gracefully.
func serve(srv *http.Server, stop <-chan os.Signal, l *logger.Logger) error {
	errc := make(chan error, 1)
	go func() {
		l.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-stop:
	}
	l.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	return nil
}
