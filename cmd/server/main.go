// Command server runs the blogmate account and notification API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"blogmate/internal/app"
	"blogmate/internal/config"
	"blogmate/internal/db"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, logOut io.Writer) error {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.SetOutput(logOut)
	envFile := flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	migrateOnly := flags.Bool("migrate-only", false, "apply database migrations and exit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg, logOut)
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(cfg.MetaDBPath, 0)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool.Write, logger.With("component", "migrate")); err != nil {
		return err
	}
	if *migrateOnly {
		logger.Info("migrations applied", "db", cfg.MetaDBPath)
		return nil
	}

	application, err := app.New(ctx, app.Deps{Cfg: cfg, Pool: pool, Logger: logger})
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Services.Provisioner.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdmin); err != nil {
		logger.Warn("bootstrap admin failed", "email", cfg.Auth.BootstrapAdmin, "error", err)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		tls := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		logger.Info("HTTP API listening", "addr", cfg.ListenAddr, "tls", tls, "env", cfg.Env,
			"identity_backend", cfg.Identity.Backend, "avatar_backend", cfg.Avatar.Backend)
		logger.Info(fmt.Sprintf("try: curl http://%s/healthz", curlHostForListenAddr(cfg.ListenAddr)))
		var err error
		if tls {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// curlHostForListenAddr turns a listen address into something a local curl
// can reach.
func curlHostForListenAddr(listenAddr string) string {
	addr := strings.TrimSpace(listenAddr)
	if addr == "" {
		return "localhost:8080"
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
