// CLAUDE:SUMMARY serve subcommand: wires config, sources DB, loader, dashboard, HTTP router, MCP and the chassis; reloads on SIGHUP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/qoparu/qoparu/pkg/api"
	"github.com/qoparu/qoparu/pkg/chassis"
	"github.com/qoparu/qoparu/pkg/dashboard"
	"github.com/qoparu/qoparu/pkg/loader"
	"github.com/qoparu/qoparu/pkg/mapbridge"
	"github.com/qoparu/qoparu/pkg/metrics"
	"github.com/qoparu/qoparu/pkg/sources"
	"github.com/qoparu/qoparu/pkg/survey"
)

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "path to config file")
	fs.Parse(args)

	bootLogger := newLogger("info")
	cfg, err := loadConfig(*cfgPath, bootLogger)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	scheme, err := loadScheme(cfg)
	if err != nil {
		return err
	}

	db, err := sources.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Seed(cfg.definitions()); err != nil {
		return err
	}

	m := metrics.New()
	hub := mapbridge.NewHub(logger)
	svc := dashboard.New(dashboard.Config{
		Loader:  newLoader(cfg, logger),
		Scheme:  scheme,
		URLs:    db,
		History: db,
		Hub:     hub,
		Metrics: m,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := svc.Reload(ctx); err != nil {
		logger.Warn("initial load failed, serving without survey data", "error", err)
	}

	// SIGHUP: reload every source.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for range sighup {
			logger.Info("SIGHUP received, reloading sources")
			svc.Reload(ctx)
		}
	}()

	if cfg.ReloadInterval > 0 {
		go reloadEvery(ctx, svc, cfg.ReloadInterval)
	}
	if cfg.CheckInterval > 0 {
		go sources.NewChecker(db, logger, cfg.CheckInterval).Start(ctx)
	}

	router := api.NewRouter(api.Deps{Service: svc, Sources: db, Metrics: m, Logger: logger})

	var mcpSrv *server.MCPServer
	handler := router
	if cfg.MCP {
		mcpSrv = server.NewMCPServer("qoparu", version, server.WithToolCapabilities(false))
		api.RegisterMCPTools(mcpSrv, svc, logger)
		go api.ForwardSelections(ctx, mcpSrv, hub)

		mux := http.NewServeMux()
		mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpSrv))
		mux.Handle("/", router)
		handler = mux
	}

	if cfg.Mode == "chassis" {
		return serveChassis(ctx, cfg, handler, mcpSrv, logger)
	}
	return servePlain(ctx, cfg, handler, logger)
}

func servePlain(ctx context.Context, cfg config, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("qoparu listening", "addr", cfg.Addr, "mode", "plain")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func serveChassis(ctx context.Context, cfg config, handler http.Handler, mcpSrv *server.MCPServer, logger *slog.Logger) error {
	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.Addr,
		CertFile:  cfg.TLS.CertFile,
		KeyFile:   cfg.TLS.KeyFile,
		Hosts:     cfg.TLS.Hosts,
		Handler:   handler,
		MCPServer: mcpSrv,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	err = srv.Start(ctx)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(err, srv.Stop(shutdownCtx))
}

func reloadEvery(ctx context.Context, svc *dashboard.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Reload(ctx)
		}
	}
}

func loadScheme(cfg config) (*survey.Scheme, error) {
	if cfg.SchemeFile == "" {
		return survey.DefaultScheme(), nil
	}
	return survey.LoadScheme(cfg.SchemeFile)
}

func newLoader(cfg config, logger *slog.Logger) *loader.Loader {
	return loader.New(
		loader.WithClient(&http.Client{Timeout: cfg.FetchTimeout}),
		loader.WithEncoding(cfg.Encoding),
		loader.WithLogger(logger),
	)
}
