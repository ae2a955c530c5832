// Package main is the entry point for the supercap-mcp server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/auth"
	"github.com/jamesprial/supercap-mcp/internal/config"
	"github.com/jamesprial/supercap-mcp/internal/hwmon"
	"github.com/jamesprial/supercap-mcp/internal/logging"
	"github.com/jamesprial/supercap-mcp/internal/metrics"
	"github.com/jamesprial/supercap-mcp/internal/publish"
	"github.com/jamesprial/supercap-mcp/internal/safety"
	"github.com/jamesprial/supercap-mcp/internal/supercap"
	"github.com/jamesprial/supercap-mcp/internal/tools"
	"github.com/jamesprial/supercap-mcp/internal/watch"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

const defaultConfigPath = "/config/config.yaml"

func main() {
	cfg, loadErr := loadConfig()
	config.ApplyEnvOverrides(cfg)

	log := logging.Setup(cfg.Log)
	if loadErr != nil {
		log.WithError(loadErr).Warn("could not load config, using defaults")
	}

	tokenBefore := cfg.Server.AuthToken
	token, err := config.EnsureAuthToken(cfg)
	if err != nil {
		log.WithError(err).Warn("could not generate auth token, running without authentication")
	} else if tokenBefore == "" {
		log.Infof("generated auth token (set SUPERCAP_MCP_AUTH_TOKEN to persist): %s", token)
	}

	dir := cfg.Device.HwmonDir
	if dir == "" {
		dir, err = hwmon.Discover(cfg.Device.SysPath, cfg.Device.ChipName)
		if err != nil {
			log.WithError(err).Fatal("no controller found")
		}
	}
	log.WithField("dir", dir).Info("using hwmon device")
	store := hwmon.NewSysfsStore(dir)

	var auditLogger *safety.AuditLogger
	if cfg.Audit.Enabled {
		f, err := os.OpenFile(cfg.Audit.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			log.WithError(err).WithField("path", cfg.Audit.LogPath).Warn("could not open audit log, audit logging disabled")
		} else {
			auditLogger = safety.NewAuditLogger(f)
			defer f.Close()
		}
	}

	filter := safety.NewFilter(cfg.Safety.Attributes.Allowlist, cfg.Safety.Attributes.Denylist)
	confirm := safety.NewConfirmationTracker(supercap.DestructiveTools)
	ctrl := supercap.NewController(store, filter, log.WithField("component", "controller"))

	mcpServer := server.NewMCPServer(
		"supercap-mcp",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	tools.RegisterAll(mcpServer, supercap.Tools(ctrl, confirm, auditLogger), log)

	httpHandler := server.NewStreamableHTTPServer(mcpServer)
	mux := http.NewServeMux()
	mux.Handle("/mcp", httpHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           auth.NewAuthMiddleware(cfg.Server.AuthToken, "/healthz")(mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	servers := []*http.Server{httpSrv}
	if cfg.Metrics.Enabled {
		if metricsSrv := startMetrics(cfg.Metrics.Port, ctrl, log); metricsSrv != nil {
			servers = append(servers, metricsSrv)
		}
	}

	watchDone := startWatcher(ctx, cfg, dir, ctrl, log)

	go func() {
		log.Infof("supercap-mcp listening on %s", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("graceful shutdown error")
		}
	}
	select {
	case <-watchDone:
	case <-shutdownCtx.Done():
		log.Warn("watcher did not stop in time")
	}
	log.Info("server stopped")
}

// loadConfig reads the config file from SUPERCAP_MCP_CONFIG_PATH or the
// default /config/config.yaml. If the file cannot be read, DefaultConfig is
// returned with the error, which is logged once logging is configured.
func loadConfig() (*config.Config, error) {
	path := os.Getenv("SUPERCAP_MCP_CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return config.DefaultConfig(), fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// startMetrics serves /metrics and /health on port. It returns nil when the
// handler cannot be built.
func startMetrics(port int, ctrl *supercap.Controller, log *logrus.Logger) *http.Server {
	handler, err := metrics.NewHandler(metrics.NewCollector(ctrl, 5*time.Second, log.WithField("component", "metrics")))
	if err != nil {
		log.WithError(err).Error("metrics disabled")
		return nil
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infof("metrics listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server error")
		}
	}()
	return srv
}

// startWatcher runs the status watcher until ctx is done. The returned
// channel is closed when the watcher has stopped. A watcher that cannot be
// started is logged and skipped; the MCP tools keep working without it.
func startWatcher(ctx context.Context, cfg *config.Config, dir string, ctrl *supercap.Controller, log *logrus.Logger) <-chan struct{} {
	done := make(chan struct{})
	wlog := log.WithField("component", "watch")

	timeout := time.Duration(cfg.Watch.PollTimeoutMS) * time.Millisecond
	notifier, err := watch.Open(cfg.Watch.Backend, dir, cfg.Watch.Attributes, timeout)
	if err != nil {
		wlog.WithError(err).Warn("status watching disabled")
		close(done)
		return done
	}
	w, err := watch.New(ctrl, notifier, cfg.Watch.Attributes, wlog)
	if err != nil {
		_ = notifier.Close()
		wlog.WithError(err).Warn("status watching disabled")
		close(done)
		return done
	}
	w.OnEvent(watch.LogHandler(wlog))

	var pub publish.Publisher
	if cfg.Redis.Enabled {
		rp, err := publish.NewRedisPublisher(ctx, publish.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			Device:   cfg.Device.ChipName,
			History:  cfg.Redis.History,
		}, log.WithField("component", "publish"))
		if err != nil {
			wlog.WithError(err).Warn("event publishing disabled")
		} else {
			pub = rp
			w.OnEvent(publish.Handler(rp, log.WithField("component", "publish")))
		}
	}

	go func() {
		defer close(done)
		defer func() {
			if err := notifier.Close(); err != nil {
				wlog.WithError(err).Warn("close notifier")
			}
			if pub != nil {
				if err := pub.Close(); err != nil {
					wlog.WithError(err).Warn("close publisher")
				}
			}
		}()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			wlog.WithError(err).Error("watcher stopped")
		}
	}()
	return done
}
