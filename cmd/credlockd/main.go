package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	credlock "github.com/credlock/credlock"
	"github.com/credlock/credlock/metrics/export/prometheus"
	"github.com/credlock/credlock/middleware"
	"github.com/credlock/credlock/userstore"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := userstore.RunMigrations(ctx, db); err != nil {
		return err
	}
	logger.Info("migrations applied")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	engineCfg, err := engineConfig(cfg)
	if err != nil {
		return err
	}

	auditOut, err := cfg.auditWriter()
	if err != nil {
		return err
	}
	if auditOut != os.Stdout {
		defer auditOut.Close()
	}

	store := userstore.NewPostgres(db, engineCfg.Session.OperationTimeout)

	engine, err := credlock.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithAuditSink(credlock.NewJSONWriterSink(auditOut)).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(engine, store, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func engineConfig(cfg serverConfig) (credlock.Config, error) {
	engineCfg, err := credlock.DefaultConfig()
	if err != nil {
		return credlock.Config{}, err
	}

	if cfg.JWTSecret != "" {
		engineCfg.JWT.SigningMethod = "hs256"
		engineCfg.JWT.PrivateKey = []byte(cfg.JWTSecret)
		engineCfg.JWT.PublicKey = nil
	}
	engineCfg.JWT.Issuer = cfg.JWTIssuer
	engineCfg.JWT.Audience = cfg.JWTAudience
	engineCfg.JWT.AccessTTL = cfg.AccessTTL

	engineCfg.Session.RedisPrefix = cfg.RedisPrefix
	engineCfg.Session.SessionLifetime = cfg.SessionLifetime

	engineCfg.Account.Enabled = cfg.RegistrationEnabled
	engineCfg.Account.AutoLogin = cfg.AutoLogin

	engineCfg.Audit.Enabled = cfg.AuditEnabled
	engineCfg.Audit.BufferSize = cfg.AuditBuffer
	engineCfg.Audit.DropIfFull = true

	engineCfg.Metrics.Enabled = cfg.MetricsEnabled
	engineCfg.Metrics.EnableLatencyHistograms = cfg.LatencyHistograms

	return engineCfg, nil
}

func newRouter(engine *credlock.Engine, store *userstore.Postgres, logger *slog.Logger) http.Handler {
	h := &handlers{engine: engine, store: store, logger: logger}
	guard := middleware.Guard(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/login", h.login)
	mux.HandleFunc("POST /v1/refresh", h.refresh)
	mux.HandleFunc("POST /v1/logout", h.logout)
	mux.HandleFunc("POST /v1/register", h.register)
	mux.HandleFunc("POST /v1/password", h.changePassword)
	mux.Handle("POST /v1/logout_all", guard(http.HandlerFunc(h.logoutAll)))
	mux.Handle("DELETE /v1/account", guard(http.HandlerFunc(h.deleteAccount)))
	mux.Handle("GET /v1/session", guard(http.HandlerFunc(h.session)))
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(engine).Handler())

	return withClientIP(mux)
}
