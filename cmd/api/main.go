package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"affiliate-platform/internal/audit"
	"affiliate-platform/internal/auth"
	"affiliate-platform/internal/config"
	"affiliate-platform/internal/conversion"
	"affiliate-platform/internal/httpapi"
	"affiliate-platform/internal/network"
	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/postback"
	"affiliate-platform/internal/ratelimit"
	"affiliate-platform/internal/reporting"
	"affiliate-platform/internal/signature"
	"affiliate-platform/internal/tracking"
	"affiliate-platform/pkg/logger"
	"affiliate-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local development convenience; real deployments set env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Repositories
	networks := network.NewPostgresRepo(db)
	offerRepo := offers.NewPostgresRepo(db)
	clickRepo := tracking.NewPostgresRepo(db)
	convRepo := conversion.NewPostgresRepo(db)
	auditRepo := audit.NewPostgresRepo(db)

	// Services
	verifier := signature.NewVerifier(networks, signature.NewRedisNonceStore(rdb),
		cfg.Signing.FreshnessWindow, cfg.Signing.MinNonceLength)
	limiter := ratelimit.NewLimiter(ratelimit.NewRedisWindowStore(rdb),
		cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour)
	redirects := ratelimit.NewRedirectLimiter(cfg.RateLimit.RedirectPerSecond)

	offerSvc := offers.NewService(offerRepo)
	trackSvc := tracking.NewService(clickRepo, offerRepo)
	convSvc := conversion.NewService(convRepo, offerRepo, clickRepo)
	auditSvc := audit.NewService(auditRepo)
	reportSvc := reporting.NewService(reporting.NewPostgresRepo(db))

	pb := postback.Handlers{
		Verifier:    verifier,
		Limiter:     limiter,
		Redirects:   redirects,
		Conversions: convSvc,
		Tracking:    trackSvc,
		Audit:       auditSvc,
	}
	api := httpapi.Handlers{
		Auth:        authManager,
		Offers:      offerSvc,
		Conversions: convSvc,
		Reporting:   reportSvc,
		Networks:    networks,
		Audit:       auditSvc,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(requestDeadline(cfg.App.RequestTimeout))

	registerRoutes(r, pb, api, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}

// requestDeadline bounds every handler's context so abandoned requests cannot
// hold database work open past the configured budget.
func requestDeadline(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
