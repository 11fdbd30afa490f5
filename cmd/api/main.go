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

	"calldesk-platform/internal/audit"
	"calldesk-platform/internal/auth"
	"calldesk-platform/internal/calls"
	"calldesk-platform/internal/config"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/httpapi"
	"calldesk-platform/internal/reporting"
	"calldesk-platform/internal/storage/postgres"
	"calldesk-platform/internal/users"
	"calldesk-platform/internal/webhook"
	"calldesk-platform/pkg/logger"
	"calldesk-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local convenience; absent .env is fine, the environment wins.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
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
	userRepo := postgres.NewUserRepo(db)
	callRepo := postgres.NewCallRepo(db)
	creditRepo := postgres.NewCreditRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	reportRepo := postgres.NewReportingRepo(db)

	// Services
	auditSvc := audit.NewService(auditRepo)
	creditsSvc := credits.NewService(creditRepo, auditSvc, rdb, cfg.Credits)
	trigger := webhook.NewClient(cfg.Webhook)
	callsSvc := calls.NewService(callRepo, trigger, auditSvc, creditsSvc)
	usersSvc := users.NewService(userRepo, authManager, auditSvc, cfg.Credits)
	reportingSvc := reporting.NewService(reportRepo)

	h := httpapi.Handlers{
		Users:     usersSvc,
		Calls:     callsSvc,
		Credits:   creditsSvc,
		Reporting: reportingSvc,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, authManager, creditsSvc, db)

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
}
