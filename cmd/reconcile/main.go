// Command reconcile rebuilds user balances from call history.
//
// Reconciliation is never triggered implicitly; it runs only here or via the
// admin endpoint. Pass -user to settle a single account, or nothing to walk
// every account.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"calldesk-platform/internal/audit"
	"calldesk-platform/internal/config"
	"calldesk-platform/internal/credits"
	"calldesk-platform/internal/storage/postgres"
	"calldesk-platform/pkg/logger"
	"calldesk-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	userID := flag.String("user", "", "reconcile a single user id (default: all users)")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	auditSvc := audit.NewService(postgres.NewAuditRepo(db))
	// No redis: the claim fast path only matters for concurrent pollers.
	svc := credits.NewService(postgres.NewCreditRepo(db), auditSvc, nil, cfg.Credits)

	if *userID != "" {
		res, err := svc.Reconcile(rootCtx, *userID)
		if err != nil {
			log.Error("reconcile failed", "user_id", *userID, "err", err)
			os.Exit(1)
		}
		log.Info("reconcile done",
			"user_id", res.UserID,
			"previous", res.PreviousBalance,
			"new", res.NewBalance,
			"total_consumed", res.TotalConsumed,
		)
		return
	}

	res, err := svc.ReconcileAll(rootCtx)
	if err != nil {
		log.Error("reconcile all failed", "err", err)
		os.Exit(1)
	}
	log.Info("reconcile all done", "users_updated", res.UsersUpdated, "errors", len(res.Errors))
	for _, e := range res.Errors {
		log.Warn("reconcile error", "detail", e)
	}
	if len(res.Errors) > 0 {
		os.Exit(1)
	}
}
