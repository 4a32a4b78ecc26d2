// Package main is the entry point for the expense approval service.
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

	"github.com/shopspring/decimal"

	"gitlab.com/yelinaung/expense-approval/internal/api"
	"gitlab.com/yelinaung/expense-approval/internal/approval"
	"gitlab.com/yelinaung/expense-approval/internal/config"
	"gitlab.com/yelinaung/expense-approval/internal/database"
	"gitlab.com/yelinaung/expense-approval/internal/logger"
	"gitlab.com/yelinaung/expense-approval/internal/memstore"
	"gitlab.com/yelinaung/expense-approval/internal/models"
	"gitlab.com/yelinaung/expense-approval/internal/notify"
	"gitlab.com/yelinaung/expense-approval/internal/repository"
	"gitlab.com/yelinaung/expense-approval/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("expense-approval %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Configure(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "expense-approval",
		ServiceVersion: version,
		Exporter:       cfg.OTelExporter,
		Endpoint:       cfg.OTelEndpoint,
	})
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up telemetry")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer flushCancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	engine, err := approval.NewEngine(store,
		approval.WithNotifier(newNotifier(cfg)),
		approval.WithMaxRetries(cfg.DecideMaxRetries),
		approval.WithRejectionComment(cfg.RequireRejectionComment),
	)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create approval engine")
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Instrumented(api.NewHandler(engine)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", cfg.HTTPAddr).Str("version", version).Msg("HTTP server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error().Err(err).Msg("HTTP server failed")
		}
	case <-ctx.Done():
		stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stopCancel()
		if err := server.Shutdown(stopCtx); err != nil {
			logger.Log.Error().Err(err).Msg("HTTP server did not shut down cleanly")
		}
	}
}

// openStore returns the configured storage backend and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (approval.Store, func()) {
	if cfg.Storage == config.StorageMemory {
		s := memstore.New()
		seedDemo(s)
		logger.Log.Warn().Msg("Using in-memory storage; data is lost on exit")
		return s, func() {}
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := database.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	logger.Log.Info().Msg("Database initialized successfully")
	return repository.NewStore(pool), pool.Close
}

func newNotifier(cfg *config.Config) approval.Notifier {
	if cfg.TelegramBotToken == "" {
		return notify.Nop{}
	}
	n, err := notify.NewTelegramNotifier(cfg.TelegramBotToken)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create Telegram notifier")
	}
	return n
}

// seedDemo fills an in-memory store with one company governed by a
// manager-first sequential rule and a draft expense ready to submit.
func seedDemo(s *memstore.Store) {
	company := models.Company{Name: "Demo Co"}
	s.AddCompany(&company)

	admin := &models.User{CompanyID: company.ID, Name: "Ada Admin", Email: "ada@example.com", Role: models.RoleAdmin}
	s.AddUser(admin)
	manager := &models.User{CompanyID: company.ID, Name: "Max Manager", Email: "max@example.com", Role: models.RoleManager}
	s.AddUser(manager)
	finance := &models.User{CompanyID: company.ID, Name: "Fay Finance", Email: "fay@example.com", Role: models.RoleManager}
	s.AddUser(finance)
	employee := &models.User{
		CompanyID: company.ID, Name: "Eve Employee", Email: "eve@example.com",
		Role: models.RoleEmployee, ManagerID: &manager.ID,
	}
	s.AddUser(employee)

	s.AddCompanyRule(&models.ApprovalRule{CompanyID: company.ID, RuleConfig: models.RuleConfig{
		ApprovalType:      models.ApprovalTypeSequential,
		UseSequence:       true,
		IsManagerApprover: true,
		IsActive:          true,
		Approvers:         []models.RuleApprover{{ApproverID: finance.ID, SequenceOrder: 1}},
	}})

	exp := &models.Expense{
		CompanyID:   company.ID,
		SubmitterID: employee.ID,
		Amount:      decimal.RequireFromString("86.40"),
		Category:    "Travel",
		Description: "Airport taxi",
		ExpenseDate: time.Now(),
	}
	s.AddExpense(exp)

	logger.Log.Info().
		Int64("admin", admin.ID).
		Int64("manager", manager.ID).
		Int64("finance", finance.ID).
		Int64("employee", employee.ID).
		Int64("expense", exp.ID).
		Msg("Seeded demo data")
}
