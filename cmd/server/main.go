package main

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/config"
	"timebank-backend/internal/db"
	"timebank-backend/internal/domain"
	"timebank-backend/internal/handler"
	"timebank-backend/internal/repository"
	"timebank-backend/internal/server"
	"timebank-backend/internal/service"
	"timebank-backend/internal/store"
	syncpkg "timebank-backend/internal/sync"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Remote store is optional; without DATABASE_URL the service runs
	// local-only and every scope behaves like a guest scope.
	var pg *db.Postgres
	if cfg.RemoteEnabled() {
		pg, err = db.New(ctx, cfg)
		if err != nil {
			logger.Error("failed to connect database", "err", err)
			os.Exit(1)
		}
		defer pg.Close()
		if err := repository.EnsureSchema(ctx, pg); err != nil {
			logger.Error("failed to ensure schema", "err", err)
			os.Exit(1)
		}
	}

	// Firebase Auth (optional)
	var firebaseAuth *fbauth.Client
	if cfg.FirebaseProjectID != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, firebaseOptions(cfg)...)
		if err != nil {
			logger.Error("failed to init firebase app", "err", err)
			os.Exit(1)
		}
		client, err := app.Auth(ctx)
		if err != nil {
			logger.Error("failed to init firebase auth", "err", err)
			os.Exit(1)
		}
		firebaseAuth = client
	}

	local := store.Open(cfg.LocalStorePath, logger)
	defer local.Close()

	holidays := domain.DefaultHolidayCalendar()
	if len(cfg.Holidays) > 0 {
		holidays = domain.NewHolidayCalendar(cfg.Holidays)
	}
	balanceEngine := balance.Engine{Holidays: holidays}

	var remote syncpkg.RemoteStore
	if pg != nil {
		remote = repository.NewRemoteStore(pg)
	}
	engines := syncpkg.NewManager(local, remote, balanceEngine, cfg.RetentionDays, logger)

	authSvc := service.AuthService{
		Config:       cfg,
		Users:        repository.UserRepository{DB: pg},
		Logger:       logger,
		FirebaseAuth: firebaseAuth,
	}

	healthHandler := handler.HealthHandler{Local: local}
	if pg != nil {
		healthHandler.Remote = pg
	}
	authHandler := handler.AuthHandler{Service: &authSvc}
	punchHandler := handler.PunchHandler{Engines: engines}
	adjustmentHandler := handler.AdjustmentHandler{Engines: engines}
	settingsHandler := handler.SettingsHandler{Engines: engines}
	balanceHandler := handler.BalanceHandler{Engines: engines}
	syncHandler := handler.SyncHandler{Engines: engines}
	backupHandler := handler.BackupHandler{Engines: engines}
	reportHandler := handler.ReportHandler{Engines: engines}

	router := server.NewRouter(cfg, logger,
		healthHandler, authHandler, punchHandler, adjustmentHandler,
		settingsHandler, balanceHandler, syncHandler, backupHandler, reportHandler)

	if err := server.Start(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func firebaseOptions(cfg config.Config) []option.ClientOption {
	if cfg.FirebaseCredFile == "" {
		return nil
	}

	cred := cfg.FirebaseCredFile
	// Allow inline JSON or base64-encoded JSON in env to avoid writing a file.
	if strings.HasPrefix(strings.TrimSpace(cred), "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cred))}
	}
	if decoded, err := base64.StdEncoding.DecodeString(cred); err == nil && strings.HasPrefix(strings.TrimSpace(string(decoded)), "{") {
		return []option.ClientOption{option.WithCredentialsJSON(decoded)}
	}

	return []option.ClientOption{option.WithCredentialsFile(cred)}
}
