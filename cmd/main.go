package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	grpcctx "github.com/dtroode/agrogestion/internal/api/grpc/context"
	"github.com/dtroode/agrogestion/internal/api/grpc/router"
	grpcServer "github.com/dtroode/agrogestion/internal/api/grpc/server"
	"github.com/dtroode/agrogestion/internal/app"
	"github.com/dtroode/agrogestion/internal/config"
	"github.com/dtroode/agrogestion/internal/logger"
	"github.com/dtroode/agrogestion/internal/model"
	"github.com/dtroode/agrogestion/internal/repository/postgres"
	"github.com/dtroode/agrogestion/internal/seed"
	"github.com/dtroode/agrogestion/internal/server"
	"github.com/dtroode/agrogestion/internal/service"
	storage "github.com/dtroode/agrogestion/internal/storage/minio"
	"github.com/dtroode/agrogestion/internal/storage/vault"
	"github.com/dtroode/agrogestion/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogJSON)

	db, err := postgres.NewConection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	objects, err := storage.New(ctx, storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to initialize object storage", "error", err)
	}

	userRepo := postgres.NewUserRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret, token.WithTTL(cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL))
	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, logger.Component("token")).
		WithRefreshTTL(tokenManager.RefreshTTL())
	sessionVault := vault.New(objects, cfg.Session.VaultPrefix, cfg.Session.DeviceID)
	credentials := service.NewCredentials(userRepo, tokenService, sessionVault, logger.Component("credentials"))

	if cfg.Bootstrap.Enabled() {
		bootstrapUser(ctx, logger, credentials, cfg.Bootstrap)
	}

	application, err := app.New(app.Deps{
		Backend: credentials,
		Loader:  seed.NewFile(cfg.Seed.File, logger.Component("seed")),
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal("failed to create application", "error", err)
	}
	if err := application.Start(ctx); err != nil {
		logger.Fatal("failed to start application", "error", err)
	}
	defer application.Stop()

	r := router.New(application, tokenService, grpcctx.NewManager(), logger.Component("grpc"))
	grpcSrv := grpcServer.NewGRPCServer(r.Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))
	sl := server.NewSecurityLayer(cfg.GRPC)

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(grpcSrv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", grpcSrv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func bootstrapUser(ctx context.Context, logger *logger.Logger, credentials *service.Credentials, cfg config.Bootstrap) {
	_, err := credentials.Register(ctx, model.Credentials{Email: cfg.Email, Password: cfg.Password}, cfg.DisplayName)
	switch {
	case err == nil:
		logger.Info("bootstrap user created", "email", cfg.Email)
	case errors.Is(err, postgres.ErrEmailTaken):
		logger.Debug("bootstrap user already exists", "email", cfg.Email)
	default:
		logger.Fatal("failed to create bootstrap user", "error", err)
	}
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
