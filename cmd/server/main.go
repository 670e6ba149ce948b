package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc/health"

	"github.com/dtroode/taskhub-server/database"
	grpchealth "github.com/dtroode/taskhub-server/internal/api/grpc/health"
	grpcrouter "github.com/dtroode/taskhub-server/internal/api/grpc/router"
	grpcserver "github.com/dtroode/taskhub-server/internal/api/grpc/server"
	httpctx "github.com/dtroode/taskhub-server/internal/api/http/context"
	httprouter "github.com/dtroode/taskhub-server/internal/api/http/router"
	httpserver "github.com/dtroode/taskhub-server/internal/api/http/server"
	"github.com/dtroode/taskhub-server/internal/config"
	"github.com/dtroode/taskhub-server/internal/logger"
	"github.com/dtroode/taskhub-server/internal/metrics"
	"github.com/dtroode/taskhub-server/internal/model"
	"github.com/dtroode/taskhub-server/internal/repository/postgres"
	"github.com/dtroode/taskhub-server/internal/server"
	"github.com/dtroode/taskhub-server/internal/service"
	storage "github.com/dtroode/taskhub-server/internal/storage/minio"
	"github.com/dtroode/taskhub-server/internal/token"
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
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()
	logSchemaVersion(ctx, logger, db)

	userRepo := postgres.NewUserRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, userRepo, cfg.JWT.RefreshTTL, logger)
	authService := service.NewAuth(userRepo, tokenService, recorder, logger)
	profileService := service.NewProfile(profileRepo, storageClient, cfg.HTTP.MaxAvatarBytes, recorder, logger)
	ctxMgr := httpctx.NewManager()

	router := httprouter.New(
		authService,
		profileService,
		tokenService,
		ctxMgr,
		recorder,
		metrics.Handler(registry),
		db,
		httprouter.Config{
			CORSAllowedOrigin: cfg.HTTP.CORSAllowedOrigin,
			MaxAvatarBytes:    cfg.HTTP.MaxAvatarBytes,
			UploadRatePerMin:  cfg.HTTP.UploadRatePerMin,
			UploadBurst:       cfg.HTTP.UploadBurst,
		},
		logger,
	)
	defer router.Close()

	httpServer := httpserver.NewHTTPServer(router.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)

	healthServer := health.NewServer()
	reporter := grpchealth.NewReporter(healthServer, db, cfg.GRPC.HealthInterval, logger)
	opsServer := grpcserver.NewGRPCServer(grpcrouter.New(healthServer, logger).Register(), fmt.Sprintf(":%s", cfg.GRPC.Port))

	httpSL := server.NewSecurityLayer(cfg.HTTP.EnableHTTPS, cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	opsSL := server.NewSecurityLayer(false, "", "")

	var wg sync.WaitGroup
	for _, srv := range []struct {
		s  model.Server
		sl model.SecurityLayer
	}{{httpServer, httpSL}, {opsServer, opsSL}} {
		wg.Add(1)
		go func(s model.Server, sl model.SecurityLayer) {
			defer wg.Done()
			logger.Info("Starting server on", "address", s.Address())
			if err := s.Start(sl); err != nil {
				logger.Error("failed to start server", "error", err, "address", s.Address())
				stop()
			}
		}(srv.s, srv.sl)
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		purgeRefreshTokens(ctx, logger, tokenService, cfg.JWT.PurgeInterval)
	}()

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	for _, s := range []model.Server{httpServer, opsServer} {
		if err := s.Stop(shutdownCtx); err != nil {
			logger.Error("error during server shutdown", "error", err, "address", s.Address())
		}
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}

func logSchemaVersion(ctx context.Context, logger *logger.Logger, db *postgres.Connection) {
	sqlDB := db.SQLDB()
	defer sqlDB.Close()

	version, err := database.CurrentVersion(ctx, sqlDB)
	if err != nil {
		logger.Warn("failed to read schema version", "error", err)
		return
	}
	logger.Info("database schema ready", "version", version)
}

// purgeRefreshTokens deletes expired and revoked refresh tokens every
// interval until ctx is done.
func purgeRefreshTokens(ctx context.Context, logger *logger.Logger, tokens *service.TokenService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tokens.PurgeExpired(ctx)
			if err != nil {
				logger.Error("failed to purge refresh tokens", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged refresh tokens", "count", n)
			}
		}
	}
}
