package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"strata-violations/internal/auth"
	"strata-violations/internal/config"
	"strata-violations/internal/db"
	httphandler "strata-violations/internal/http"
	"strata-violations/internal/http/middleware"
	"strata-violations/internal/logger"
	"strata-violations/internal/metrics"
	"strata-violations/internal/notification"
	"strata-violations/internal/repository"
	"strata-violations/internal/service"
	"strata-violations/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	m, err := metrics.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}

	var scanner storage.Scanner
	if s := storage.NewCommandScanner(cfg.Files.ScanCommand); s != nil {
		scanner = s
		log.Info().Str("command", s.Command).Msg("attachment malware scanning enabled")
	}
	store, err := storage.NewStore(afero.NewOsFs(), cfg.Files.UploadsDir, cfg.Files.MaxFiles, cfg.Files.MaxBytes, scanner)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare uploads directory")
	}

	renderer, err := notification.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse email templates")
	}
	var mailer notification.Mailer = notification.NewLogMailer(log)
	if cfg.Notify.SMTPURL != "" {
		smtp, err := notification.NewShoutrrrMailer(cfg.Notify.SMTPURL, 15*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure smtp")
		}
		mailer = smtp
	} else {
		log.Warn().Msg("SMTP_URL not set, emails are logged instead of sent")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unreachable, rate limiting fails open")
		}
	} else {
		log.Warn().Msg("REDIS_ADDR not set, public rate limiting disabled")
	}

	violationRepo := repository.NewViolationRepository(database)
	unitRepo := repository.NewUnitRepository(database)
	auditRepo := repository.NewAuditRepository(database)
	linkRepo := repository.NewAccessLinkRepository(database)
	outboxRepo := repository.NewOutboxRepository(database)

	categories := service.NewCategoryCatalog(repository.NewCategoryRepository(database), cfg.Cache.CategoryTTL)
	violationService := service.NewViolationService(violationRepo, unitRepo, categories, auditRepo, store, m, log, service.ViolationServiceConfig{
		PublicBaseURL: cfg.HTTP.PublicBaseURL,
		AccessLinkTTL: cfg.Dispute.AccessLinkTTL,
	})
	disputeService := service.NewDisputeService(
		violationService,
		linkRepo,
		unitRepo,
		auditRepo,
		auth.NewIssuer(cfg.Auth.AccessSecret, cfg.Auth.OccupantSessionTTL),
		mailer,
		renderer,
		m,
		log,
		service.DisputeServiceConfig{CodeTTL: cfg.Dispute.VerificationCodeTTL},
	)
	reportService := service.NewReportService(repository.NewReportRepository(database), violationRepo)
	auditService := service.NewAuditService(auditRepo)

	worker := notification.NewWorker(outboxRepo, mailer, renderer, m, log, notification.WorkerConfig{
		PollInterval: cfg.Notify.PollInterval,
		BatchSize:    cfg.Notify.BatchSize,
		MaxAttempts:  cfg.Notify.MaxAttempts,
	})

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	// Multipart overhead on top of the attachment limit.
	maxUploadBytes := int64(cfg.Files.MaxFiles)*cfg.Files.MaxBytes + 1<<20

	handler := httphandler.NewHandler(violationService, disputeService, reportService, auditService, categories, maxUploadBytes, log)
	router := httphandler.NewRouter(handler, httphandler.RouterConfig{
		Env:          cfg.Environment,
		StaffAuth:    middleware.Auth(tokenParser),
		OccupantAuth: middleware.OccupantAuth(tokenParser),
		PublicRateLimit: middleware.RateLimit(redisClient, middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Redis.PublicRequestsPerMinute,
			KeyPrefix:         "strata:ratelimit:",
		}, m, log),
		HealthCheck: func(ctx context.Context) error { return db.HealthCheck(ctx, database) },
		Metrics:     m,
		Log:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("starting strata violations service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	wg.Wait()
	log.Info().Msg("stopped")
}
