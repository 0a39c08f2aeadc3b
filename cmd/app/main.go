// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"translation-queue/internal/config"
	"translation-queue/internal/infra/adapters/translation"
	"translation-queue/internal/infra/api"
	"translation-queue/internal/infra/api/apiv1"
	pg "translation-queue/internal/infra/db/postgres"
	"translation-queue/internal/infra/logging"
	"translation-queue/internal/infra/metrics"
	red "translation-queue/internal/infra/redis"
	"translation-queue/internal/infra/sched"
	"translation-queue/internal/infra/worker"
	"translation-queue/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

const (
	startupSweepBatch = 500
	shutdownTimeout   = 30 * time.Second
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (dev gateway, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}
	logger.Info().
		Str("provider", cfg.Gateway.Provider).
		Str("nllb_token", logging.Redact(cfg.Gateway.NLLBToken, cfg.Runtime.Dev)).
		Str("openai_key", logging.Redact(cfg.Gateway.OpenAIKey, cfg.Runtime.Dev)).
		Str("gemini_key", logging.Redact(cfg.Gateway.GeminiKey, cfg.Runtime.Dev)).
		Int("max_chunk_attempts", cfg.Queue.MaxChunkAttempts).
		Int("max_job_retries", cfg.Queue.MaxJobRetries).
		Msg("config loaded")

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go metrics.WatchPool(ctx, pool, 15*time.Second)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepoCacheDecorator(pg.NewTranslationJobRepo(pool), redisClient, cfg.Redis.TTL)
	accountRepo := pg.NewAccountRepo(pool)
	ledger := pg.NewRefundLedgerRepo(pool)
	tm := pg.NewTxManager(pool)

	credits := usecase.NewCreditReconciler(accountRepo, ledger, jobRepo, tm, locker, logger)

	// Rows left pending or processing by a previous process are dead; fail
	// them and hand their credits back before taking new work.
	if n, err := jobRepo.FailInterrupted(ctx, nil, "interrupted by restart", time.Now()); err != nil {
		logger.Fatal().Err(err).Msg("fail interrupted jobs")
	} else if n > 0 {
		logger.Warn().Int64("jobs", n).Msg("failed jobs interrupted by restart")
	}
	if n, err := credits.Sweep(ctx, startupSweepBatch); err != nil {
		logger.Error().Err(err).Int("refunded", n).Msg("startup refund sweep")
	} else if n > 0 {
		logger.Info().Int("refunded", n).Msg("startup refund sweep")
	}

	// ---- Gateway + queue ----
	gw, err := translation.FromConfig(ctx, cfg.Gateway, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("translation gateway")
	}
	policy := worker.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Queue.MaxChunkAttempts
	translator := worker.NewChunkTranslator(gw, policy, logger)

	queue := worker.NewQueue(translator, jobRepo, credits, worker.QueueOptions{
		InterOpDelay:      cfg.Queue.InterOpDelay,
		TextChunkSize:     cfg.Queue.TextChunkSize,
		DocumentChunkSize: cfg.Queue.DocumentChunkSize,
		MaxJobRetries:     cfg.Queue.MaxJobRetries,
		TextTimeout:       cfg.Gateway.Timeout,
		DocumentTimeout:   cfg.Gateway.DocumentTimeout,
	}, logger)
	queueCtx, stopQueue := context.WithCancel(context.Background())
	defer stopQueue()
	go queue.Run(queueCtx)

	// ---- Use cases ----
	translationUC := usecase.NewTranslationUseCase(jobRepo, accountRepo, tm, queue, credits, usecase.Pricing{
		FreeCharacters:   cfg.Credits.FreeCharacters,
		RatePerCharacter: cfg.Credits.RatePerCharacter,
	}, logger)

	// ---- Background workers ----
	refunds := sched.NewRefundReconciler(credits, cfg.Sched.RefundSweepInterval, 0, logger)
	go func() { _ = refunds.Run(ctx) }()
	cleanup := sched.NewCleanupWorker(queue, jobRepo, cfg.Sched.CleanupInterval, cfg.Sched.Retention, logger)
	go func() { _ = cleanup.Run(ctx) }()

	// ---- HTTP ----
	r := chi.NewRouter()
	api.RegisterOps(r, map[string]api.HealthCheck{
		"postgres": pool.Ping,
		"redis":    redisClient.Ping,
	})
	var submitGuard api.Middleware
	if cfg.API.RateLimit > 0 {
		submitGuard = api.RateLimit(rateLimiter, red.SubmitKey, cfg.API.RateLimit, cfg.API.RateWindow, logger)
	}
	apiv1.RegisterAPIV1(r, apiv1.NewServer(translationUC, submitGuard, logger))

	handler := api.Chain(r,
		api.TraceID(logger),
		api.RequestLog(logger),
		api.Recover(logger),
		api.Timeout(cfg.HTTP.RequestTimeout),
		api.Authenticate(api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.CookieName), logger),
	)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigc:
		logger.Info().Str("signal", s.String()).Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()

	// The queue fails and refunds what it still holds, so it must stop
	// while postgres and redis are still open.
	stopQueue()
	select {
	case <-queue.Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("queue did not stop in time")
	}
	logger.Info().Msg("bye")
}
