package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codewars_portal/internal/api"
	"codewars_portal/internal/app/judge"
	"codewars_portal/internal/app/service"
	"codewars_portal/internal/common/security"
	"codewars_portal/internal/domain/repository"
	"codewars_portal/internal/platform/cache"
	"codewars_portal/internal/platform/config"
	"codewars_portal/internal/platform/database"
	"codewars_portal/internal/platform/logger"

	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	config.Load()
	cfg := config.AppConfig

	// 2. Initialize Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	}); err != nil {
		logger.Fatal(context.Background(), "Failed to initialize logger: "+err.Error())
	}
	defer logger.Sync()
	ctx := context.Background()

	// 3. Initialize JWT
	security.InitJWT()

	// 4. Initialize Database
	database.Connect()
	defer database.Close()

	// 5. Initialize Redis
	cache.ConnectRedis()
	defer cache.CloseRedis()

	// 6. Initialize Repositories
	teamRepo := repository.NewPgTeamRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)
	sessionRepo := repository.NewRedisSessionRepository(cache.RDB)

	// 7. Initialize Services
	judgeClient := judge.NewClient(judge.Config{
		BaseURL:         cfg.JudgeBaseURL,
		AuthHeader:      cfg.JudgeAuthHeader,
		AuthToken:       cfg.JudgeAuthToken,
		CPUTimeLimitSec: cfg.JudgeCPUTimeLimitSec,
		MemoryLimitKb:   cfg.JudgeMemoryLimitKb,
		HTTPTimeout:     cfg.JudgeHTTPTimeout,
	})
	if cfg.JudgeAuthHeader == "" || cfg.JudgeAuthToken == "" {
		logger.Warn(ctx, "Judge credentials not configured, requests are sent unauthenticated",
			zap.String("judge_base_url", cfg.JudgeBaseURL))
	}

	authService := service.NewAuthService(teamRepo, sessionRepo)
	executionService := service.NewExecutionService(judgeClient, service.NewTimerSleeper(), service.ExecutionConfig{
		PollInterval:    cfg.JudgePollInterval,
		MaxPollAttempts: cfg.JudgeMaxPollAttempts,
	})
	submissionService := service.NewSubmissionService(submissionRepo)

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(api.Services{
		Sessions:    authService,
		Revocations: authService,
		Executor:    executionService,
		Recorder:    submissionService,
	})

	// /api/execute returns within service.MaxExecutionBudget; the write timeout must stay above it.
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: service.MaxExecutionBudget + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info(ctx, "Server starting", zap.String("port", cfg.APIPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "Could not listen", zap.String("port", cfg.APIPort), zap.Error(err))
		}
	}()

	<-stop // Wait for interrupt signal

	logger.Info(ctx, "Shutting down server...")

	// In-flight executions may still be polling the judge.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown failed", zap.Error(err))
		return
	}

	logger.Info(ctx, "Server stopped gracefully.")
}
