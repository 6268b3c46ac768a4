package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codearena/internal/api"
	"codearena/internal/app/judge"
	"codearena/internal/app/service"
	"codearena/internal/common/security"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/cache"
	"codearena/internal/platform/config"
	"codearena/internal/platform/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	// 1. Load Configuration
	config.Load()
	log.Info("Configuration loaded")

	// 2. Initialize JWT
	security.InitJWT()
	log.Info("JWT initialized")

	// 3. Initialize Database
	database.Connect()
	defer database.Close()

	// 4. Initialize Verdict Cache
	var verdictCache cache.VerdictCache
	if config.AppConfig.RedisAddr != "" {
		redisCache := cache.ConnectRedis()
		defer redisCache.Close()
		verdictCache = redisCache
	} else {
		memCache := cache.NewMemoryVerdictCache(
			config.AppConfig.VerdictCacheTTL,
			config.AppConfig.VerdictCacheSweep,
		)
		defer memCache.Stop()
		verdictCache = memCache
		log.Info("Using in-process verdict cache")
	}

	// 5. Initialize Judge Client
	if config.AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}
	judgeClient := judge.NewGeminiClient(
		config.AppConfig.GeminiAPIKey,
		config.AppConfig.GeminiModel,
		config.AppConfig.JudgeTimeout,
	)

	// 6. Initialize Repositories
	userRepo := repository.NewPgUserRepository(database.DB)
	problemRepo := repository.NewPgProblemRepository(database.DB)
	submissionRepo := repository.NewPgSubmissionRepository(database.DB)

	// 7. Initialize Services
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo)
	problemService := service.NewProblemService(problemRepo, database.DB)
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, judgeClient, verdictCache)

	// 8. Initialize Router & HTTP Server
	router := api.NewRouter(authService, problemService, submissionService, userService)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // Judge calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Infof("Server starting on port %s", config.AppConfig.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", config.AppConfig.APIPort, err)
		}
	}()

	<-stop // Wait for interrupt signal

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Info("Server stopped gracefully")
}
