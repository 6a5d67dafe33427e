package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"truematch-funnel/internal/config"
	"truematch-funnel/internal/db"
	"truematch-funnel/internal/email"
	apihttp "truematch-funnel/internal/http"
	"truematch-funnel/internal/repository"
	"truematch-funnel/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var accountRepo repository.AccountRepository
	var shortlistRepo repository.ShortlistRepository
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		accountRepo = repository.NewPgAccountRepository(pool)
		shortlistRepo = repository.NewPgShortlistRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory accounts")
		accountRepo = repository.NewMemoryAccountRepository()
	}

	// Sin SMTP el código se escribe al log; suficiente para desarrollo.
	// Con SMTP configurado pero inválido los envíos fallan con 503 en vez
	// de filtrar códigos al log.
	emailSender := email.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
			emailSender = email.NewDisabledSender("smtp sender misconfigured: " + err.Error())
		} else {
			emailSender = sender
		}
	}

	var (
		otpLimiter service.OTPRateLimiter
		tokenStore service.SessionTokenStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, 10*time.Minute, 3)
			tokenStore = service.NewRedisSessionTokenStore(redisClient)
		}
		cancel()
	}

	sessionSvc := service.NewSessionServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
		tokenStore,
	)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	accountSvc := service.NewAccountService(logger, accountRepo, emailSender, otpLimiter, cfg.PlanDurationDays)
	shortlistSvc := service.NewShortlistService(logger, shortlistRepo)

	authHandler := apihttp.NewAuthHandler(logger, accountSvc, sessionSvc)
	accountHandler := apihttp.NewAccountHandler(logger, accountSvc, shortlistSvc, cfg.CheckoutBaseURL)
	router := apihttp.NewRouter(logger, accountRepo, sessionSvc, authHandler, accountHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
