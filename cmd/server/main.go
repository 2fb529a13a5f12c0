package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/counseldesk/backend/internal/auth"
	"github.com/counseldesk/backend/internal/cache"
	"github.com/counseldesk/backend/internal/chat"
	"github.com/counseldesk/backend/internal/clio"
	"github.com/counseldesk/backend/internal/config"
	"github.com/counseldesk/backend/internal/dashboard"
	"github.com/counseldesk/backend/internal/feed"
	"github.com/counseldesk/backend/internal/google"
	"github.com/counseldesk/backend/internal/handlers"
	"github.com/counseldesk/backend/internal/logger"
	"github.com/counseldesk/backend/internal/metrics"
	"github.com/counseldesk/backend/internal/middleware"
	"github.com/counseldesk/backend/internal/session"
	"github.com/counseldesk/backend/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("CounselDesk backend starting",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	metrics.Initialize()

	// Redis is optional; without it rate limiting stays in-memory.
	if cfg.RedisHost != "" {
		redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, using in-memory rate limiting", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	if cfg.OTelEnabled {
		tp, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:  "counseldesk-backend",
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.OTelEndpoint,
			Enabled:      true,
			SamplingRate: cfg.OTelSamplingRate,
		})
		if err != nil {
			logger.Log.Warn("Failed to initialize tracing", zap.Error(err))
		} else if tp != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()
		}
	}

	sessions := session.NewManager(cfg.SessionSecret)
	authService := auth.NewService(cfg.GoogleOAuth, cfg.Clio, sessions)
	googleClient := google.NewClient()
	clioClient := clio.NewClient(cfg.Clio.APIBaseURL)
	feedService := feed.NewService(googleClient, clioClient)
	dashboardService := dashboard.NewService(clioClient)

	geminiClient := chat.NewGeminiClient(cfg.GeminiAPIKey)
	chatService := chat.NewService(googleClient, geminiClient)
	if cfg.GeminiAPIKey == "" {
		logger.Log.Warn("GEMINI_API_KEY not set, chat assistant will fail")
	}

	h := handlers.NewHandlers(cfg, sessions, authService,
		googleClient, clioClient, feedService, dashboardService, chatService)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware("counseldesk-backend"))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Clio-Token", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	handlers.RegisterRoutes(r, h, sessions)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
