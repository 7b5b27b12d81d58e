package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/d60-Lab/pairlink/config"
	_ "github.com/d60-Lab/pairlink/docs"
	"github.com/d60-Lab/pairlink/internal/api/handler"
	"github.com/d60-Lab/pairlink/internal/api/middleware"
	"github.com/d60-Lab/pairlink/internal/repository"
	"github.com/d60-Lab/pairlink/internal/service"
	"github.com/d60-Lab/pairlink/pkg/database"
	"github.com/d60-Lab/pairlink/pkg/logger"
	"github.com/d60-Lab/pairlink/pkg/tracing"
)

// @title PairLink API
// @version 1.0
// @description 搭档关系生命周期服务
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Trace.Enabled {
		shutdown, err := tracing.Init(ctx, "pairlink", cfg.Trace.Endpoint)
		if err != nil {
			logger.Warn("tracing init failed", zap.Error(err))
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}

	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := cache.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, edge cache disabled", zap.Error(err))
			cache = nil
		}
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	partnerRepo := repository.NewPartnershipRepository(db)
	feedRepo := repository.NewFeedEventRepository(db)

	graphSvc := service.NewSocialGraphService(followRepo, cache, time.Duration(cfg.Redis.EdgeCacheTTL)*time.Second)
	emitter := service.NewFeedEmitter(feedRepo)
	partnerSvc := service.NewPartnershipService(partnerRepo, userRepo, graphSvc, emitter)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireHour)*time.Hour)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Sentry.DSN != "" {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if cfg.Trace.Enabled {
		r.Use(otelgin.Middleware("pairlink"))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	h := handler.New(authSvc, graphSvc, partnerSvc, feedRepo, cfg.JWT.Secret)
	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
