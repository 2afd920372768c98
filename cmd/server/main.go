package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"chirper/internal/auth"
	"chirper/internal/config"
	apphttp "chirper/internal/http"
	"chirper/internal/identity"
	"chirper/internal/live"
	"chirper/internal/ratelimit"
	"chirper/internal/repository/sqlite"
	"chirper/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	postRepo := sqlite.NewPostRepository(db)
	userRepo := sqlite.NewUserRepository(db)

	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	limiter := buildLimiter(ctx, cfg, logger)
	avatars := buildAvatarStore(ctx, cfg, logger)

	directory := identity.NewDirectory(userRepo)
	accounts := auth.NewService(userRepo, avatars)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)

	hub := live.NewHub(logger)

	postService := service.NewPostService(postRepo, directory, limiter, hub)
	profileService := service.NewProfileService(userRepo)

	pages, err := apphttp.NewPages(postService, profileService, accounts)
	if err != nil {
		logger.Fatalf("setup pages: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(postService, profileService, accounts, tokens, hub, pages)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	hub.Shutdown()

	logger.Info("bye")
}

func buildLimiter(ctx context.Context, cfg config.Config, logger *logrus.Logger) ratelimit.Limiter {
	if cfg.RateLimit.RedisAddr == "" {
		logger.Warn("no redis configured, rate limits are per-instance")
		mem := ratelimit.NewMemoryLimiter(cfg.RateLimit.Limit, cfg.Window())
		mem.StartJanitor(ctx)
		return mem
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	logger.Infof("rate limiting via redis at %s (%d per %s)", cfg.RateLimit.RedisAddr, cfg.RateLimit.Limit, cfg.Window())
	return ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Limit, cfg.Window(), ratelimit.WithStats(true))
}

func buildAvatarStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) identity.AvatarStore {
	if cfg.Avatar.Bucket == "" {
		logger.Info("no avatar bucket configured, using generated avatars")
		return nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Avatar.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Fatalf("load aws config: %v", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Avatar.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Avatar.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("storing avatars in s3 bucket %s (region %s)", cfg.Avatar.Bucket, cfg.Avatar.Region)
	return identity.NewS3AvatarStore(client, cfg.Avatar.Bucket, cfg.Avatar.KeyPrefix, cfg.Avatar.Region, cfg.Avatar.Endpoint)
}
