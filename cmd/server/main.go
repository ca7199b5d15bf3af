package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"clearquest/internal/cache"
	"clearquest/internal/config"
	"clearquest/internal/logging"
	"clearquest/internal/repository"
	"clearquest/internal/service"
	"clearquest/internal/transport/rest"
	"clearquest/internal/transport/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.LogLevel)

	aiConfig := config.LoadAIExtractorConfig()
	if aiConfig.Enabled() {
		logrus.WithField("model", aiConfig.Model).Info("AI fact extractor configured")
	} else {
		logrus.Info("AI fact extractor not configured, keyword extractor only")
	}

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logrus.WithError(err).Fatal("failed to ping MongoDB")
	}
	logrus.Info("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDatabase)

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logrus.WithError(err).Fatal("failed to ping Redis")
	}
	logrus.Info("connected to Redis")

	// WebSocket hub for admin monitors
	wsHub := ws.NewHub()
	logrus.Info("admin monitor hub started")

	// Repositories
	sessionRepo := repository.NewSessionRepo(db)
	factModelRepo := repository.NewFactModelRepo(db)
	packRepo := repository.NewPackRepo(db)
	configRepo := repository.NewConfigRepo(db)
	traceRepo := repository.NewTraceRepo(db)

	// Caches
	sessionCache := cache.NewSessionCache(rdb)
	configCache := cache.NewConfigCache(rdb)

	// Services
	authSvc := service.NewAuthService(cfg)
	registry := service.NewRegistry(factModelRepo)
	transcriptSvc := service.NewTranscript(sessionRepo, sessionCache)
	sessionsSvc := service.NewSessions(sessionRepo, sessionCache, packRepo, configRepo, configCache, registry, transcriptSvc, traceRepo, aiConfig)
	selfTest := service.NewSelfTest(mongoClient, rdb, configRepo)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	sessionsSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService: authSvc,
		Sessions:    sessionsSvc,
		Transcript:  transcriptSvc,
		Registry:    registry,
		SelfTest:    selfTest,
		Packs:       packRepo,
		Configs:     configRepo,
		Traces:      traceRepo,
		ConfigCache: configCache,
		WSHub:       wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logrus.WithField("port", cfg.HTTPPort).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("ListenAndServe")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Fatal("server forced to shutdown")
	}

	logrus.Info("server exited")
}
