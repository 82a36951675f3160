package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/workforce-api/internal/blob"
	"github.com/yukikurage/workforce-api/internal/config"
	"github.com/yukikurage/workforce-api/internal/constants"
	"github.com/yukikurage/workforce-api/internal/database"
	"github.com/yukikurage/workforce-api/internal/handlers"
	"github.com/yukikurage/workforce-api/internal/identity"
	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/middleware"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/scheduler"
	"github.com/yukikurage/workforce-api/internal/services"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	db := database.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Metrics())

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10,              // Redis pool size
		"tcp",           // network type
		cfg.RedisAddr(), // Redis address from config
		"",              // username (empty for default user)
		"",              // password (empty = no password)
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatal("Failed to create Redis store", zap.Error(err))
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	lk := newLocker(cfg, log)
	blobs := newBlobStore(ctx, cfg, log)
	idp := newIdentityProvider(cfg, log)

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	logRepo := repository.NewWorkLogRepository(db)

	worklogs := services.NewWorkLogService(userRepo, taskRepo, logRepo, lk, log)
	assignments := services.NewAssignmentManager(userRepo, taskRepo, lk, log)
	deactivator := services.NewDeactivator(userRepo, projectRepo, taskRepo, worklogs, idp, blobs, lk, log)
	ids := services.NewStringIDGenerator(projectRepo, taskRepo, lk)

	h := handlers.Handlers{
		Auth:     handlers.NewAuthHandler(services.NewAuthService(userRepo, idp, log), []byte(cfg.TokenSecret), cfg.TokenTTL, log),
		Users:    handlers.NewUserHandler(services.NewUserService(userRepo, assignments, deactivator, idp, blobs, lk, log), log),
		Projects: handlers.NewProjectHandler(services.NewProjectService(projectRepo, taskRepo, userRepo, ids, deactivator, aiService, lk, log), log),
		Tasks:    handlers.NewTaskHandler(services.NewTaskService(taskRepo, projectRepo, userRepo, assignments, deactivator, ids, lk, log), log),
		WorkLogs: handlers.NewWorkLogHandler(worklogs, log),
		Admin:    handlers.NewAdminHandler(assignments, db, log),
	}
	handlers.RegisterRoutes(r, h, userRepo, []byte(cfg.TokenSecret))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reconciler := scheduler.NewScheduler(assignments, cfg.ReconcileInterval, log)
	reconciler.Start(ctx)
	defer reconciler.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}
}

func newLocker(cfg *config.Config, log *logger.Logger) locker.Locker {
	if cfg.LockDriver != "redis" {
		log.Info("Using in-process lock service")
		return locker.NewMemoryLocker()
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr()})
	log.Info("Using redis lock service", zap.String("addr", cfg.RedisAddr()), zap.Duration("ttl", cfg.LockTTL))
	return locker.NewRedisLocker(client, cfg.LockTTL, log)
}

func newBlobStore(ctx context.Context, cfg *config.Config, log *logger.Logger) blob.Store {
	if cfg.BlobDriver != "s3" {
		log.Warn("Face photos are kept in memory and lost on restart")
		return blob.NewMemoryStore()
	}

	store, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:          cfg.BlobS3Bucket,
		Region:          cfg.BlobS3Region,
		Endpoint:        cfg.BlobS3Endpoint,
		PathStyle:       cfg.BlobS3PathStyle,
		AccessKeyID:     cfg.BlobS3AccessKey,
		SecretAccessKey: cfg.BlobS3SecretKey,
	})
	if err != nil {
		log.Fatal("Failed to create S3 blob store", zap.Error(err))
	}
	return store
}

func newIdentityProvider(cfg *config.Config, log *logger.Logger) identity.Provider {
	if cfg.FaceAPIURL == "" {
		log.Warn("Face recognition disabled: FACE_API_URL is not set")
		return identity.Noop{}
	}
	return identity.NewLuxandClient(cfg.FaceAPIURL, cfg.FaceAPIKey, cfg.FaceAPIHost)
}
