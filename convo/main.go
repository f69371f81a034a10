package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convo/agent"
	"convo/config"
	"convo/controllers"
	"convo/history"
	"convo/routes"
	"convo/services/llm"
	"convo/sources/cache"
	"convo/sources/psql"
	"convo/sources/psql/dao"
	"convo/sources/storage"
	"convo/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	userDAO := dao.NewUserDAO(db.DB)

	var rdb *redis.Client
	if cfg.HistoryBackend == history.BackendRedis {
		rdb, err = cache.NewClient(ctx, cfg)
		if err != nil {
			logging.ErrorLogger.Error("redis connection error", zap.Error(err))
			os.Exit(1)
		}
		defer rdb.Close()
	}

	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		logging.ErrorLogger.Error("minio connection error", zap.Error(err))
		os.Exit(1)
	}

	model := llm.NewClient(cfg.LLMURL, cfg.ModelName)
	ag, err := agent.New(model, nil, minioClient, cfg.MaxMessages)
	if err != nil {
		logging.ErrorLogger.Error("agent init error", zap.Error(err))
		os.Exit(1)
	}

	authCtrl := controllers.NewAuthController(userDAO, cfg)
	chatCtrl := controllers.NewChatController(cfg, ag, rdb)
	uploadCtrl := controllers.NewUploadController(minioClient)
	healthCtrl := controllers.NewHealthController()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Mount("/auth", routes.AuthRoutes(authCtrl))
	r.Mount("/ai", routes.AIRoutes(chatCtrl, uploadCtrl, cfg))

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}
	go func() {
		logging.AppLogger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.ErrorLogger.Error("server listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.ErrorLogger.Error("server shutdown error", zap.Error(err))
	}
	logging.AppLogger.Info("server shutdown complete")
}
