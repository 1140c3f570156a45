package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"telemed/config"
	_ "telemed/docs"
	"telemed/internal/repository"
	"telemed/internal/service"
	"telemed/internal/storage"
	"telemed/internal/transport/rest"
	"telemed/internal/transport/websocket"
	"telemed/pkg/database"
	"telemed/pkg/lock"
	"telemed/pkg/logger"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Telemed API
// @version 1.0
// @description API телемедицинской платформы: запись к врачам, доступность, видеоконсультации

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// .env не обязателен, конфигурация читается из окружения.
	_ = godotenv.Load()

	log, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal("Не удалось загрузить конфигурацию", zap.Error(err))
	}

	db, err := database.NewPostgresDB(cfg.Postgres)
	if err != nil {
		log.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer db.Close()

	log.Info("Запуск миграций базы данных")
	if err := database.RunMigrations(db, "./migrations", log); err != nil {
		log.Fatal("Ошибка при выполнении миграций", zap.Error(err))
	}
	log.Info("Миграции успешно выполнены")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}
	defer redisClient.Close()

	var fileStorage storage.FileStorage
	if cfg.S3.Endpoint != "" {
		s3Storage, err := storage.NewS3Storage(cfg.S3, log)
		if err != nil {
			log.Fatal("Не удалось инициализировать S3 хранилище", zap.Error(err))
		}
		fileStorage = s3Storage
		log.Info("S3 хранилище успешно инициализировано", zap.String("endpoint", cfg.S3.Endpoint))
	} else {
		log.Warn("S3 хранилище не настроено, загрузка документов будет недоступна")
	}

	repos := repository.NewRepositories(db)

	services := service.NewServices(service.Deps{
		Repos:       repos,
		Logger:      log,
		Config:      cfg,
		FileStorage: fileStorage,
		Locker:      lock.NewRedisDoctorLocker(redisClient, cfg.Redis.LockTTL),
		Clock:       service.NewSystemClock(),
	})

	signalingHub := websocket.NewSignalingHub(log, services)
	go signalingHub.Run()

	handler := rest.NewHandler(services, log, cfg, signalingHub)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	handler.InitRoutes(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderMB << 20,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка запуска сервера", zap.Error(err))
		}
	}()

	log.Info("Сервер запущен", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Выключение сервера...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Ошибка при остановке сервера", zap.Error(err))
	}

	log.Info("Сервер успешно остановлен")
}
