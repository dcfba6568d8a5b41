package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m-orlov/freelance-market/internal/config"
	"github.com/m-orlov/freelance-market/internal/db"
	httpHandlers "github.com/m-orlov/freelance-market/internal/http/handlers"
	httpRouter "github.com/m-orlov/freelance-market/internal/http/router"
	"github.com/m-orlov/freelance-market/internal/logger"
	"github.com/m-orlov/freelance-market/internal/repository"
	"github.com/m-orlov/freelance-market/internal/service"
	"github.com/m-orlov/freelance-market/internal/storage"
	"github.com/m-orlov/freelance-market/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Инициализируем вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	evidenceStorage, err := storage.NewEvidenceStorage(cfg.EvidenceStorageDir, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	walletRepo := repository.NewWalletRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	disputeRepo := repository.NewDisputeRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	go hub.Run()

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo, hub)

	authService := service.NewAuthService(userRepo, tokenManager, cfg.WelcomeBonusUSDT)
	walletService := service.NewWalletService(walletRepo)
	projectService := service.NewProjectService(projectRepo)
	bidService := service.NewBidService(bidRepo, projectRepo, notificationService, cfg.BidAutoAcceptRatio)
	paymentService := service.NewPaymentService(paymentRepo, projectRepo, notificationService)
	disputeService := service.NewDisputeService(disputeRepo, projectRepo, paymentRepo, notificationService)
	reviewService := service.NewReviewService(reviewRepo, projectRepo)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	projectHandler := httpHandlers.NewProjectHandler(projectService)
	bidHandler := httpHandlers.NewBidHandler(bidService)
	walletHandler := httpHandlers.NewWalletHandler(walletService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	disputeHandler := httpHandlers.NewDisputeHandler(disputeService, evidenceStorage)
	reviewHandler := httpHandlers.NewReviewHandler(reviewService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, projectHandler, bidHandler, walletHandler, paymentHandler, disputeHandler, reviewHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
