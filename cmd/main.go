package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelBookingHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/cancel_booking"
	completeBookingHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/complete_booking"
	confirmBookingHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/confirm_booking"
	confirmRulesHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/confirm_rules"
	createBookingHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/create_booking"
	getBookingHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/get_booking"
	getPerformerBookingsHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/get_performer_bookings"
	getUserBookingsHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/get_user_bookings"
	holdBookingHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/hold_booking"
	markNoShowHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/mark_no_show"
	paymentWebhookHandler "github.com/kir4ng/PCS-BookingService/internal/api/handlers/payment_webhook"
	"github.com/kir4ng/PCS-BookingService/internal/api/middleware"
	"github.com/kir4ng/PCS-BookingService/internal/config"
	"github.com/kir4ng/PCS-BookingService/internal/domain"
	bookingRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/booking"
	idempotencyRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/idempotency"
	paymentRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/payment"
	webhookEventRepo "github.com/kir4ng/PCS-BookingService/internal/infra/storage/webhookevent"
	"github.com/kir4ng/PCS-BookingService/internal/providers/cardpay"
	"github.com/kir4ng/PCS-BookingService/internal/providers/cryptopay"
	bookingsService "github.com/kir4ng/PCS-BookingService/internal/service/bookings"
	reconcilerService "github.com/kir4ng/PCS-BookingService/internal/service/reconciler"
	refundsService "github.com/kir4ng/PCS-BookingService/internal/service/refunds"
	processWebhookUC "github.com/kir4ng/PCS-BookingService/internal/usecase/process_webhook"
	"github.com/kir4ng/PCS-BookingService/internal/worker/holdsweeper"
	"github.com/kir4ng/PCS-BookingService/pkg/dbmetrics"
	"github.com/kir4ng/PCS-BookingService/pkg/logger"
	"github.com/kir4ng/PCS-BookingService/pkg/metrics"
	"github.com/kir4ng/PCS-BookingService/pkg/simpletxmanager"
	"github.com/kir4ng/PCS-BookingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting PCS-BookingService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	var wrappedDB *dbmetrics.DB
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	lockTTL := time.Duration(cfg.Idempotency.LockTTLSeconds) * time.Second
	replayTTL := time.Duration(cfg.Idempotency.ReplayTTLDays) * 24 * time.Hour

	// Инициализируем репозитории (с метриками или без)
	var (
		bookingRepository      *bookingRepo.Repository
		paymentRepository      *paymentRepo.Repository
		webhookEventRepository *webhookEventRepo.Repository
		lockRepository         *idempotencyRepo.LockRepository
		replayRepository       *idempotencyRepo.ReplayRepository
		txMgr                  bookingsService.TransactionManager
	)

	if cfg.Metrics.Enabled {
		wrappedDB = dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		bookingRepository = bookingRepo.NewRepository(wrappedDB)
		paymentRepository = paymentRepo.NewRepository(wrappedDB)
		webhookEventRepository = webhookEventRepo.NewRepository(wrappedDB)
		lockRepository = idempotencyRepo.NewLockRepository(wrappedDB, lockTTL)
		replayRepository = idempotencyRepo.NewReplayRepository(wrappedDB, replayTTL)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		bookingRepository = bookingRepo.NewRepository(db)
		paymentRepository = paymentRepo.NewRepository(db)
		webhookEventRepository = webhookEventRepo.NewRepository(db)
		lockRepository = idempotencyRepo.NewLockRepository(db, lockTTL)
		replayRepository = idempotencyRepo.NewReplayRepository(db, replayTTL)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем клиентов платежных провайдеров
	cardpayClient := cardpay.NewClient(cfg.Providers.Cardpay.SecretKey, cfg.Providers.Cardpay.CheckoutBaseURL, log)
	cryptopayClient := cryptopay.NewClient(cfg.Providers.Cryptopay.APIToken, cfg.Providers.Cryptopay.CheckoutBaseURL, log)

	// Инициализируем сервисы
	refundEngine := refundsService.NewEngine(
		bookingRepository,
		paymentRepository,
		map[domain.Provider]refundsService.RefundDispatcher{
			domain.ProviderCardpay:   cardpayClient,
			domain.ProviderCryptopay: cryptopayClient,
		},
		log,
	)

	bookingSvc := bookingsService.NewService(
		bookingRepository,
		paymentRepository,
		map[domain.Provider]bookingsService.CheckoutLinker{
			domain.ProviderCardpay:   cardpayClient,
			domain.ProviderCryptopay: cryptopayClient,
		},
		refundEngine,
		txMgr,
		log,
		cfg.Booking.DefaultHoldMinutes,
	)

	reconciler := reconcilerService.NewService(
		bookingRepository,
		paymentRepository,
		txMgr,
		log,
	)

	// Интерфейсные переменные для метрик: остаются nil при выключенных метриках
	var webhookMetrics processWebhookUC.Metrics
	var sweeperMetrics holdsweeper.Metrics
	if cfg.Metrics.Enabled {
		webhookMetrics = metricsCollector
		sweeperMetrics = metricsCollector
	}

	// Инициализируем use cases обработки вебхуков (по адаптеру на провайдера)
	cardpayWebhookUseCase := processWebhookUC.NewUseCase(
		cardpay.NewWebhookAdapter(cfg.Providers.Cardpay.SecretKey),
		lockRepository,
		replayRepository,
		webhookEventRepository,
		reconciler,
		webhookMetrics,
		log,
	)
	cryptopayWebhookUseCase := processWebhookUC.NewUseCase(
		cryptopay.NewWebhookAdapter(cfg.Providers.Cryptopay.APIToken),
		lockRepository,
		replayRepository,
		webhookEventRepository,
		reconciler,
		webhookMetrics,
		log,
	)

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(bookingSvc, log)
	holdBooking := holdBookingHandler.NewHandler(bookingSvc, log)
	confirmRules := confirmRulesHandler.NewHandler(bookingSvc, log)
	confirmBooking := confirmBookingHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)
	completeBooking := completeBookingHandler.NewHandler(bookingSvc, log)
	markNoShow := markNoShowHandler.NewHandler(bookingSvc, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(bookingSvc, log)
	getPerformerBookings := getPerformerBookingsHandler.NewHandler(bookingSvc, log)
	cardpayWebhook := paymentWebhookHandler.NewHandler(domain.ProviderCardpay, cardpayWebhookUseCase, log)
	cryptopayWebhook := paymentWebhookHandler.NewHandler(domain.ProviderCryptopay, cryptopayWebhookUseCase, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		log.Info("HTTP metrics middleware enabled")
	}

	// Metrics endpoint (публичный, без аутентификации)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// ============================================================
	// WEBHOOK ROUTES (аутентификация по подписи/токену провайдера)
	// ============================================================

	r.HandleFunc("/webhooks/cardpay", cardpayWebhook.Handle).Methods(http.MethodPost)
	r.HandleFunc("/webhooks/cryptopay", cryptopayWebhook.Handle).Methods(http.MethodPost)

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Жизненный цикл бронирования ---
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/bookings/{bookingId}/hold", holdBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}/confirm-rules", confirmRules.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}/confirm", confirmBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}/complete", completeBooking.Handle).Methods(http.MethodPost)
	protected.HandleFunc("/bookings/{bookingId}/no-show", markNoShow.Handle).Methods(http.MethodPost)

	// --- Списки ---
	protected.HandleFunc("/users/{userId}/bookings", getUserBookings.Handle).Methods(http.MethodGet)
	protected.HandleFunc("/performers/{performerId}/bookings", getPerformerBookings.Handle).Methods(http.MethodGet)

	// Запускаем sweeper просроченных холдов
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	sweeper := holdsweeper.New(
		bookingRepository,
		[]holdsweeper.KeyPurger{lockRepository, replayRepository},
		time.Duration(cfg.Booking.SweepIntervalSeconds)*time.Second,
		sweeperMetrics,
		log,
	)
	go sweeper.Run(sweeperCtx)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем sweeper
	stopSweeper()

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
