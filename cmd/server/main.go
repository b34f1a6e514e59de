package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cx-tal-miterani/booking-assistant/internal/auth"
	"github.com/cx-tal-miterani/booking-assistant/internal/checkout"
	"github.com/cx-tal-miterani/booking-assistant/internal/config"
	"github.com/cx-tal-miterani/booking-assistant/internal/conversation"
	"github.com/cx-tal-miterani/booking-assistant/internal/gateway"
	"github.com/cx-tal-miterani/booking-assistant/internal/handlers"
	"github.com/cx-tal-miterani/booking-assistant/internal/interrupt"
	"github.com/cx-tal-miterani/booking-assistant/internal/kvstore"
	"github.com/cx-tal-miterani/booking-assistant/internal/payment"
	"github.com/cx-tal-miterani/booking-assistant/internal/repository"
	"github.com/cx-tal-miterani/booking-assistant/internal/router"
	"github.com/cx-tal-miterani/booking-assistant/internal/service"
	"github.com/cx-tal-miterani/booking-assistant/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.temporal.io/sdk/client"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Create Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort: cfg.TemporalHost,
	})
	if err != nil {
		log.Fatalf("Failed to create Temporal client: %v", err)
	}
	defer temporalClient.Close()

	// Conversation records are optional; the workflow stays the source of truth.
	var store service.ConversationStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		repo := repository.NewRepository(pool)
		if err := repo.Init(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		store = repo
	}

	// Payment records survive reloads in the configured key-value store
	var kv kvstore.Store = kvstore.NewMemory()
	if cfg.StoreBackend == config.StoreRedis {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()

		redisStore := kvstore.NewRedis(rdb, cfg.StoreTTL)
		if err := redisStore.Ping(ctx); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		kv = redisStore
	}
	records := payment.NewRecordStore(kv, cfg.StorePrefix)

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	authenticator := auth.NewAuthenticator(cfg.JWTSecret, logger)
	api := gateway.NewClient(cfg.PaymentAPIBaseURL, &http.Client{Timeout: 30 * time.Second}, nil)
	bridge := checkout.NewBridge(hub, cfg.CheckoutTimeout, logger)
	engine := conversation.NewEngine(temporalClient, cfg.TaskQueue, logger)
	submitter := interrupt.NewSubmitter(authenticator, hub, logger)

	payments := payment.NewRegistry(service.NewPaymentFactory(service.PaymentDeps{
		Conversations:   engine,
		Submitter:       submitter,
		API:             api,
		Checkout:        bridge,
		Records:         records,
		Notifier:        hub,
		Views:           hub,
		Logger:          logger,
		ResumeTimeout:   cfg.ResumeTimeout,
		ViewSwitchDelay: cfg.ViewSwitchDelay,
		ThemeColor:      cfg.CheckoutTheme,
	}))

	// Initialize services
	assistant := service.NewAssistantService(service.Deps{
		Engine:    engine,
		Store:     store,
		Identity:  authenticator,
		Submitter: submitter,
		Payments:  payments,
		Checkout:  bridge,
		Publisher: hub,
		Logger:    logger,
	})

	h := handlers.NewHandler(assistant, hub)
	r := router.SetupRouter(h, authenticator.Middleware)

	// Create HTTP server. WriteTimeout stays zero for long-lived websockets.
	srv := &http.Server{
		Addr:        ":" + cfg.APIPort,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("API Server starting on port %s", cfg.APIPort)
		log.Printf("Connected to Temporal server at %s", cfg.TemporalHost)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	stop()

	log.Println("Server stopped")
}
