package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"ms-reservation/internal/analytics"
	analytics_api "ms-reservation/internal/analytics/api"
	catalogdb "ms-reservation/internal/catalog/db"
	catalog "ms-reservation/internal/catalog/service"
	"ms-reservation/internal/clock"
	"ms-reservation/internal/config"
	"ms-reservation/internal/kafka"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/monitor"
	"ms-reservation/internal/reservation"
	"ms-reservation/internal/reservation/ledger"
	"ms-reservation/internal/reservation/reservation_api"
	"ms-reservation/internal/reservation/sweeper"
	"ms-reservation/internal/sse"
	qr "ms-reservation/internal/tickets/qr_generator"
	"ms-reservation/internal/tickets/ticket_api"
	"ms-reservation/internal/utils"
)

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Reservation Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.NewSystem()

	bunDB := openDatabase(ctx, cfg.Database, log)
	defer bunDB.Close()

	availabilityCache, redisClient := openCache(ctx, cfg, clk, log)
	if redisClient != nil {
		defer redisClient.Close()
	}

	catalogService := catalog.NewCatalogService(&catalogdb.DB{Bun: bunDB})
	holdLedger := ledger.New(bunDB, clk, ledger.WithHoldTTL(cfg.Reservation.HoldTTL))
	emitter := sse.NewHoldEventEmitter()
	notifiers := reservation.Notifiers{emitter}

	if cfg.Kafka.Enabled {
		log.Info("KAFKA", fmt.Sprintf("Using Kafka brokers %v", cfg.Kafka.Brokers))
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, kafka.TopicNames(cfg.Kafka.Topics), log); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topics, log)
		defer producer.Close()
		notifiers = append(notifiers, producer)

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.CatalogEvents, cfg.Kafka.GroupID, log)
		defer consumer.Close()
		go consumer.Start(ctx, catalogService.UpsertEvent)
	} else {
		log.Info("KAFKA", "Kafka disabled, hold events are only streamed over SSE")
	}

	engine := reservation.NewEngine(catalogService, holdLedger, availabilityCache, clk, log,
		reservation.WithCancellationWindow(cfg.Reservation.CancellationWindow),
		reservation.WithNotifier(notifiers),
	)

	expirySweeper := sweeper.New(holdLedger, availabilityCache, notifiers, clk, log,
		cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatchSize)
	go expirySweeper.Start(ctx)

	mon := monitor.New(log)
	reservationHandler := reservation_api.NewHandler(engine, catalogService, emitter, log)
	ticketHandler := ticket_api.NewHandler(engine, qr.NewQRGenerator(cfg.QR.SecretKey), clk, log)
	analyticsHandler := analytics_api.NewHandler(analytics.NewService(catalogService, analytics.NewDB(bunDB)), log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(mon.Middleware)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"message":   "Ticket reservation service",
			"status":    "running",
			"endpoints": []string{
				"GET /api/events",
				"GET /api/events/{eventId}/availability",
				"POST /api/tickets/reserve",
				"POST /api/tickets/confirm/{holdId}",
				"POST /api/tickets/cancel/{holdId}",
				"GET /api/users/{userId}/tickets",
				"GET /health",
			},
		})
	})
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"metrics": mon.Metrics(),
		})
	})

	reservationHandler.RegisterRoutes(r)
	ticketHandler.RegisterRoutes(r)
	analyticsHandler.RegisterRoutes(r)
	log.Info("ROUTER", "Event, ticket and sales routes registered under /api")

	// WriteTimeout stays unset so SSE streams are not cut off. Request
	// contexts derive from ctx so open streams end on shutdown.
	server := &http.Server{
		Addr:        cfg.Server.Port,
		Handler:     r,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Reservation Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Reservation Service shutdown complete")
	}
}
