package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridepulse/internal/config"
	"ridepulse/internal/handlers"
	"ridepulse/internal/middleware"
	"ridepulse/internal/repositories/mongodb"
	"ridepulse/internal/services"
	"ridepulse/pkg/cache"
	"ridepulse/pkg/database"
	"ridepulse/pkg/logger"
	"ridepulse/pkg/maps"
	"ridepulse/pkg/payment"
	"ridepulse/pkg/websocket"
	"ridepulse/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		appLogger.WithError(err).Fatal("Failed to ensure indexes")
	}
	cancelIndex()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}

	mapsProvider, err := maps.NewGoogleMapsProvider(cfg.Maps.GoogleMaps.APIKey)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize maps client")
	}

	var gateway payment.Gateway
	switch cfg.Payment.DefaultProvider {
	case "stripe":
		gateway = payment.NewStripeGateway(cfg.Payment.Stripe.SecretKey)
	default:
		gateway = payment.NewRazorpayGateway(cfg.Payment.Razorpay.KeyID, cfg.Payment.Razorpay.KeySecret)
	}

	// Repositories
	rideRepo := mongodb.NewRideRepository(db.Database, redisCache)
	captainRepo := mongodb.NewCaptainRepository(db.Database)
	statsRepo := mongodb.NewStatsRepository(db.Database)

	// Services. The hub and the domain services reference each other, so the
	// hub starts without a backend and gets one once the gateway exists.
	hub := websocket.NewHub(nil, appLogger)
	statsService := services.NewStatsService(statsRepo, appLogger)
	dispatcher := services.NewEventDispatcher(hub, appLogger, statsService)
	dispatchService := services.NewDispatchService(rideRepo, captainRepo, hub, appLogger)
	fareService := services.NewFareService()
	rideService := services.NewRideService(services.RideServiceDeps{
		Rides:      rideRepo,
		Captains:   captainRepo,
		Fares:      fareService,
		Maps:       mapsProvider,
		Dispatch:   dispatchService,
		Dispatcher: dispatcher,
		Presence:   hub,
		Gateway:    gateway,
		Currency:   cfg.Payment.Currency,
		Logger:     appLogger,
	})
	socketGateway := services.NewSocketGateway(captainRepo, dispatchService, appLogger)
	hub.SetBackend(socketGateway)

	go hub.Run()

	// Handlers
	rideHandler := handlers.NewRideHandler(rideService, appLogger)
	captainHandler := handlers.NewCaptainHandler(captainRepo, appLogger)
	statsHandler := handlers.NewStatsHandler(statsService, appLogger)
	wsHandler := websocket.NewHandler(hub, appLogger, websocket.UpgraderConfig{
		ReadBufferSize:    cfg.WebSocket.ReadBufferSize,
		WriteBufferSize:   cfg.WebSocket.WriteBufferSize,
		HandshakeTimeout:  cfg.WebSocket.HandshakeTimeout,
		EnableCompression: cfg.WebSocket.EnableCompression,
		AllowedOrigins:    cfg.WebSocket.AllowedOrigins,
	})

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupRideRoutes(v1, rideHandler, cfg.Security.JWTSecret)
		routes.SetupCaptainRoutes(v1, captainHandler, statsHandler, cfg.Security.JWTSecret)
	}

	router.GET("/ws", middleware.AuthRequired(cfg.Security.JWTSecret), wsHandler.HandleWebSocket)

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": cfg.App.Version,
		})
	})

	// Background sweep cancels rides that sat unmatched past the timeout.
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go runSweeper(sweepCtx, rideService, cfg.Dispatch.SweepInterval, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Server listening on port %d", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
}

func runSweeper(ctx context.Context, rides *services.RideService, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if _, err := rides.SweepStalePending(sweepCtx); err != nil {
				log.WithError(err).Error("Stale ride sweep failed")
			}
			cancel()
		}
	}
}
