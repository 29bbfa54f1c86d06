package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/openclob/venue/internal/auth"
	"github.com/openclob/venue/internal/database"
	"github.com/openclob/venue/internal/events"
	"github.com/openclob/venue/internal/orders"
	"github.com/openclob/venue/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// newPublisher picks the event publisher: Kafka when KAFKA_BROKERS is set,
// otherwise the log-backed publisher.
func newPublisher() events.Publisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return events.NewLogPublisher(zlog.Logger)
	}
	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "venue-events"
	}
	return events.NewKafkaPublisher(strings.Split(brokers, ","), topic)
}

// main initializes and runs the matching venue API server with graceful
// shutdown support. It sets up the database, the in-memory registry, the
// event publisher and all API routes.
func main() {
	// Initialize database
	db, err := database.NewDatabase()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}
	if err := database.SeedReferenceData(db); err != nil {
		zlog.Fatal().Err(err).Msg("Failed to seed reference data")
	}

	// Load reference data into the in-memory registry
	registry, err := database.LoadRegistry(db)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load registry")
	}

	publisher := newPublisher()
	defer publisher.Close()

	// Initialize router
	router := gin.Default()

	// Initialize services and handlers
	authService := auth.NewService("venue-secret-key")
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials, bound to the first seeded broker
	authService.RegisterBrokerCredentials(auth.TestAPIKey, auth.TestAPISecret, 1)

	ordersService := orders.NewService(db, registry, publisher)
	ordersHandlers := orders.NewGinHandlers(ordersService)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, authHandlers, ordersHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Order routes: Protected by JWT authentication
// - Internal routes: Protected by internal network authentication
func setupRoutes(
	router *gin.Engine,
	authHandlers *auth.GinHandlers,
	ordersHandlers *orders.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Order routes
		orderGroup := v1.Group("/orders")
		orderGroup.Use(middleware.JWTAuth())
		{
			orderGroup.POST("", ordersHandlers.CreateOrderHandler())
			orderGroup.PUT("/:order_id", ordersHandlers.UpdateOrderHandler())
			orderGroup.DELETE("/:order_id", ordersHandlers.DeleteOrderHandler())
			orderGroup.GET("/:order_id", ordersHandlers.GetOrderStatusHandler())
		}

		// Internal routes (should be protected by internal network)
		internal := v1.Group("/internal")
		internal.Use(middleware.InternalAuth())
		{
			internal.POST("/matching-state/:security_id", ordersHandlers.ChangeMatchingStateHandler())
		}
	}
}
