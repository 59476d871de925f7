// api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"customeriq/api/database"
	"customeriq/api/engine"
	"customeriq/api/handlers"
	"customeriq/api/middleware"
	"customeriq/api/store"
)

func main() {
	// Load .env file at the very start
	if err := godotenv.Load(); err != nil {
		log.Info().Msgf("No .env file found or error loading .env: %v", err)
	}

	setupLogging()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Engine configuration (fails fast on bad tuning) ---
	cfg, err := engine.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Refusing to start with invalid engine configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Refusing to start with invalid engine configuration")
	}

	// --- Initialize PostgreSQL (dashboard accounts) ---
	dbClient, err := database.NewPostgresDB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL database")
	}
	defer dbClient.Close()

	// --- Optional ClickHouse durability sink ---
	var sink *store.EventSink
	if database.ClickHouseConfigured() {
		chClient, err := database.NewClickHouseDB()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize ClickHouse database")
		}
		defer chClient.Close()
		sink = store.NewEventSink(chClient)
	} else {
		log.Info().Msg("ClickHouse not configured, running without event durability")
	}

	// --- Event store bootstrap: CSV file, persisted log, or empty ---
	events, err := bootstrapEventStore(sink)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap event store")
	}

	// --- Engine components ---
	profiles := engine.NewProfileBuilder(time.Now)
	var scorer engine.Scorer = engine.NewLiveScorer(cfg, time.Now)
	if os.Getenv("ENGINE_SCORER") == "fallback" {
		scorer = engine.FallbackScorer{}
	}
	recommender := engine.NewRecommender(cfg, events, profiles, scorer)
	personas := engine.NewPersonaClassifier(cfg)
	estimator := engine.NewEstimator(cfg, time.Now)

	// --- Stores and handlers ---
	userStore := store.NewUserStore(dbClient.DB)
	authHandlers := handlers.NewAuthHandlers(userStore)
	trackHandlers := handlers.NewTrackHandlers(events, sink)
	insightsHandlers := handlers.NewInsightsHandlers(events, profiles, recommender, personas, estimator)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	api := r.Group("/api")
	{
		// Authentication endpoints (no authentication required)
		api.POST("/signup", authHandlers.Signup)
		api.POST("/login", authHandlers.Login)
		api.POST("/logout", authHandlers.Logout)
		api.GET("/healthz", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "events": events.Len()})
		})

		// Protected routes (require a valid JWT token or API key)
		protected := api.Group("/")
		protected.Use(middleware.AuthRequired())
		{
			protected.POST("/track", trackHandlers.TrackEvent)
			protected.POST("/track/batch", trackHandlers.TrackEventsBatch)

			protected.GET("/users/:id/recommendations", insightsHandlers.GetRecommendations)
			protected.GET("/users/:id/persona", insightsHandlers.GetPersona)
			protected.GET("/users/:id/predictions", insightsHandlers.GetPredictions)
			protected.GET("/users/:id/insights", insightsHandlers.GetInsights)
			protected.POST("/analyze/batch", insightsHandlers.BatchAnalyze)

			protected.GET("/profile", func(c *gin.Context) {
				userID := c.MustGet("user_id").(int)
				userEmail := c.MustGet("user_email").(string)

				c.JSON(http.StatusOK, gin.H{
					"message":    "Welcome to your profile!",
					"user_id":    userID,
					"user_email": userEmail,
					"ip_address": c.ClientIP(),
				})
			})
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", port).Msg("CustomerIQ API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

func setupLogging() {
	level, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if os.Getenv("GIN_MODE") != "release" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// bootstrapEventStore picks the event source in priority order: a CSV
// snapshot when EVENTS_CSV_PATH is set, the persisted ClickHouse log when a
// sink exists, an empty store otherwise.
func bootstrapEventStore(sink *store.EventSink) (*store.EventStore, error) {
	if path := os.Getenv("EVENTS_CSV_PATH"); path != "" {
		return store.LoadEventsCSV(path)
	}
	if sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sink.LoadEventStore(ctx)
	}
	log.Info().Msg("No event source configured, starting with an empty store")
	return store.NewEventStore(), nil
}
