package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"escaperoom/internal/config"
	"escaperoom/internal/database"
	"escaperoom/internal/engine"
	"escaperoom/internal/handlers"
	"escaperoom/internal/repository"
	"escaperoom/internal/security"
	"escaperoom/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Seed bad words filter for the game editor
	if err := db.SeedBadWords(); err != nil {
		log.Printf("Warning: Failed to seed bad words filter: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	gameRepo := repository.NewGameRepository(db)
	resultRepo := repository.NewResultRepository(db)

	// Initialize services
	tokens := security.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
	authService := service.NewAuthService(userRepo, sessionRepo, tokens)
	catalogService := service.NewCatalogService(gameRepo, db)
	reportService := service.NewReportService(userRepo, resultRepo)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.NotifyFromEmail, cfg.NotifyFromName, cfg.NotifyToEmail)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	gameEngine := engine.New(sessionRepo, gameRepo, resultRepo, catalogService, reportService, emailService)

	// Initialize handlers
	loginLimiter := security.NewRateLimiter(10, time.Minute)
	middleware := handlers.NewMiddleware(tokens, loginLimiter, cfg.PlatformToken)
	hub := handlers.NewDisplayHub()
	authHandler := handlers.NewAuthHandler(authService)
	eventHandler := handlers.NewEventHandler(gameEngine, hub)
	displayHandler := handlers.NewDisplayHandler(gameEngine, tokens, hub, cfg.DisplayPageURL)

	// Setup routes
	mux := http.NewServeMux()

	// Account endpoints, rate limited by client IP
	mux.HandleFunc("POST /api/v1/register/staff", middleware.RateLimit(authHandler.RegisterStaff))
	mux.HandleFunc("POST /api/v1/login/staff", middleware.RateLimit(authHandler.LoginStaff))
	mux.HandleFunc("POST /api/v1/login/student", middleware.RateLimit(authHandler.LoginStudent))
	mux.HandleFunc("POST /api/v1/logout", middleware.RequireToken(authHandler.Logout))

	// Voice platform webhook
	mux.HandleFunc("POST /api/v1/events", middleware.RequirePlatformToken(middleware.RequireToken(eventHandler.HandleEvent)))

	// Companion display channel
	mux.HandleFunc("GET /display/ws", displayHandler.HandleWS)

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
}
