package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/formalys/formalys-server/internal/api"
	"github.com/formalys/formalys-server/internal/config"
	"github.com/formalys/formalys-server/internal/notification"
	"github.com/formalys/formalys-server/internal/payment"
	"github.com/formalys/formalys-server/internal/repository"
	"github.com/formalys/formalys-server/internal/service"
)

func main() {
	// Load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create external adapters
	notifier := notification.NewSendGridDispatcher(
		cfg.Email.SendGridAPIKey,
		cfg.Email.FromAddress,
		cfg.Email.FromName,
		cfg.Email.ReplyTo,
	)
	gateway := payment.NewStripeGateway(cfg.Stripe.SecretKey)
	verifier := payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret)

	// Create service
	svc := service.NewDefaultService(repo, notifier, gateway,
		cfg.Auth.JWTSecret, cfg.Server.PublicBaseURL, cfg.Formality.DefaultFormalistEmail)

	// Create API handler
	handler := api.NewHandler(svc, verifier)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
