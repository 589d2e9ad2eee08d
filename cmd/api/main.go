package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"loan-management-api/config"
	"loan-management-api/controllers"
	"loan-management-api/middleware"
	"loan-management-api/models"
	"loan-management-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logging and database
	config.InitLogging()
	config.InitDB()

	// Optional schema migration for fresh environments
	if os.Getenv("AUTO_MIGRATE") == "true" {
		err := config.DB.AutoMigrate(
			&models.Role{},
			&models.User{},
			&models.LoanApplication{},
			&models.ReviewDecision{},
			&models.ApplicationStatusHistory{},
			&models.ReactivationRequest{},
			&models.Notification{},
		)
		if err != nil {
			log.Fatal("Failed to migrate schema:", err)
		}
	}

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Wire workflow services and routes
	controllers.InitServices(config.DB)
	routes.SetupRoutes(router)

	// Start the deadline sweeper in the background
	sweepInterval := 5 * time.Minute
	if raw := os.Getenv("SWEEP_INTERVAL_MINUTES"); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			sweepInterval = time.Duration(minutes) * time.Minute
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go controllers.Sweeper().Run(ctx, sweepInterval)

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Printf("Deadline sweeper interval: %s", sweepInterval)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
