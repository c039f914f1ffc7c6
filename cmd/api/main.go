package main

import (
	"fmt"
	"net/http"
	"os"

	"wealthmachine/internal/config"
	"wealthmachine/internal/database"
	"wealthmachine/internal/handlers"
	"wealthmachine/internal/ledger"
	"wealthmachine/internal/logger"
	"wealthmachine/internal/middleware"
	"wealthmachine/internal/services"
	"wealthmachine/internal/validator"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "wealthmachine/internal/docs" // Import swagger docs
)

// @title           Wealth Machine API
// @version         1.0
// @description     Wealth Machine is a personal finance backend for running shared money machines: wallets hold real money, stores and funds budget it, and every movement is an atomic transaction.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Register request validators
	validator.Register()

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	bookkeeper := ledger.New(db)
	userService := services.NewUserService(db)
	machineService := services.NewMachineService(db)
	fundService := services.NewFundService(db, machineService)
	storeService := services.NewStoreService(db, machineService, fundService)
	walletService := services.NewWalletService(db, machineService)
	transactionService := services.NewTransactionService(db, bookkeeper)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	machineHandler := handlers.NewMachineHandler(machineService)
	storeHandler := handlers.NewStoreHandler(storeService)
	fundHandler := handlers.NewFundHandler(fundService)
	walletHandler := handlers.NewWalletHandler(walletService)
	transactionHandler := handlers.NewTransactionHandler(transactionService, machineService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Machine routes
	machines := protected.Group("/machines")
	machines.GET("", machineHandler.List)
	machines.POST("", machineHandler.Create)
	machines.GET("/:machineId", machineHandler.Get)
	machines.PUT("/:machineId", machineHandler.Update)
	machines.DELETE("/:machineId", machineHandler.Delete)
	machines.POST("/:machineId/stores-funds", machineHandler.SaveStoresFunds)

	// Store routes
	stores := machines.Group("/:machineId/stores")
	stores.GET("", storeHandler.List)
	stores.POST("", storeHandler.Create)
	stores.GET("/:id", storeHandler.Get)
	stores.PUT("/:id", storeHandler.Update)
	stores.DELETE("/:id", storeHandler.Delete)
	stores.POST("/:id/funds", storeHandler.CreateFund)

	// Fund routes
	funds := machines.Group("/:machineId/funds")
	funds.GET("", fundHandler.List)
	funds.POST("", fundHandler.Create)
	funds.GET("/:id", fundHandler.Get)
	funds.PUT("/:id", fundHandler.Update)
	funds.DELETE("/:id", fundHandler.Delete)
	funds.PUT("/:id/balance", fundHandler.UpdateBalance)
	funds.GET("/:id/transactions", fundHandler.GetTransactions)

	// Wallet routes
	wallets := machines.Group("/:machineId/wallets")
	wallets.GET("", walletHandler.List)
	wallets.POST("", walletHandler.Create)
	wallets.GET("/:id", walletHandler.Get)
	wallets.PUT("/:id", walletHandler.Update)
	wallets.DELETE("/:id", walletHandler.Delete)
	wallets.PUT("/:id/balance", walletHandler.UpdateBalance)
	wallets.GET("/:id/transactions", walletHandler.GetTransactions)

	// Transaction routes
	transactions := machines.Group("/:machineId/transactions")
	transactions.GET("", transactionHandler.List)
	transactions.POST("", transactionHandler.Create)
	transactions.POST("/allocate", transactionHandler.Allocate)
	transactions.GET("/report", transactionHandler.Report)
	transactions.GET("/:id", transactionHandler.Get)
	transactions.PUT("/:id", transactionHandler.Update)
	transactions.DELETE("/:id", transactionHandler.Delete)

	log.Infof("Starting Wealth Machine backend server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
