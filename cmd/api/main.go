package main

import (
	"context"
	"log"
	"os"

	_ "ebvision/api/swagger" // swagger docs
	"ebvision/internal/database"
	"ebvision/internal/handler"
	"ebvision/internal/middleware"
	"ebvision/internal/repository"
	"ebvision/internal/service"
	"ebvision/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           EB-Vision Opportunity Workflow API
// @version         2.0
// @description     Staged pipeline workflow engine for sales opportunities: stage transitions, risk/priority tracking and the action/document ledger.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	ctx := context.Background()
	pool, err := database.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("Connected to PostgreSQL successfully.")

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(pool)
	opportunityRepo := repository.NewOpportunityRepository(pool)
	stageRepo := repository.NewStageRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	ledgerRepo := repository.NewLedgerRepository(pool)
	paramsRepo := repository.NewParamsRepository(pool)

	requirementService := service.NewRequirementService(catalogRepo, ledgerRepo)
	catalogService := service.NewCatalogService(catalogRepo, stageRepo, txManager)
	opportunityService := service.NewOpportunityService(opportunityRepo, stageRepo, catalogRepo, ledgerRepo, catalogService, txManager)
	workflowService := service.NewWorkflowService(stageRepo, opportunityRepo, catalogRepo, ledgerRepo, paramsRepo, requirementService, txManager, wsHub)
	ledgerService := service.NewLedgerService(ledgerRepo, opportunityRepo, stageRepo, requirementService, wsHub)

	// Initialize Handlers
	opportunityHandler := handler.NewOpportunityHandler(opportunityService)
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	ledgerHandler := handler.NewLedgerHandler(ledgerService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	opportunityHandler.RegisterRoutes(router.Group(""))
	workflowHandler.RegisterRoutes(router.Group(""))
	catalogHandler.RegisterRoutes(router.Group(""))
	ledgerHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
