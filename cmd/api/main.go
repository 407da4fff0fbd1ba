package main

import (
	_ "backend/api/swagger" // swagger docs
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Batch Inventory & Fulfillment API
// @version         1.0
// @description     Batch-level inventory ledger with FIFO reservations, delivery challans and landed-cost invoicing.
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

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Repositories
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	productRepo := repository.NewProductRepository(db)
	containerRepo := repository.NewContainerRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	ledgerRepo := repository.NewInventoryTxRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	orderRepo := repository.NewSalesOrderRepository(db)
	challanRepo := repository.NewChallanRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	returnRepo := repository.NewReturnRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)

	// Services
	userService := service.NewUserService(userRepo)
	auditService := service.NewAuditService(db)
	productService := service.NewProductService(productRepo, batchRepo, auditRepo, txManager)
	containerService := service.NewContainerService(containerRepo, txManager)
	batchService := service.NewBatchService(batchRepo, productRepo, ledgerRepo, challanRepo, containerRepo, auditRepo, txManager, wsHub)
	customerService := service.NewCustomerService(customerRepo, auditRepo, txManager)
	orderService := service.NewOrderService(orderRepo, batchRepo, reservationRepo, requirementRepo, customerRepo, productRepo, sequenceRepo, auditRepo, txManager, wsHub)
	challanService := service.NewChallanService(challanRepo, orderRepo, batchRepo, reservationRepo, ledgerRepo, sequenceRepo, auditRepo, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, challanRepo, orderRepo, batchRepo, sequenceRepo, auditRepo, txManager)
	returnService := service.NewReturnService(returnRepo, challanRepo, batchRepo, ledgerRepo, reservationRepo, orderRepo, sequenceRepo, auditRepo, txManager, wsHub)
	requirementService := service.NewRequirementService(requirementRepo, auditRepo, txManager)

	// Handlers
	userHandler := handler.NewUserHandler(userService)
	auditHandler := handler.NewAuditHandler(auditService)
	productHandler := handler.NewProductHandler(productService)
	batchHandler := handler.NewBatchHandler(batchService, containerService)
	customerHandler := handler.NewCustomerHandler(customerService)
	orderHandler := handler.NewOrderHandler(orderService)
	challanHandler := handler.NewChallanHandler(challanService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	returnHandler := handler.NewReturnHandler(returnService)
	requirementHandler := handler.NewRequirementHandler(requirementService)

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
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	productHandler.RegisterRoutes(root)
	batchHandler.RegisterRoutes(root)
	customerHandler.RegisterRoutes(root)
	orderHandler.RegisterRoutes(root)
	challanHandler.RegisterRoutes(root)
	invoiceHandler.RegisterRoutes(root)
	returnHandler.RegisterRoutes(root)
	requirementHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
