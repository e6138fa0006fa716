package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/premstore/premstore-api/config"
	"github.com/premstore/premstore-api/controllers"
	"github.com/premstore/premstore-api/middleware"
	"github.com/premstore/premstore-api/models"
	"github.com/premstore/premstore-api/services"
)

func main() {
	log.Println("Starting PremStore API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto-migrate database models
	db := config.GetDB()
	err = db.AutoMigrate(
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.AccountStock{},
		&models.WhatsAppLog{},
		&models.AdminUser{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed successfully")

	// Seed the admin account on first boot
	if err := seedAdminUser(db, cfg); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// Initialize external service adapters
	services.InitWhatsAppService(cfg)
	services.InitPaymentService(cfg)
	if _, err := services.InitS3Service(); err != nil {
		log.Fatalf("Failed to initialize S3 service: %v", err)
	}

	// Initialize Gin router
	router := gin.Default()
	router.Use(cors.Default())

	registerRoutes(router, cfg)

	// Start server
	port := ":" + cfg.Port
	log.Printf("Server is running on http://localhost%s", port)
	if err := router.Run(port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// registerRoutes wires the public storefront surface, the gateway webhooks
// and the token-guarded admin surface
func registerRoutes(router *gin.Engine, cfg *config.Config) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)

		// Storefront
		v1.GET("/products", controllers.ListProducts)
		v1.POST("/orders", controllers.CreateOrder)
		v1.GET("/orders/:id", controllers.GetOrder)

		// Payment gateway callbacks
		v1.POST("/webhooks/payment", controllers.PaymentWebhook)
		v1.POST("/webhooks/payment/v2", controllers.PaymentWebhookV2)

		// Admin login
		v1.POST("/auth/login", controllers.Login)

		admin := v1.Group("/admin", middleware.RequireAdmin(cfg))
		{
			admin.GET("/orders", controllers.ListOrders)
			admin.GET("/orders/:id/transaction", controllers.GetOrderTransaction)
			admin.POST("/orders/mark-paid", controllers.MarkPaid)

			admin.POST("/products", controllers.CreateProduct)
			admin.PUT("/products/:id", controllers.UpdateProduct)
			admin.DELETE("/products/:id", controllers.DeleteProduct)

			admin.GET("/stock", controllers.ListStock)
			admin.GET("/stock/count", controllers.StockCount)
			admin.POST("/stock", controllers.AddStock)
			admin.DELETE("/stock/:id", controllers.DeleteStock)

			admin.POST("/uploads/ebook", controllers.UploadEbook)
		}
	}
}

// seedAdminUser creates the dashboard account from ADMIN_USERNAME and
// ADMIN_PASSWORD when no admin exists yet
func seedAdminUser(db *gorm.DB, cfg *config.Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		log.Println("ADMIN_USERNAME/ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var count int64
	if err := db.Model(&models.AdminUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := models.AdminUser{Username: cfg.AdminUsername}
	if err := admin.SetPassword(cfg.AdminPassword); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Seeded admin user %q", admin.Username)
	return nil
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "PremStore API is running",
	})
}
