package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tably-system/config"
	"tably-system/internal/billing"
	"tably-system/internal/catalog"
	"tably-system/internal/gateway/handlers"
	"tably-system/internal/gateway/middleware"
)

func setupRouter(cfg config.Config, db *gorm.DB, billingService *billing.Service, catalogService *catalog.Service) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORS())
	r.Use(gin.Recovery())

	publicHandler := handlers.NewPublicHandler(db, billingService, catalogService)
	adminHandler := handlers.NewAdminHandler(db, billingService, catalogService,
		[]byte(cfg.Auth.JWTSecret), cfg.Auth.SessionTTL)

	// --- Public API Group ---
	public := r.Group("/api/public")
	public.Use(middleware.RateLimit("120-M"))
	{
		public.GET("/table-context/:token", publicHandler.TableContext)
		public.GET("/menu/:token", publicHandler.Menu)

		tables := public.Group("/tables/:tableID")
		{
			tables.GET("/bill", publicHandler.GetBill)
			tables.POST("/bill/items", publicHandler.AddBillItem)
			tables.DELETE("/bill/items/:lineID", publicHandler.RemoveBillItem)
			tables.POST("/payment/intent", publicHandler.PaymentIntent)
		}

		public.POST("/receipt/email", publicHandler.ReceiptEmail)
	}

	// --- Admin API Group ---
	r.POST("/api/admin/auth/session", adminHandler.CreateSession)

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuth(db, []byte(cfg.Auth.JWTSecret)))
	{
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.GET("/orders", adminHandler.Orders)

		menu := admin.Group("/menu")
		{
			menu.GET("/categories", adminHandler.ListCategories)
			menu.POST("/categories", adminHandler.CreateCategory)
			menu.GET("/categories/:id", adminHandler.GetCategory)
			menu.PATCH("/categories/:id", adminHandler.UpdateCategory)
			menu.DELETE("/categories/:id", adminHandler.DeleteCategory)

			menu.GET("/items", adminHandler.ListItems)
			menu.POST("/items", adminHandler.CreateItem)
			menu.GET("/items/:id", adminHandler.GetItem)
			menu.PATCH("/items/:id", adminHandler.UpdateItem)
			menu.DELETE("/items/:id", adminHandler.DeleteItem)
		}

		admin.GET("/tables", adminHandler.ListTables)
		admin.POST("/tables", adminHandler.CreateTable)

		admin.GET("/settings", adminHandler.GetSettings)
		admin.PATCH("/settings", adminHandler.UpdateSettings)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"message":   "Server is running",
			"timestamp": time.Now(),
		})
	})

	return r
}
