package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"carsales/internal/catalog"
	"carsales/internal/sales"
)

// InitRoutes registers the sales API endpoints on the given Gin engine and
// binds each HTTP method and path to the appropriate handler function.
func InitRoutes(e *gin.Engine, salesService *sales.Service, syncService *catalog.SyncService, logger *zap.Logger) {
	h := NewSalesHandler(salesService, syncService, logger)

	// Inbound catalog sync from Core.
	e.POST("/sync/cars", h.handleSyncCar)

	s := e.Group("/api/1/sales")
	s.GET("/available", h.handleListAvailable)
	s.GET("/sold", h.handleListSold)
	s.GET("/reserved", h.handleListReserved)
	s.POST("/reserved", h.handleReserve)
	s.POST("/payments/webhook", h.handlePaymentWebhook)

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}
