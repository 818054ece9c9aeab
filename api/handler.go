package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"carsales/internal/catalog"
	"carsales/internal/sales"
)

// salesHandler holds the sales and sync services and implements the HTTP
// handlers for the sales API.
type salesHandler struct {
	salesService *sales.Service
	syncService  *catalog.SyncService
	logger       *zap.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(salesService *sales.Service, syncService *catalog.SyncService, logger *zap.Logger) *salesHandler {
	return &salesHandler{
		salesService: salesService,
		syncService:  syncService,
		logger:       logger,
	}
}

// handleSyncCar handles POST /sync/cars: the one-way upsert pushed by Core.
func (h *salesHandler) handleSyncCar(ctx *gin.Context) {
	var req struct {
		ID        int64           `json:"id"`
		Brand     string          `json:"brand"`
		Model     string          `json:"model"`
		Year      int             `json:"year"`
		Color     string          `json:"color"`
		Price     decimal.Decimal `json:"price"`
		UpdatedAt time.Time       `json:"updatedAt"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind car sync request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	_, err := h.syncService.Upsert(ctx.Request.Context(), catalog.Car{
		ID:    req.ID,
		Brand: req.Brand,
		Model: req.Model,
		Year:  req.Year,
		Color: req.Color,
		Price: req.Price,
	})
	if err != nil {
		h.logger.Error("failed to sync car", zap.Int64("car_id", req.ID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sync car"})
		return
	}

	ctx.Status(http.StatusNoContent)
}

// handleListAvailable handles GET /api/1/sales/available.
func (h *salesHandler) handleListAvailable(ctx *gin.Context) {
	cars, err := h.salesService.ListAvailable(ctx.Request.Context())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, cars)
}

// handleListSold handles GET /api/1/sales/sold.
func (h *salesHandler) handleListSold(ctx *gin.Context) {
	cars, err := h.salesService.ListSold(ctx.Request.Context())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, cars)
}

// handleListReserved handles GET /api/1/sales/reserved.
func (h *salesHandler) handleListReserved(ctx *gin.Context) {
	cars, err := h.salesService.ListReserved(ctx.Request.Context())
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, cars)
}

// handleReserve handles POST /api/1/sales/reserved: starts a purchase attempt
// and mints the payment code.
func (h *salesHandler) handleReserve(ctx *gin.Context) {
	var req struct {
		CarID int64 `json:"carId"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind purchase request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	resp, err := h.salesService.Reserve(ctx.Request.Context(), req.CarID)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// handlePaymentWebhook handles POST /api/1/sales/payments/webhook: the
// gateway reports the outcome for a payment code. Replays respond 204.
func (h *salesHandler) handlePaymentWebhook(ctx *gin.Context) {
	var req struct {
		PaymentCode string     `json:"paymentCode"`
		Status      string     `json:"status"`
		BuyerCPF    string     `json:"buyerCpf"`
		EventAt     *time.Time `json:"eventAt"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind webhook request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	err := h.salesService.HandlePaymentOutcome(ctx.Request.Context(), req.PaymentCode, req.Status, req.BuyerCPF, req.EventAt)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// writeError maps domain errors onto client-visible status codes.
func (h *salesHandler) writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, sales.ErrCarNotFound), errors.Is(err, sales.ErrSaleNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrAlreadySold), errors.Is(err, sales.ErrAlreadyReserved):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, sales.ErrVersionConflict):
		ctx.JSON(http.StatusConflict, gin.H{"error": "concurrent update detected, retry the operation"})
	case errors.Is(err, sales.ErrInvalidOutcome):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
