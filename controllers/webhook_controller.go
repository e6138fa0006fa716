package controllers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/premstore/premstore-api/config"
	"github.com/premstore/premstore-api/models"
	"github.com/premstore/premstore-api/services"
)

// completedStatuses is the allow-set of gateway status spellings that mean a
// payment went through on the legacy webhook. Anything else is acknowledged
// and ignored so the gateway does not retry forever.
var completedStatuses = map[string]bool{
	"completed": true,
	"PAID":      true,
	"SUCCESS":   true,
}

// PaymentWebhookRequest is the legacy gateway callback shape
type PaymentWebhookRequest struct {
	OrderID string `json:"order_id" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// PaymentWebhook handles POST /api/v1/webhooks/payment - the legacy gateway
// callback. The gateway retries on non-2xx responses; the conditional
// pending->paid transition inside the engine makes those retries safe.
func PaymentWebhook(c *gin.Context) {
	var req PaymentWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid webhook payload",
				"details": err.Error(),
			},
		})
		return
	}

	if !completedStatuses[req.Status] {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Status ignored",
		})
		return
	}

	engine := services.NewFulfillmentService(config.GetDB(), services.GetWhatsAppService())
	err := engine.Fulfill(req.OrderID, nil)

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
		})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
	case errors.Is(err, models.ErrInsufficientStock):
		// The engine already cancelled the order and told the buyer.
		// Acknowledge so the gateway stops retrying a terminal order.
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Order cancelled due to stock shortage",
		})
	case errors.Is(err, services.ErrNotificationFailed):
		// Allocation committed but the message never left. Cancelling here
		// would orphan the assigned credentials; report the failure and let
		// the admin resend from the failed whatsapp_logs row.
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOTIFICATION_FAILED",
				"message": "Failed to deliver fulfillment message",
			},
		})
	default:
		rollbackToCancelled(req.OrderID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FULFILLMENT_ERROR",
				"message": "Failed to process payment notification",
			},
		})
	}
}

// PaymentWebhookV2Request is the newer gateway callback shape
type PaymentWebhookV2Request struct {
	OrderID       string  `json:"order_id" binding:"required"`
	Project       string  `json:"project" binding:"required"`
	Status        string  `json:"status" binding:"required"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	CompletedAt   string  `json:"completed_at"`
}

// PaymentWebhookV2 handles POST /api/v1/webhooks/payment/v2 - the newer
// gateway callback carrying project and payment metadata
func PaymentWebhookV2(c *gin.Context) {
	var req PaymentWebhookV2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":    false,
			"error": "Invalid webhook payload: " + err.Error(),
		})
		return
	}

	// Reject callbacks for someone else's project when one is configured
	if cfg := config.GetConfig(); cfg != nil && cfg.PaymentProject != "" && req.Project != cfg.PaymentProject {
		c.JSON(http.StatusForbidden, gin.H{
			"ok":    false,
			"error": "Unknown project",
		})
		return
	}

	if req.Status != "completed" {
		c.JSON(http.StatusOK, gin.H{
			"ok": true,
		})
		return
	}

	engine := services.NewFulfillmentService(config.GetDB(), services.GetWhatsAppService())
	err := engine.Fulfill(req.OrderID, &services.PaymentInfo{
		PaymentMethod: req.PaymentMethod,
		Amount:        req.Amount,
	})

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"ok": true,
		})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"ok":    false,
			"error": "Order not found",
		})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusOK, gin.H{
			"ok": true,
		})
	case errors.Is(err, services.ErrNotificationFailed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Failed to deliver fulfillment message",
		})
	default:
		rollbackToCancelled(req.OrderID)
		c.JSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "Failed to process payment notification",
		})
	}
}

// rollbackToCancelled is the best-effort error path shared by both webhook
// variants: park the order in cancelled so it cannot be half-fulfilled by a
// later retry. Secondary failures are swallowed; the 500 response already
// tells the gateway to retry.
func rollbackToCancelled(orderID string) {
	if err := models.UpdateOrderStatus(config.GetDB(), orderID, models.OrderStatusCancelled, nil); err != nil {
		log.Printf("Failed to cancel order %s after webhook error: %v", orderID, err)
	}
}
