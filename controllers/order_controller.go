package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/premstore/premstore-api/config"
	"github.com/premstore/premstore-api/models"
	"github.com/premstore/premstore-api/services"
)

// CreateOrderRequest represents the request body for the checkout endpoint
type CreateOrderRequest struct {
	BuyerEmail string                   `json:"buyerEmail" binding:"required,email"`
	BuyerPhone string                   `json:"buyerPhone" binding:"required"`
	Items      []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreateOrderItemRequest is one cart line in a checkout submission
type CreateOrderItemRequest struct {
	ProductID uint `json:"productId" binding:"required"`
	Quantity  int  `json:"quantity"`
}

// CreateOrder handles POST /api/v1/orders - validates the cart, checks
// aggregate stock, persists the order with its items in one transaction and
// returns the payment redirect URL
func CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	db := config.GetDB()

	// Resolve all requested products in one batch read
	productIDs := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		productIDs = append(productIDs, item.ProductID)
	}

	var products []models.Product
	if err := db.Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load products",
			},
		})
		return
	}

	productByID := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	// Normalize lines and reject missing or inactive products
	type normalizedLine struct {
		product            models.Product
		quantity           int
		effectiveUnitCount int
		totalPrice         float64
	}

	var lines []normalizedLine
	var totalUnits int
	var grandTotal float64
	for _, item := range req.Items {
		product, ok := productByID[item.ProductID]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PRODUCT_NOT_FOUND",
					"message": fmt.Sprintf("Product %d does not exist", item.ProductID),
				},
			})
			return
		}
		if !product.IsActive {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "PRODUCT_INACTIVE",
					"message": fmt.Sprintf("Product %q is no longer available", product.Name),
				},
			})
			return
		}

		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}

		line := normalizedLine{
			product:            product,
			quantity:           quantity,
			effectiveUnitCount: quantity * product.UnitCount,
			totalPrice:         product.Price * float64(quantity),
		}
		lines = append(lines, line)
		grandTotal += line.totalPrice
		if product.ProductType == models.ProductTypeGmail {
			totalUnits += line.effectiveUnitCount
		}
	}

	// Point-in-time admission check against the ledger. Nothing is reserved
	// here; fulfillment re-checks atomically after payment.
	available, err := models.CountAvailableStock(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to check stock availability",
			},
		})
		return
	}
	if int64(totalUnits) > available {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INSUFFICIENT_STOCK",
				"message": fmt.Sprintf("Only %d accounts left in stock, order needs %d", available, totalUnits),
			},
		})
		return
	}

	// Order and items are one atomic insert; no orphaned pending orders
	order := models.Order{
		ID:         uuid.NewString(),
		BuyerEmail: req.BuyerEmail,
		BuyerPhone: req.BuyerPhone,
		Status:     models.OrderStatusPending,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		for _, line := range lines {
			item := models.OrderItem{
				OrderID:            order.ID,
				ProductID:          line.product.ID,
				Quantity:           line.quantity,
				EffectiveUnitCount: line.effectiveUnitCount,
				UnitPrice:          line.product.Price,
				TotalPrice:         line.totalPrice,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to create order",
			},
		})
		return
	}

	paymentURL := services.GetPaymentService().BuildPaymentURL(order.ID, grandTotal)

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"orderId":    order.ID,
		"totalUnits": totalUnits,
		"grandTotal": grandTotal,
		"paymentUrl": paymentURL,
	})
}

// GetOrder handles GET /api/v1/orders/:id - returns an order with its items
func GetOrder(c *gin.Context) {
	db := config.GetDB()

	var order models.Order
	if err := db.Preload("Items").Preload("Items.Product").
		First(&order, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ListOrders handles GET /api/v1/admin/orders - lists orders for the
// dashboard, newest first, optionally filtered by status
func ListOrders(c *gin.Context) {
	db := config.GetDB()

	query := db.Preload("Items").Preload("Items.Product").Order("created_at DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch orders",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
	})
}

// GetOrderTransaction handles GET /api/v1/admin/orders/:id/transaction -
// fetches the gateway's view of a payment so the admin can reconcile an order
// whose callback never arrived before deciding to mark it paid
func GetOrderTransaction(c *gin.Context) {
	db := config.GetDB()
	orderID := c.Param("id")

	var order models.Order
	if err := db.First(&order, "id = ?", orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": "Order not found",
			},
		})
		return
	}

	items, err := models.GetOrderItemsWithProduct(db, orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to load order items",
			},
		})
		return
	}

	var grandTotal float64
	for _, item := range items {
		grandTotal += item.TotalPrice
	}

	detail, err := services.GetPaymentService().GetTransactionDetail(orderID, grandTotal)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "GATEWAY_ERROR",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    detail,
	})
}

// MarkPaidRequest represents the request body for the manual mark-paid endpoint
type MarkPaidRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

// MarkPaid handles POST /api/v1/admin/orders/mark-paid - lets the admin push
// an order through fulfillment when the gateway callback never arrived.
// The raw error string is surfaced for diagnosis; this is an admin surface.
func MarkPaid(c *gin.Context) {
	var req MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	engine := services.NewFulfillmentService(config.GetDB(), services.GetWhatsAppService())
	err := engine.Fulfill(req.OrderID, nil)

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"orderId": req.OrderID,
		})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ORDER_NOT_FOUND",
				"message": err.Error(),
			},
		})
	case errors.Is(err, models.ErrInsufficientStock):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INSUFFICIENT_STOCK",
				"message": err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FULFILLMENT_ERROR",
				"message": err.Error(),
			},
		})
	}
}
