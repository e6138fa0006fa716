package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/premstore/premstore-api/config"
	"github.com/premstore/premstore-api/models"
)

// AddStockRequest accepts a single credential pair or a bulk list. Exactly
// one of the two forms must be used.
type AddStockRequest struct {
	Username string             `json:"username"`
	Password string             `json:"password"`
	Accounts []StockCredentials `json:"accounts"`
}

// StockCredentials is one username/password pair in a bulk insert
type StockCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AddStock handles POST /api/v1/admin/stock - inserts credential records
// with is_used=false, singly or in bulk
func AddStock(c *gin.Context) {
	var req AddStockRequest
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

	var pairs []StockCredentials
	switch {
	case len(req.Accounts) > 0:
		pairs = req.Accounts
	case req.Username != "" && req.Password != "":
		pairs = []StockCredentials{{Username: req.Username, Password: req.Password}}
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Provide username/password or a non-empty accounts list",
			},
		})
		return
	}

	records := make([]models.AccountStock, 0, len(pairs))
	for _, pair := range pairs {
		if pair.Username == "" || pair.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Every account needs a username and a password",
				},
			})
			return
		}
		records = append(records, models.AccountStock{
			Username: pair.Username,
			Password: pair.Password,
		})
	}

	if err := config.GetDB().Create(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to insert stock",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"inserted": len(records),
	})
}

// DeleteStock handles DELETE /api/v1/admin/stock/:id - refuses to delete a
// record that has already been handed to a buyer
func DeleteStock(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid stock id",
			},
		})
		return
	}

	err = models.DeleteStockIfUnused(config.GetDB(), uint(id))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
		})
	case errors.Is(err, models.ErrStockInUse):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STOCK_IN_USE",
				"message": "Record is already assigned to an order and cannot be deleted",
			},
		})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STOCK_NOT_FOUND",
				"message": "Stock record not found",
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to delete stock",
			},
		})
	}
}

// StockCount handles GET /api/v1/admin/stock/count
func StockCount(c *gin.Context) {
	db := config.GetDB()

	available, err := models.CountAvailableStock(db)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count stock",
			},
		})
		return
	}

	var total int64
	if err := db.Model(&models.AccountStock{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to count stock",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"available": available,
		"total":     total,
	})
}

// ListStock handles GET /api/v1/admin/stock - lists credential records with
// their assignment state for the dashboard
func ListStock(c *gin.Context) {
	db := config.GetDB()

	query := db.Order("id ASC")
	if used := c.Query("used"); used != "" {
		query = query.Where("is_used = ?", used == "true" || used == "1")
	}

	var records []models.AccountStock
	if err := query.Find(&records).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to fetch stock",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
	})
}
