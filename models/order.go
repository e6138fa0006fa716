package models

import (
	"time"

	"gorm.io/gorm"
)

// Order statuses. Transitions only move forward:
// pending -> paid -> completed, with pending|paid -> cancelled on failure.
// completed and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Order represents a storefront order in the system
type Order struct {
	ID               string         `gorm:"primaryKey;size:36" json:"id"`
	BuyerEmail       string         `gorm:"not null" json:"buyer_email"`
	BuyerPhone       string         `gorm:"not null" json:"buyer_phone"`
	Status           string         `gorm:"not null;default:'pending';index" json:"status"`
	PaymentReference *string        `json:"payment_reference"` // nullable, set post-fulfillment
	Items            []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem represents one line of an order with a price snapshot taken at
// order time, decoupled from later product price changes
type OrderItem struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	OrderID            string    `gorm:"not null;size:36;index" json:"order_id"`
	ProductID          uint      `gorm:"not null;index" json:"product_id"`
	Product            Product   `gorm:"foreignKey:ProductID" json:"product"`
	Quantity           int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	EffectiveUnitCount int       `gorm:"not null" json:"effective_unit_count"` // quantity * product unit_count
	UnitPrice          float64   `gorm:"not null" json:"unit_price"`
	TotalPrice         float64   `gorm:"not null" json:"total_price"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

// MarkOrderPaid flips an order from pending to paid as a single conditional
// update. It returns true only when this call performed the transition, which
// makes it safe against duplicate webhook deliveries racing each other: the
// second caller sees zero affected rows and backs off.
func MarkOrderPaid(db *gorm.DB, orderID string) (bool, error) {
	result := db.Model(&Order{}).
		Where("id = ? AND status = ?", orderID, OrderStatusPending).
		Update("status", OrderStatusPaid)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateOrderStatus sets an order's status and optionally stamps the payment
// reference reported by the gateway
func UpdateOrderStatus(db *gorm.DB, orderID, status string, paymentReference *string) error {
	updates := map[string]interface{}{"status": status}
	if paymentReference != nil {
		updates["payment_reference"] = *paymentReference
	}
	return db.Model(&Order{}).Where("id = ?", orderID).Updates(updates).Error
}

// GetOrderItemsWithProduct loads an order's items with their product rows so
// callers can branch on product_type without untyped lookups
func GetOrderItemsWithProduct(db *gorm.DB, orderID string) ([]OrderItem, error) {
	var items []OrderItem
	err := db.Where("order_id = ?", orderID).
		Preload("Product").
		Order("id ASC").
		Find(&items).Error
	return items, err
}
