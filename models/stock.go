package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned when an allocation asks for more unused
// records than the ledger holds
var ErrInsufficientStock = errors.New("insufficient account stock")

// ErrStockInUse is returned when deleting a record that has already been
// assigned to an order item
var ErrStockInUse = errors.New("stock record is already used")

// AccountStock represents one allocatable credential pair. A record is marked
// used exactly once; assigned_order_item_id is the audit trail of which order
// item consumed it and is never overwritten.
type AccountStock struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	Username            string    `gorm:"not null" json:"username"`
	Password            string    `gorm:"not null" json:"password"`
	IsUsed              bool      `gorm:"not null;default:false;index" json:"is_used"`
	AssignedOrderItemID *uint     `gorm:"index" json:"assigned_order_item_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName specifies the table name for the AccountStock model
func (AccountStock) TableName() string {
	return "accounts_stock"
}

// CountAvailableStock returns the number of unused credential records
func CountAvailableStock(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&AccountStock{}).Where("is_used = ?", false).Count(&count).Error
	return count, err
}

// ReserveStock claims count unused records for the given order item. The
// claim is a single conditional UPDATE over the first N unused ids, guarded
// by is_used = false, so two concurrent fulfillments can never assign the
// same record: whichever statement runs second matches fewer rows and fails
// the rows-affected check. Callers must run this inside a transaction so a
// shortfall rolls the partial claim back.
func ReserveStock(db *gorm.DB, count int, itemID uint) ([]AccountStock, error) {
	if count <= 0 {
		return nil, nil
	}

	subQuery := db.Model(&AccountStock{}).
		Select("id").
		Where("is_used = ?", false).
		Order("id ASC").
		Limit(count)

	result := db.Model(&AccountStock{}).
		Where("is_used = ? AND id IN (?)", false, subQuery).
		Updates(map[string]interface{}{
			"is_used":                true,
			"assigned_order_item_id": itemID,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected < int64(count) {
		return nil, ErrInsufficientStock
	}

	var records []AccountStock
	if err := db.Where("assigned_order_item_id = ?", itemID).
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteStockIfUnused removes a credential record only while it is still
// unused. Used records are the audit trail of past fulfillments and must
// never be deleted.
func DeleteStockIfUnused(db *gorm.DB, id uint) error {
	result := db.Where("id = ? AND is_used = ?", id, false).Delete(&AccountStock{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var record AccountStock
		if err := db.First(&record, id).Error; err != nil {
			return err // not found
		}
		return ErrStockInUse
	}
	return nil
}
