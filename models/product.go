package models

import (
	"time"

	"gorm.io/gorm"
)

// Product types sold by the store. Gmail products consume accounts_stock
// records; ebook products carry a static download link instead.
const (
	ProductTypeGmail    = "gmail"
	ProductTypeEbook    = "ebook"
	ProductTypeApp      = "app"
	ProductTypeTemplate = "template"
)

// Product represents a digital good in the catalog
type Product struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Price       float64        `gorm:"not null" json:"price"`
	UnitCount   int            `gorm:"not null;default:1" json:"unit_count"` // inventory units per package
	IsActive    bool           `gorm:"not null;default:true" json:"is_active"`
	ProductType string         `gorm:"not null;default:'gmail'" json:"product_type"` // gmail, ebook, app, template
	FileURL     *string        `json:"file_url"`                                     // download link for ebook-type goods
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
