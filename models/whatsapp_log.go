package models

import "time"

// WhatsApp delivery log statuses
const (
	WhatsAppStatusSending = "sending"
	WhatsAppStatusSent    = "sent"
	WhatsAppStatusFailed  = "failed"
)

// WhatsAppLog records one outbound message attempt. A row is created with
// status sending before the provider call and updated once the attempt
// resolves. The table is append-only; rows are never deleted.
type WhatsAppLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     string    `gorm:"not null;size:36;index" json:"order_id"`
	ToNumber    string    `gorm:"not null" json:"to_number"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	Status      string    `gorm:"not null;default:'sending'" json:"status"` // sending, sent, failed
	ResponseRaw string    `gorm:"type:text" json:"response_raw"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the WhatsAppLog model
func (WhatsAppLog) TableName() string {
	return "whatsapp_logs"
}
