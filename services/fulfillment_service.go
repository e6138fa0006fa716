package services

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/premstore/premstore-api/models"
	"github.com/premstore/premstore-api/utils"
)

// Fulfillment errors surfaced to the HTTP layer
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrNoItemsFound       = errors.New("no items found for order")
	ErrNotificationFailed = errors.New("failed to deliver whatsapp notification")
)

// PaymentInfo carries optional metadata delivered with a payment notification
type PaymentInfo struct {
	PaymentMethod string
	Amount        float64
}

// FulfillmentService allocates account stock to paid orders and delivers the
// credentials to the buyer over WhatsApp. Fulfillment runs at most once per
// order: the pending->paid transition is a conditional update, so duplicate
// webhook deliveries and concurrent calls collapse into a single winner.
type FulfillmentService struct {
	db       *gorm.DB
	whatsApp WhatsAppInterface
}

// NewFulfillmentService creates a fulfillment service bound to a database and
// a WhatsApp delivery channel
func NewFulfillmentService(db *gorm.DB, whatsApp WhatsAppInterface) *FulfillmentService {
	return &FulfillmentService{db: db, whatsApp: whatsApp}
}

// Fulfill processes a payment confirmation for the given order.
//
// Ordering is load-bearing: claim the order (pending->paid), allocate stock
// inside one transaction, deliver the message, then mark completed. Stock
// shortage after payment cancels the order and tells the buyer to contact
// the admin; a failed send is reported but already-committed allocation is
// not rolled back.
func (s *FulfillmentService) Fulfill(orderID string, info *PaymentInfo) error {
	var order models.Order
	if err := s.db.First(&order, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to load order: %w", err)
	}

	claimed, err := models.MarkOrderPaid(s.db, orderID)
	if err != nil {
		return fmt.Errorf("failed to claim order for fulfillment: %w", err)
	}
	if !claimed {
		// Someone already moved this order past pending. Paid, completed
		// and cancelled are all acknowledged without side effects so the
		// gateway stops retrying.
		log.Printf("Order %s already in status %s, skipping fulfillment", orderID, order.Status)
		return nil
	}

	items, err := models.GetOrderItemsWithProduct(s.db, orderID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	if len(items) == 0 {
		return ErrNoItemsFound
	}

	var gmailItems, ebookItems []models.OrderItem
	for _, item := range items {
		switch item.Product.ProductType {
		case models.ProductTypeGmail:
			gmailItems = append(gmailItems, item)
		case models.ProductTypeEbook:
			ebookItems = append(ebookItems, item)
		}
	}

	var message strings.Builder
	message.WriteString("*PremStore - Pesanan Kamu*\n\n")
	message.WriteString(fmt.Sprintf("Order ID: %s\n", order.ID))
	message.WriteString(fmt.Sprintf("Email: %s\n", order.BuyerEmail))

	if len(gmailItems) > 0 {
		allocated, err := s.allocateAccounts(gmailItems)
		if err != nil {
			if errors.Is(err, models.ErrInsufficientStock) {
				return s.cancelForShortage(&order)
			}
			return fmt.Errorf("failed to allocate stock: %w", err)
		}

		message.WriteString("\n*Akun Gmail:*\n")
		for _, record := range allocated {
			message.WriteString(fmt.Sprintf("%s | %s\n", record.Username, record.Password))
		}
		message.WriteString("\n_Segera login dan ganti password akun di atas. " +
			"Akun yang sudah diserahkan tidak dapat ditukar._\n")
	}

	for _, item := range ebookItems {
		message.WriteString(fmt.Sprintf("\n*%s* x%d\n", item.Product.Name, item.Quantity))
		if item.Product.FileURL != nil && *item.Product.FileURL != "" {
			message.WriteString(fmt.Sprintf("Download: %s\n", *item.Product.FileURL))
		} else {
			log.Printf("Warning: ebook product %d has no file_url, order %s gets email fallback",
				item.ProductID, order.ID)
			message.WriteString("Link download akan dikirim melalui email.\n")
		}
	}

	if err := s.deliver(&order, message.String()); err != nil {
		// Allocation already committed; the admin reconciles from the
		// failed whatsapp_logs row. Do not roll back.
		return ErrNotificationFailed
	}

	var paymentReference *string
	if info != nil && info.PaymentMethod != "" {
		paymentReference = &info.PaymentMethod
	}
	if err := models.UpdateOrderStatus(s.db, orderID, models.OrderStatusCompleted, paymentReference); err != nil {
		// The buyer already holds the credentials; report success and let
		// the admin reconcile the stuck status by hand.
		log.Printf("Order %s delivered but status update failed: %v", orderID, err)
	}

	return nil
}

// allocateAccounts claims stock for every gmail item in one transaction.
// Each item gets its own conditional claim so assigned_order_item_id is
// item-specific; any shortfall rolls the whole allocation back.
func (s *FulfillmentService) allocateAccounts(items []models.OrderItem) ([]models.AccountStock, error) {
	var allocated []models.AccountStock
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			records, err := models.ReserveStock(tx, item.EffectiveUnitCount, item.ID)
			if err != nil {
				return err
			}
			allocated = append(allocated, records...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocated, nil
}

// cancelForShortage handles stock exhaustion discovered after payment. Money
// has already changed hands, so the buyer is notified explicitly and the
// order goes to cancelled for the admin to refund.
func (s *FulfillmentService) cancelForShortage(order *models.Order) error {
	message := fmt.Sprintf("*PremStore*\n\n"+
		"Maaf, stok untuk pesanan %s sedang kosong.\n"+
		"Silakan hubungi admin untuk pengembalian dana atau penggantian.", order.ID)

	if err := s.deliver(order, message); err != nil {
		log.Printf("Order %s shortage notification failed: %v", order.ID, err)
	}

	if err := models.UpdateOrderStatus(s.db, order.ID, models.OrderStatusCancelled, nil); err != nil {
		return fmt.Errorf("failed to cancel order after stock shortage: %w", err)
	}

	return models.ErrInsufficientStock
}

// deliver sends one WhatsApp message and records the attempt in
// whatsapp_logs. The log row is created before the provider call so a crash
// mid-send still leaves a trace.
func (s *FulfillmentService) deliver(order *models.Order, message string) error {
	target := utils.NormalizePhone(order.BuyerPhone)

	logEntry := models.WhatsAppLog{
		OrderID:  order.ID,
		ToNumber: target,
		Message:  message,
		Status:   models.WhatsAppStatusSending,
	}
	if err := s.db.Create(&logEntry).Error; err != nil {
		return fmt.Errorf("failed to create whatsapp log: %w", err)
	}

	result, sendErr := s.whatsApp.Send(order.BuyerPhone, message)

	updates := map[string]interface{}{"status": models.WhatsAppStatusSent}
	if sendErr != nil {
		updates["status"] = models.WhatsAppStatusFailed
	}
	if result != nil {
		updates["response_raw"] = result.RawResponse
	}
	if err := s.db.Model(&logEntry).Updates(updates).Error; err != nil {
		log.Printf("Failed to update whatsapp log %d: %v", logEntry.ID, err)
	}

	if sendErr != nil {
		return fmt.Errorf("whatsapp delivery failed: %w", sendErr)
	}
	return nil
}
