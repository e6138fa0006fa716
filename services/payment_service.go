package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/premstore/premstore-api/config"
)

// TransactionDetail is the gateway's view of a payment, fetched for
// manual reconciliation from the admin dashboard
type TransactionDetail struct {
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"payment_method"`
	CompletedAt   string  `json:"completed_at"`
}

// PaymentInterface defines the interface for payment gateway operations
type PaymentInterface interface {
	BuildPaymentURL(orderID string, amount float64) string
	GetTransactionDetail(orderID string, amount float64) (*TransactionDetail, error)
}

// PaymentService talks to the hosted-payment-page gateway
type PaymentService struct {
	baseURL    string
	project    string
	apiKey     string
	appBaseURL string
	qrisOnly   bool
	httpClient *http.Client
}

var paymentServiceInstance PaymentInterface

// InitPaymentService initializes the payment service from configuration
func InitPaymentService(cfg *config.Config) PaymentInterface {
	paymentServiceInstance = &PaymentService{
		baseURL:    cfg.PaymentBaseURL,
		project:    cfg.PaymentProject,
		apiKey:     cfg.PaymentAPIKey,
		appBaseURL: cfg.AppBaseURL,
		qrisOnly:   cfg.PaymentQRISOnly,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	return paymentServiceInstance
}

// GetPaymentService returns the initialized payment service instance
func GetPaymentService() PaymentInterface {
	return paymentServiceInstance
}

// SetPaymentService sets the payment service instance (primarily for testing)
func SetPaymentService(service PaymentInterface) {
	paymentServiceInstance = service
}

// BuildPaymentURL constructs the hosted payment page redirect for an order.
// The gateway expects the amount as an integer path segment and calls the
// redirect URL once the buyer finishes paying.
func (s *PaymentService) BuildPaymentURL(orderID string, amount float64) string {
	integerAmount := strconv.FormatInt(int64(amount), 10)

	redirect := fmt.Sprintf("%s/thank-you?order_id=%s&amount=%s",
		s.appBaseURL, orderID, integerAmount)

	params := url.Values{}
	params.Set("order_id", orderID)
	params.Set("redirect", redirect)
	if s.qrisOnly {
		params.Set("qris_only", "1")
	}

	return fmt.Sprintf("%s/pay/%s/%s?%s", s.baseURL, s.project, integerAmount, params.Encode())
}

// GetTransactionDetail queries the gateway's transaction-detail endpoint
func (s *PaymentService) GetTransactionDetail(orderID string, amount float64) (*TransactionDetail, error) {
	params := url.Values{}
	params.Set("project", s.project)
	params.Set("amount", strconv.FormatInt(int64(amount), 10))
	params.Set("order_id", orderID)
	params.Set("api_key", s.apiKey)

	endpoint := fmt.Sprintf("%s/api/transaction-detail?%s", s.baseURL, params.Encode())

	resp, err := s.httpClient.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to call transaction-detail endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("transaction-detail endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var detail TransactionDetail
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("failed to decode transaction-detail response: %w", err)
	}

	return &detail, nil
}
