package services

import (
	"fmt"
	"sync"
)

// MockPaymentService is a mock implementation of PaymentService for testing
type MockPaymentService struct {
	Detail      *TransactionDetail
	FailDetail  bool
	detailCalls []string
	mu          sync.RWMutex
}

// NewMockPaymentService creates a new mock payment service
func NewMockPaymentService() *MockPaymentService {
	return &MockPaymentService{}
}

// SetAsMockForTesting sets this mock as the global payment service instance
func (m *MockPaymentService) SetAsMockForTesting() {
	SetPaymentService(m)
}

// BuildPaymentURL returns a deterministic fake redirect URL
func (m *MockPaymentService) BuildPaymentURL(orderID string, amount float64) string {
	return fmt.Sprintf("https://mock-gateway.example/pay/%s/%d", orderID, int64(amount))
}

// GetTransactionDetail returns the configured detail or a canned failure
func (m *MockPaymentService) GetTransactionDetail(orderID string, amount float64) (*TransactionDetail, error) {
	m.mu.Lock()
	m.detailCalls = append(m.detailCalls, orderID)
	m.mu.Unlock()

	if m.FailDetail {
		return nil, fmt.Errorf("transaction-detail endpoint returned status 502: mock failure")
	}
	if m.Detail != nil {
		return m.Detail, nil
	}
	return &TransactionDetail{
		OrderID: orderID,
		Status:  "completed",
		Amount:  amount,
	}, nil
}

// DetailCalls returns the order IDs queried through the mock
func (m *MockPaymentService) DetailCalls() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	calls := make([]string, len(m.detailCalls))
	copy(calls, m.detailCalls)
	return calls
}
