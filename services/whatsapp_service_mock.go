package services

import (
	"fmt"
	"sync"

	"github.com/premstore/premstore-api/utils"
)

// SentMessage records one message delivered through the mock
type SentMessage struct {
	Target  string
	Message string
}

// MockWhatsAppService is a mock implementation of WhatsAppService for testing
type MockWhatsAppService struct {
	sentMessages []SentMessage
	failNext     bool
	mu           sync.RWMutex
}

// NewMockWhatsAppService creates a new mock WhatsApp service
func NewMockWhatsAppService() *MockWhatsAppService {
	return &MockWhatsAppService{}
}

// SetAsMockForTesting sets this mock as the global WhatsApp service instance
func (m *MockWhatsAppService) SetAsMockForTesting() {
	SetWhatsAppService(m)
}

// FailNextSend makes the next Send call report a delivery failure
func (m *MockWhatsAppService) FailNextSend() {
	m.mu.Lock()
	m.failNext = true
	m.mu.Unlock()
}

// Send simulates delivering a message
func (m *MockWhatsAppService) Send(phoneNumber, message string) (*WhatsAppResult, error) {
	target := utils.NormalizePhone(phoneNumber)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		m.failNext = false
		return &WhatsAppResult{Success: false, RawResponse: `{"status":false,"reason":"mock failure"}`},
			fmt.Errorf("whatsapp provider returned status 500: mock failure")
	}

	m.sentMessages = append(m.sentMessages, SentMessage{Target: target, Message: message})
	return &WhatsAppResult{Success: true, RawResponse: `{"status":true,"id":"mock"}`}, nil
}

// SentMessages returns all messages sent through the mock
func (m *MockWhatsAppService) SentMessages() []SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]SentMessage, len(m.sentMessages))
	copy(messages, m.sentMessages)
	return messages
}

// Clear removes all recorded messages
func (m *MockWhatsAppService) Clear() {
	m.mu.Lock()
	m.sentMessages = nil
	m.failNext = false
	m.mu.Unlock()
}
