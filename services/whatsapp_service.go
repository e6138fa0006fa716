package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/premstore/premstore-api/config"
	"github.com/premstore/premstore-api/utils"
)

// WhatsAppResult carries the outcome of a single send attempt, including the
// provider's raw response body for the audit log
type WhatsAppResult struct {
	Success     bool
	RawResponse string
}

// WhatsAppInterface defines the interface for outbound WhatsApp delivery
type WhatsAppInterface interface {
	Send(phoneNumber, message string) (*WhatsAppResult, error)
}

// WhatsAppService delivers messages through a Fonnte-style HTTP API. One
// request per call, no internal retry; retry policy belongs to the caller.
type WhatsAppService struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

var whatsAppServiceInstance WhatsAppInterface

// InitWhatsAppService initializes the WhatsApp service from configuration
func InitWhatsAppService(cfg *config.Config) WhatsAppInterface {
	whatsAppServiceInstance = &WhatsAppService{
		apiURL: cfg.WhatsAppAPIURL,
		apiKey: cfg.WhatsAppAPIKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	return whatsAppServiceInstance
}

// GetWhatsAppService returns the initialized WhatsApp service instance
func GetWhatsAppService() WhatsAppInterface {
	return whatsAppServiceInstance
}

// SetWhatsAppService sets the WhatsApp service instance (primarily for testing)
func SetWhatsAppService(service WhatsAppInterface) {
	whatsAppServiceInstance = service
}

// Send delivers one message to the given phone number. The number is
// normalized to the 62 country code before dispatch.
func (s *WhatsAppService) Send(phoneNumber, message string) (*WhatsAppResult, error) {
	target := utils.NormalizePhone(phoneNumber)

	form := url.Values{}
	form.Set("target", target)
	form.Set("message", message)
	form.Set("countryCode", "62")

	req, err := http.NewRequest(http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &WhatsAppResult{Success: false, RawResponse: err.Error()},
			fmt.Errorf("failed to call whatsapp provider: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	raw := string(body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &WhatsAppResult{Success: false, RawResponse: raw},
			fmt.Errorf("whatsapp provider returned status %d: %s", resp.StatusCode, raw)
	}

	return &WhatsAppResult{Success: true, RawResponse: raw}, nil
}
