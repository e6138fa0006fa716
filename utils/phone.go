package utils

import "strings"

// NormalizePhone rewrites a buyer-entered phone number into the MSISDN form
// the WhatsApp provider expects. Rules, applied in order:
//   - a leading "+" is stripped
//   - a leading "0" is replaced with country code "62"
//   - a bare local number with no recognized prefix gets "62" prepended
//
// "628123456789" passes through unchanged. Every outbound send must go
// through this function so the same buyer always resolves to the same number.
func NormalizePhone(phone string) string {
	normalized := strings.TrimSpace(phone)
	normalized = strings.TrimPrefix(normalized, "+")

	if strings.HasPrefix(normalized, "0") {
		return "62" + normalized[1:]
	}
	if !strings.HasPrefix(normalized, "62") {
		return "62" + normalized
	}
	return normalized
}
