package privacy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxLogLength = 200

var (
	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)

	// Matches: 555-123-4567, (555) 123-4567, 555.123.4567, +1-555-123-4567, 555-1234
	phoneRegex = regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}|\b\d{3}[-.\s]\d{4}\b`)

	ssnRegex = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

	// Credit card pattern (basic) - must have 4 groups
	creditCardRegex = regexp.MustCompile(`\b\d{4}[-\s]\d{4}[-\s]\d{4}[-\s]\d{4}\b`)

	medicalIDRegex = regexp.MustCompile(`\b(MRN|Medical Record|Patient ID)[-:\s]*[A-Z0-9]{6,}\b`)

	walletRegex = regexp.MustCompile(`\b0[xX][0-9a-fA-F]{40}\b`)
)

// RedactSensitiveData removes PII from text
func RedactSensitiveData(text string) string {
	text = walletRegex.ReplaceAllStringFunc(text, MaskWallet)
	text = emailRegex.ReplaceAllString(text, "[EMAIL]")
	text = phoneRegex.ReplaceAllString(text, "[PHONE]")
	text = ssnRegex.ReplaceAllString(text, "[SSN]")
	text = creditCardRegex.ReplaceAllString(text, "[CARD]")
	text = medicalIDRegex.ReplaceAllString(text, "[MEDICAL_ID]")
	return text
}

// SanitizeForLogging prepares text for safe logging
func SanitizeForLogging(text string) string {
	redacted := RedactSensitiveData(text)

	if utf8.RuneCountInString(redacted) > maxLogLength {
		runes := []rune(redacted)
		return string(runes[:maxLogLength-3]) + "..."
	}

	return redacted
}

// SanitizeForAPI removes PII before user text is sent to an AI provider.
// Symptom descriptions, ages and durations are left intact.
func SanitizeForAPI(text string) string {
	return RedactSensitiveData(text)
}

// ContainsPII checks if text contains potential PII
func ContainsPII(text string) bool {
	return emailRegex.MatchString(text) ||
		phoneRegex.MatchString(text) ||
		ssnRegex.MatchString(text) ||
		creditCardRegex.MatchString(text) ||
		medicalIDRegex.MatchString(text)
}

// MaskWallet shortens a wallet address to its first and last four hex digits
func MaskWallet(addr string) string {
	if len(addr) < 12 {
		return "[WALLET]"
	}
	return strings.ToLower(addr[:6]) + "…" + strings.ToLower(addr[len(addr)-4:])
}
