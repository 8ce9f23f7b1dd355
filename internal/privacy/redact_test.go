package privacy

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "email redaction",
			input:    "My email is john.doe@example.com",
			expected: "My email is [EMAIL]",
		},
		{
			name:     "phone redaction",
			input:    "Call me at 555-123-4567",
			expected: "Call me at [PHONE]",
		},
		{
			name:     "SSN redaction",
			input:    "My SSN is 123-45-6789",
			expected: "My SSN is [SSN]",
		},
		{
			name:     "credit card redaction",
			input:    "Card: 4532-1234-5678-9010",
			expected: "Card: [CARD]",
		},
		{
			name:     "medical id",
			input:    "MRN: AB123456 for my visit",
			expected: "[MEDICAL_ID] for my visit",
		},
		{
			name:     "wallet address",
			input:    "link 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed please",
			expected: "link 0x5aae…eaed please",
		},
		{
			name:     "multiple PII types",
			input:    "Email: test@test.com, Phone: 555-1234",
			expected: "Email: [EMAIL], Phone: [PHONE]",
		},
		{
			name:     "no PII",
			input:    "Rash for more than a week, fever of 101",
			expected: "Rash for more than a week, fever of 101",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RedactSensitiveData(tt.input)
			if result != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestContainsPII(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"contains email", "Contact me at user@example.com", true},
		{"contains phone", "My number is 555-1234", true},
		{"no PII", "I'm feeling nauseous today", false},
		{"symptom info", "I have had a cough for 3 weeks", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ContainsPII(tt.input)
			if result != tt.expected {
				t.Errorf("got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSanitizeForLogging(t *testing.T) {
	longText := strings.Repeat("a", 250)
	result := SanitizeForLogging(longText)

	if len(result) > 200 {
		t.Errorf("result not truncated: got length %d, want <= 200", len(result))
	}
	if !strings.HasSuffix(result, "...") {
		t.Errorf("truncated text should end with '...'")
	}

	multibyte := SanitizeForLogging(strings.Repeat("é", 250))
	if !utf8.ValidString(multibyte) {
		t.Error("truncation split a rune")
	}
}

func TestMaskWallet(t *testing.T) {
	if got := MaskWallet("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"); got != "0xfb69…d359" {
		t.Errorf("MaskWallet = %q", got)
	}
	if got := MaskWallet("0x12"); got != "[WALLET]" {
		t.Errorf("short address = %q", got)
	}
}
