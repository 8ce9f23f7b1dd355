// Package wallet validates and normalizes EVM wallet addresses used as web identities.
package wallet

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"
)

var (
	ErrInvalidFormat   = errors.New("wallet address must be 0x followed by 40 hex characters")
	ErrInvalidChecksum = errors.New("wallet address checksum mismatch")
)

// Validate checks the 0x + 40 hex shape and, for mixed-case input,
// the EIP-55 checksum. All-lower and all-upper addresses carry no
// checksum and are accepted.
func Validate(addr string) error {
	addr = strings.TrimSpace(addr)
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return ErrInvalidFormat
	}
	body := addr[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return ErrInvalidFormat
	}

	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if Checksum(addr) != addr {
		return ErrInvalidChecksum
	}
	return nil
}

// IsValid reports whether addr passes Validate
func IsValid(addr string) bool {
	return Validate(addr) == nil
}

// Normalize returns the lower-case form used as a storage key
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Checksum returns the EIP-55 mixed-case encoding of a 0x-prefixed address
func Checksum(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(addr), "0x"))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	digest := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// FromAuthorization extracts the address from an "Authorization: Wallet <addr>"
// header value. It returns "" when the scheme or the address is invalid.
func FromAuthorization(header string) string {
	addr, ok := strings.CutPrefix(header, "Wallet ")
	if !ok {
		return ""
	}
	return First(addr)
}

// First returns the normalized form of the first valid candidate, or ""
func First(candidates ...string) string {
	for _, c := range candidates {
		if c != "" && IsValid(c) {
			return Normalize(c)
		}
	}
	return ""
}
