// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidStaffKey = errors.New("invalid staff key")
	ErrInvalidCode     = errors.New("invalid invitation code format")
)

// codeAlphabet omits 0/O and 1/I, which are easy to misread on a printed
// invitation.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// CodeLength is the number of random characters after the prefix.
const CodeLength = 6

// GenerateID creates a random UUID for database records
func GenerateID() string {
	return uuid.NewString()
}

// GenerateInvitationCode creates a code such as "RT12-K7Q2MX". Uniqueness is
// enforced by the store; callers retry on a duplicate.
func GenerateInvitationCode(prefix string) (string, error) {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invitation code: %w", err)
	}
	body := encodeCode(b)
	if prefix == "" {
		return body, nil
	}
	return prefix + "-" + body, nil
}

// encodeCode maps each byte onto codeAlphabet. The alphabet has 32
// symbols, so every byte maps without bias.
func encodeCode(data []byte) string {
	out := make([]byte, len(data))
	for i, c := range data {
		out[i] = codeAlphabet[int(c)%len(codeAlphabet)]
	}
	return string(out)
}

// NormalizeCode trims and upper-cases a typed or scanned code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCodeFormat checks a code against the prefix and alphabet. It is
// used for manually entered codes on registration, not for scans: scans
// are matched exactly against the store.
func ValidateCodeFormat(code, prefix string) error {
	body := code
	if prefix != "" {
		var ok bool
		body, ok = strings.CutPrefix(code, prefix+"-")
		if !ok {
			return ErrInvalidCode
		}
	}
	if len(body) != CodeLength {
		return ErrInvalidCode
	}
	for _, c := range body {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return ErrInvalidCode
		}
	}
	return nil
}

// ValidateStaffKey compares the provided key with the configured one in
// constant time.
func ValidateStaffKey(provided, expected string) error {
	a := sha256.Sum256([]byte(provided))
	b := sha256.Sum256([]byte(expected))
	if provided == "" || !hmac.Equal(a[:], b[:]) {
		return ErrInvalidStaffKey
	}
	return nil
}
