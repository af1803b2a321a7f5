package models

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// SessionStatus is the lifecycle state of a session.
// Transitions are monotonic: active -> closed -> archived.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusClosed   SessionStatus = "closed"
	StatusArchived SessionStatus = "archived"
)

func (s SessionStatus) rank() int {
	switch s {
	case StatusActive:
		return 0
	case StatusClosed:
		return 1
	case StatusArchived:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotonic.
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return s.rank() >= 0 && next.rank() > s.rank()
}

// TaxTipType selects how a tax or tip value is interpreted.
type TaxTipType string

const (
	// TaxTipFixed is an absolute amount, not proportional to the subtotal.
	TaxTipFixed TaxTipType = "fixed"
	// TaxTipPercentage is a percentage of the global subtotal, clamped to [0, 100].
	TaxTipPercentage TaxTipType = "percentage"
)

// Valid reports whether t is a known type.
func (t TaxTipType) Valid() bool {
	return t == TaxTipFixed || t == TaxTipPercentage
}

// Session represents one bill-splitting event.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string `json:"id"`

	// ShortCode is the 6-character join code (uppercase alphanumeric).
	ShortCode string `json:"short_code"`

	// Name is the display name of the session (e.g., "Friday dinner").
	Name string `json:"name"`

	// Status is the lifecycle state.
	Status SessionStatus `json:"status"`

	// ReceiptImageURL references the uploaded receipt photo, if any.
	ReceiptImageURL *string `json:"receipt_image_url"`

	// TipType and TipValue configure the tip.
	TipType  TaxTipType `json:"tip_type"`
	TipValue float64    `json:"tip_value"`

	// TaxType and TaxValue configure the tax.
	TaxType  TaxTipType `json:"tax_type"`
	TaxValue float64    `json:"tax_value"`

	// CreatedAt is the Unix timestamp when the session was created.
	CreatedAt int64 `json:"created_at"`

	// ExpiresAt is an optional Unix timestamp after which the session may be archived.
	ExpiresAt *int64 `json:"expires_at"`
}

// CodeLength is the fixed length of a session join code.
const CodeLength = 6

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NormalizeCode trims and upper-cases a user-entered join code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidCode reports whether code is exactly 6 uppercase alphanumeric characters.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			return false
		}
	}
	return true
}

// GenerateCode returns a random join code.
func GenerateCode() (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
