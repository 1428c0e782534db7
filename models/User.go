package models

import (
	"strings"

	"gorm.io/gorm"
)

// User represents an application account that can authenticate with the platform.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	Currency     string `gorm:"type:varchar(8);default:BRL"`
}

// Currencies the cash register and reports know how to format.
const (
	CurrencyReal   = "BRL"
	CurrencyDollar = "USD"
	CurrencyEuro   = "EUR"
)

// DefaultCurrency is applied whenever a stored preference is missing or unknown.
const DefaultCurrency = CurrencyReal

// ValidCurrency reports whether value is a currency the application supports.
func ValidCurrency(value string) bool {
	switch value {
	case CurrencyReal, CurrencyDollar, CurrencyEuro:
		return true
	default:
		return false
	}
}

// NormalizeCurrency maps arbitrary input onto a supported currency code.
func NormalizeCurrency(value string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if ValidCurrency(trimmed) {
		return trimmed
	}
	return DefaultCurrency
}
