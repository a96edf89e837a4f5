package domain

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

// DefaultCurrency is the stablecoin assumed when a campaign does not name one.
const DefaultCurrency = "USDC"

const maxCurrencyLength = 12

var (
	// ErrAmountInvalid indicates a missing, malformed or non-positive amount.
	ErrAmountInvalid = apperrors.New(apperrors.CodeAmountInvalid, "amount must be greater than zero")
	// ErrAddressInvalid indicates a missing or malformed wallet address.
	ErrAddressInvalid = apperrors.New(apperrors.CodeAddressInvalid, "wallet address is required")
)

// ParseAmount parses a decimal string and requires it to be positive.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.CodeAmountInvalid, "amount is not a decimal number", err)
	}
	if err := RequirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// RequirePositive rejects zero and negative amounts.
func RequirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmountInvalid
	}
	return nil
}

// NormalizeCurrency upper-cases a currency symbol and checks its shape.
// An empty value resolves to DefaultCurrency.
func NormalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if currency == "" {
		return DefaultCurrency, nil
	}
	if len(currency) > maxCurrencyLength {
		return "", currencyError(raw)
	}
	for _, r := range currency {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return "", currencyError(raw)
		}
	}
	return currency, nil
}

func currencyError(raw string) error {
	return apperrors.WithMetadata(apperrors.CodeCurrencyInvalid, "currency symbol is invalid", map[string]string{"Currency": raw})
}

// NormalizeAddress trims an on-chain address. Addresses are opaque to the
// core; only presence and the absence of whitespace are checked.
func NormalizeAddress(raw string) (string, error) {
	address := strings.TrimSpace(raw)
	if address == "" || strings.ContainsFunc(address, unicode.IsSpace) {
		return "", ErrAddressInvalid
	}
	return address, nil
}

// SameAddress compares two addresses ignoring case, matching how hex
// checksummed addresses are rendered by different clients.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// WithinTolerance reports whether |got - want| <= tolerance.
func WithinTolerance(got, want, tolerance decimal.Decimal) bool {
	return got.Sub(want).Abs().LessThanOrEqual(tolerance)
}
