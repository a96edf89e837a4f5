package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount(" 12.50 ")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(12.5)) {
		t.Fatalf("amount = %s, want 12.5", got)
	}

	for _, raw := range []string{"", "abc", "0", "-3"} {
		if _, err := ParseAmount(raw); !errors.Is(err, ErrAmountInvalid) {
			t.Fatalf("ParseAmount(%q) error = %v, want %v", raw, err, ErrAmountInvalid)
		}
	}
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{raw: "", want: DefaultCurrency, ok: true},
		{raw: " usdc ", want: "USDC", ok: true},
		{raw: "EURC2", want: "EURC2", ok: true},
		{raw: "US-D", ok: false},
		{raw: "ABCDEFGHIJKLMN", ok: false},
	}
	for _, tt := range tests {
		got, err := NormalizeCurrency(tt.raw)
		if !tt.ok {
			if apperrors.CodeOf(err) != apperrors.CodeCurrencyInvalid {
				t.Fatalf("NormalizeCurrency(%q) error = %v, want currency invalid", tt.raw, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("NormalizeCurrency(%q) = %q, %v, want %q", tt.raw, got, err, tt.want)
		}
	}
}

func TestNormalizeAddress(t *testing.T) {
	if got, err := NormalizeAddress(" 0xAbC "); err != nil || got != "0xAbC" {
		t.Fatalf("NormalizeAddress = %q, %v", got, err)
	}
	for _, raw := range []string{"", "   ", "0x a"} {
		if _, err := NormalizeAddress(raw); !errors.Is(err, ErrAddressInvalid) {
			t.Fatalf("NormalizeAddress(%q) error = %v", raw, err)
		}
	}
}

func TestSameAddressIgnoresCase(t *testing.T) {
	if !SameAddress("0xABCdef", " 0xabcDEF") {
		t.Fatal("expected addresses to match")
	}
	if SameAddress("0xabc", "0xabd") {
		t.Fatal("expected addresses to differ")
	}
}

func TestWithinTolerance(t *testing.T) {
	tol := decimal.NewFromFloat(0.01)
	if !WithinTolerance(decimal.NewFromFloat(99.99), amt(100), tol) {
		t.Fatal("expected 99.99 within 0.01 of 100")
	}
	if WithinTolerance(decimal.NewFromFloat(99.98), amt(100), tol) {
		t.Fatal("expected 99.98 outside 0.01 of 100")
	}
	if !WithinTolerance(amt(100), amt(100), decimal.Zero) {
		t.Fatal("expected exact match within zero tolerance")
	}
}
