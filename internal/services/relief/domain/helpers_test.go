package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func staticID(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func amt(value int64) decimal.Decimal { return decimal.NewFromInt(value) }
