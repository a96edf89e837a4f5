// Package oracle defines the read-only view of the on-chain stablecoin
// ledger that reconciliation checks donations against.
package oracle

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

// ErrTransferNotFound indicates the chain has no transfer for a reference.
// It is a definitive answer, not a failed read.
var ErrTransferNotFound = errors.New("transfer not found")

// Transfer is the chain's view of one stablecoin transfer.
type Transfer struct {
	TxRef         string
	From          string
	To            string
	Amount        decimal.Decimal
	Confirmations int64
	Reverted      bool
}

// Oracle reads transfers and balances from the chain. Implementations
// return ErrTransferNotFound for unknown references and an
// unavailable-coded error for every failed read; they never substitute
// canned data.
type Oracle interface {
	GetTransfer(ctx context.Context, txRef string) (Transfer, error)
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Unavailable wraps a failed oracle read.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.CodeOracleUnavailable, "chain oracle unavailable", cause)
}

// IsUnavailable reports whether err is a failed oracle read.
func IsUnavailable(err error) bool {
	return apperrors.IsKind(err, apperrors.KindOracleUnavailable)
}
