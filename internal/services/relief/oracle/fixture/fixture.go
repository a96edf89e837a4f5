// Package fixture serves chain reads from a YAML file for local runs.
//
//	transfers:
//	  - tx_ref: 0xabc
//	    from: 0xdonor
//	    to: 0xfund-c1
//	    amount: "100.00"
//	    confirmations: 12
//	balances:
//	  0xfund-c1: "100.00"
//
// A transfer flagged unavailable answers with an unavailable read, which
// lets a developer exercise the reconciler's retry path.
package fixture

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/reliefnet/reliefnet/internal/services/relief/oracle"
)

type fileTransfer struct {
	TxRef         string `yaml:"tx_ref"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	Amount        string `yaml:"amount"`
	Confirmations int64  `yaml:"confirmations"`
	Reverted      bool   `yaml:"reverted"`
	Unavailable   bool   `yaml:"unavailable"`
}

type file struct {
	Transfers []fileTransfer    `yaml:"transfers"`
	Balances  map[string]string `yaml:"balances"`
}

type entry struct {
	transfer    oracle.Transfer
	unavailable bool
}

// Oracle answers from an in-memory copy of a fixture file.
type Oracle struct {
	transfers map[string]entry
	balances  map[string]decimal.Decimal
}

var _ oracle.Oracle = (*Oracle)(nil)

// Load reads a fixture file from path.
func Load(path string) (*Oracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read oracle fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML.
func Parse(data []byte) (*Oracle, error) {
	var raw file
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode oracle fixture: %w", err)
	}

	o := &Oracle{
		transfers: make(map[string]entry, len(raw.Transfers)),
		balances:  make(map[string]decimal.Decimal, len(raw.Balances)),
	}
	for idx, t := range raw.Transfers {
		ref := strings.TrimSpace(t.TxRef)
		if ref == "" {
			return nil, fmt.Errorf("transfer %d: tx_ref is required", idx)
		}
		if _, exists := o.transfers[ref]; exists {
			return nil, fmt.Errorf("transfer %s: duplicate tx_ref", ref)
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(t.Amount))
		if err != nil && !t.Unavailable {
			return nil, fmt.Errorf("transfer %s: amount: %w", ref, err)
		}
		o.transfers[ref] = entry{
			transfer: oracle.Transfer{
				TxRef:         ref,
				From:          strings.TrimSpace(t.From),
				To:            strings.TrimSpace(t.To),
				Amount:        amount,
				Confirmations: t.Confirmations,
				Reverted:      t.Reverted,
			},
			unavailable: t.Unavailable,
		}
	}
	for address, value := range raw.Balances {
		amount, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("balance %s: %w", address, err)
		}
		o.balances[strings.ToLower(strings.TrimSpace(address))] = amount
	}
	return o, nil
}

// GetTransfer returns the fixture transfer for txRef.
func (o *Oracle) GetTransfer(ctx context.Context, txRef string) (oracle.Transfer, error) {
	if err := ctx.Err(); err != nil {
		return oracle.Transfer{}, err
	}
	e, ok := o.transfers[strings.TrimSpace(txRef)]
	if !ok {
		return oracle.Transfer{}, oracle.ErrTransferNotFound
	}
	if e.unavailable {
		return oracle.Transfer{}, oracle.Unavailable(fmt.Errorf("fixture transfer %s is marked unavailable", txRef))
	}
	return e.transfer, nil
}

// GetBalance returns the fixture balance for address. Addresses absent from
// the file hold nothing.
func (o *Oracle) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	balance, ok := o.balances[strings.ToLower(strings.TrimSpace(address))]
	if !ok {
		return decimal.Zero, nil
	}
	return balance, nil
}
