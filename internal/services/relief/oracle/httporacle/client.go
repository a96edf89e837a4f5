// Package httporacle reads chain state from an HTTP JSON indexer.
package httporacle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reliefnet/reliefnet/internal/platform/timeouts"
	"github.com/reliefnet/reliefnet/internal/services/relief/oracle"
)

// Client calls an indexer exposing /v1/transfers/{ref} and
// /v1/balances/{address}.
type Client struct {
	baseURL string
	client  *http.Client
}

var _ oracle.Oracle = (*Client)(nil)

type transferResponse struct {
	TxRef         string           `json:"tx_ref"`
	From          string           `json:"from"`
	To            string           `json:"to"`
	Amount        *decimal.Decimal `json:"amount"`
	Confirmations int64            `json:"confirmations"`
	Reverted      bool             `json:"reverted"`
}

type balanceResponse struct {
	Address string           `json:"address"`
	Amount  *decimal.Decimal `json:"amount"`
}

// New creates a client for baseURL. A nil client gets a default with the
// oracle request timeout.
func New(baseURL string, client *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("oracle base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse oracle base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: timeouts.OracleRequest}
	}
	return &Client{baseURL: baseURL, client: client}, nil
}

// GetTransfer fetches one transfer. A 404 is ErrTransferNotFound; transport
// failures, any other non-200 status and bodies missing the sender,
// recipient or amount are unavailable reads.
func (c *Client) GetTransfer(ctx context.Context, txRef string) (oracle.Transfer, error) {
	var payload transferResponse
	found, err := c.getJSON(ctx, "/v1/transfers/"+url.PathEscape(txRef), &payload)
	if err != nil {
		return oracle.Transfer{}, err
	}
	if !found {
		return oracle.Transfer{}, oracle.ErrTransferNotFound
	}
	if err := payload.validate(); err != nil {
		return oracle.Transfer{}, oracle.Unavailable(fmt.Errorf("transfer %s: %w", txRef, err))
	}
	if payload.TxRef == "" {
		payload.TxRef = txRef
	}
	return oracle.Transfer{
		TxRef:         payload.TxRef,
		From:          strings.TrimSpace(payload.From),
		To:            strings.TrimSpace(payload.To),
		Amount:        *payload.Amount,
		Confirmations: payload.Confirmations,
		Reverted:      payload.Reverted,
	}, nil
}

// GetBalance fetches the stablecoin balance of address. Any non-200 status
// is an unavailable read.
func (c *Client) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	var payload balanceResponse
	found, err := c.getJSON(ctx, "/v1/balances/"+url.PathEscape(address), &payload)
	if err != nil {
		return decimal.Zero, err
	}
	if !found {
		return decimal.Zero, oracle.Unavailable(fmt.Errorf("balance for %s not found", address))
	}
	if payload.Amount == nil {
		return decimal.Zero, oracle.Unavailable(fmt.Errorf("balance for %s: response has no amount", address))
	}
	return *payload.Amount, nil
}

// validate rejects partial indexer bodies so they never read as chain truth.
func (p transferResponse) validate() error {
	switch {
	case strings.TrimSpace(p.From) == "":
		return errors.New("response has no sender")
	case strings.TrimSpace(p.To) == "":
		return errors.New("response has no recipient")
	case p.Amount == nil:
		return errors.New("response has no amount")
	case p.Confirmations < 0:
		return errors.New("response has negative confirmations")
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("build oracle request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		return false, oracle.Unavailable(fmt.Errorf("oracle request %s: %w", path, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, oracle.Unavailable(fmt.Errorf("oracle %s returned %s", path, resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, oracle.Unavailable(fmt.Errorf("decode oracle response %s: %w", path, err))
	}
	return true, nil
}
