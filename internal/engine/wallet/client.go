// Package wallet is the HTTP client for the external wallet service. The
// engine only moves value through this surface; balances live elsewhere.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type transferRequest struct {
	Account     string `json:"account"`
	AmountCents int64  `json:"amountCents"`
	Ref         string `json:"ref"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) Debit(ctx context.Context, account string, amountCents int64, ref string) error {
	return c.post(ctx, "/wallet/debit", transferRequest{Account: account, AmountCents: amountCents, Ref: ref})
}

func (c *Client) Credit(ctx context.Context, account string, amountCents int64, ref string) error {
	return c.post(ctx, "/wallet/credit", transferRequest{Account: account, AmountCents: amountCents, Ref: ref})
}

func (c *Client) post(ctx context.Context, path string, payload transferRequest) error {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("wallet %s http %d", path, res.StatusCode)
	}
	return nil
}
