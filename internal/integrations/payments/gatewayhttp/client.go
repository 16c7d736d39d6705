package gatewayhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/FreshOps/MarketBox/internal/integrations/payments"
	"github.com/pkg/errors"
)

// Client talks to the payment gateway emulator over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:9100"
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type intentBody struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderRef    string `json:"order_ref"`
	Status      string `json:"status"`
}

type refundBody struct {
	ID       string `json:"id"`
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency, orderRef string) (*payments.Intent, error) {
	payload := map[string]any{
		"amount":    amountCents,
		"currency":  currency,
		"order_ref": orderRef,
	}
	var body intentBody
	if err := c.post(ctx, "/v1/payment_intents", payload, &body); err != nil {
		return nil, err
	}
	return toIntent(body), nil
}

func (c *Client) Confirm(ctx context.Context, intentID string) (*payments.Intent, error) {
	var body intentBody
	path := fmt.Sprintf("/v1/payment_intents/%s/confirm", url.PathEscape(intentID))
	if err := c.post(ctx, path, map[string]any{}, &body); err != nil {
		return nil, err
	}
	return toIntent(body), nil
}

func (c *Client) Refund(ctx context.Context, intentID string, amountCents int64, reason string) (*payments.Refund, error) {
	payload := map[string]any{
		"intent_id": intentID,
		"reason":    reason,
	}
	if amountCents > 0 {
		payload["amount"] = amountCents
	}
	var body refundBody
	if err := c.post(ctx, "/v1/refunds", payload, &body); err != nil {
		return nil, err
	}
	return &payments.Refund{
		ID:          body.ID,
		IntentID:    body.IntentID,
		AmountCents: body.Amount,
		Reason:      body.Reason,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path

	b, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "gateway request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("gateway returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode gateway response")
	}
	return nil
}

func toIntent(b intentBody) *payments.Intent {
	return &payments.Intent{
		ID:          b.ID,
		AmountCents: b.Amount,
		Currency:    b.Currency,
		OrderRef:    b.OrderRef,
		Status:      b.Status,
	}
}
