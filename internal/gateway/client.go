package gateway

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/wareqa/creditledger/internal/config"
	"github.com/wareqa/creditledger/pkg/clients"
)

// Payment statuses as reported by the gateway.
const (
	StatusInitiated  = "initiated"
	StatusAuthorized = "authorized"
	StatusPaid       = "paid"
	StatusFailed     = "failed"
)

var ErrPaymentNotFound = errors.New("payment not found at gateway")

// RateLimitError reports a 429 response together with the delay the
// gateway asked for.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gateway rate limit, retry after %s", e.RetryAfter)
}

// Payment is the gateway's view of one checkout. Amount is in the smallest
// currency unit (halalas); metadata carries what the checkout form attached.
type Payment struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Metadata struct {
		UserID         string `json:"user_id"`
		OriginalAmount int64  `json:"original_amount"`
	} `json:"metadata"`
}

// AmountUnits converts the gateway amount to whole currency units, favoring
// the original amount the checkout attached, since that is what the pricing
// table is keyed on.
func (p *Payment) AmountUnits() int64 {
	if p.Metadata.OriginalAmount > 0 {
		return p.Metadata.OriginalAmount
	}
	return p.Amount / 100
}

type Client struct {
	baseURL string
	apiKey  string
	client  clients.HTTPClientI
}

func NewClient(cfg *config.Config, client clients.HTTPClientI) *Client {
	return &Client{
		baseURL: cfg.GatewayAddress,
		apiKey:  cfg.GatewayAPIKey,
		client:  client,
	}
}

// FetchPayment reads the payment's current state from the gateway.
func (c *Client) FetchPayment(paymentID string) (*Payment, error) {
	url := c.baseURL + "/v1/payments/" + paymentID

	headers := http.Header{}
	headers.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(c.apiKey+":")))

	statusCode, respBody, respHeaders, err := c.client.Get(url, headers)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}

	switch statusCode {
	case http.StatusOK:
		var payment Payment
		if err := json.Unmarshal(respBody, &payment); err != nil {
			return nil, fmt.Errorf("failed to parse gateway response: %w", err)
		}
		if payment.ID != paymentID {
			return nil, fmt.Errorf("payment id mismatch: expected %s, got %s", paymentID, payment.ID)
		}
		return &payment, nil
	case http.StatusNotFound:
		return nil, ErrPaymentNotFound
	case http.StatusTooManyRequests:
		retryAfter := time.Second
		if seconds, err := strconv.Atoi(respHeaders.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(seconds) * time.Second
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}
	default:
		return nil, fmt.Errorf("unexpected gateway status code %d", statusCode)
	}
}
