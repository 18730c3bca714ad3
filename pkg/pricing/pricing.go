package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roster-desk/pkg/utils"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when the pricing service cannot produce a quote.
var ErrUnavailable = errors.New("pricing service unavailable")

type Query struct {
	Email           string
	DurationMinutes int
	PlayerCount     int
	GuestCount      int
	Date            string // YYYY-MM-DD, optional
}

// Quote is a fee estimate in cents split into the owner overage and the
// combined guest component.
type Quote struct {
	TotalCents   int64 `json:"total_cents"`
	OverageCents int64 `json:"overage_cents"`
	GuestCents   int64 `json:"guest_cents"`
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(config utils.PricingConfig, log *zap.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With(zap.String("client", "pricing")),
	}
}

// Estimate asks the pricing service for a quote.
func (c *Client) Estimate(ctx context.Context, q Query) (*Quote, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: no base URL configured", ErrUnavailable)
	}

	params := url.Values{}
	params.Set("email", q.Email)
	params.Set("duration_minutes", strconv.Itoa(q.DurationMinutes))
	params.Set("player_count", strconv.Itoa(q.PlayerCount))
	params.Set("guest_count", strconv.Itoa(q.GuestCount))
	if q.Date != "" {
		params.Set("date", q.Date)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/fees/estimate?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build estimate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Pricing request failed", zap.Error(err), zap.String("email", q.Email))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Pricing service returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("email", q.Email),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("%w: decode quote: %v", ErrUnavailable, err)
	}

	if quote.TotalCents == 0 {
		quote.TotalCents = quote.OverageCents + quote.GuestCents
	}

	return &quote, nil
}
