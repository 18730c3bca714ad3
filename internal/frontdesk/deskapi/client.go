// Package deskapi implements frontdesk.API against the roster-desk HTTP API
// and its websocket event stream.
package deskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/internal/frontdesk"
	"roster-desk/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var _ frontdesk.API = (*Client)(nil)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	dialer  *websocket.Dialer
	log     *zap.Logger
}

func NewClient(config utils.DeskConfig, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(config.APIBaseURL, "/"),
		token:   config.StaffToken,
		http:    &http.Client{Timeout: 15 * time.Second},
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:     log.With(zap.String("client", "deskapi")),
	}
}

// envelope mirrors utils.Response with raw payloads.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Request failed", zap.Error(err), zap.String("method", method), zap.String("path", path))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		if resp.StatusCode >= 300 {
			return &frontdesk.APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, &env)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}

// decodeError maps an error envelope onto the engine's error taxonomy.
func decodeError(status int, env *envelope) error {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}

	var fields map[string]string
	if len(env.Errors) > 0 {
		_ = json.Unmarshal(env.Errors, &fields)
	}

	switch status {
	case http.StatusBadRequest:
		if len(fields) == 1 {
			for field, m := range fields {
				return &frontdesk.ValidationError{Field: field, Message: m}
			}
		}
		if len(fields) > 1 {
			msg = msg + ": " + utils.FormatValidationErrors(fields)
		}
		return &frontdesk.ValidationError{Message: msg}

	case http.StatusPaymentRequired:
		gate := &frontdesk.PaymentRequiredError{Message: msg}
		if len(env.Data) > 0 {
			_ = json.Unmarshal(env.Data, &gate.Gate)
		}
		return gate

	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", frontdesk.ErrNotFound, msg)

	case http.StatusConflict:
		var data struct {
			MemberMatch *response.MemberMatchResponse `json:"member_match"`
		}
		if len(env.Data) > 0 && json.Unmarshal(env.Data, &data) == nil && data.MemberMatch != nil {
			return &frontdesk.MemberMatchWarning{Member: *data.MemberMatch}
		}
	}

	return &frontdesk.APIError{Status: status, Message: msg, Fields: fields}
}

func bookingPath(bookingID string, parts ...string) string {
	p := "/api/bookings/" + url.PathEscape(bookingID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (c *Client) GetRoster(ctx context.Context, bookingID string) (*response.RosterResponse, error) {
	var out response.RosterResponse
	if err := c.do(ctx, http.MethodGet, bookingPath(bookingID, "roster"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) LinkMember(ctx context.Context, bookingID, slotID, email string) error {
	path := bookingPath(bookingID, "slots", url.PathEscape(slotID), "link")
	return c.do(ctx, http.MethodPut, path, nil, request.LinkMemberRequest{Email: email}, nil)
}

func (c *Client) UnlinkMember(ctx context.Context, bookingID, slotID string) error {
	path := bookingPath(bookingID, "slots", url.PathEscape(slotID), "unlink")
	return c.do(ctx, http.MethodPut, path, nil, nil, nil)
}

func (c *Client) AddGuest(ctx context.Context, bookingID string, req request.AddGuestRequest) error {
	return c.do(ctx, http.MethodPost, bookingPath(bookingID, "guests"), nil, req, nil)
}

func (c *Client) RemoveGuest(ctx context.Context, bookingID, guestID string) error {
	return c.do(ctx, http.MethodDelete, bookingPath(bookingID, "guests", url.PathEscape(guestID)), nil, nil, nil)
}

func (c *Client) UpdatePlayerCount(ctx context.Context, bookingID string, count int) error {
	return c.do(ctx, http.MethodPatch, bookingPath(bookingID, "player-count"), nil, request.UpdatePlayerCountRequest{Count: count}, nil)
}

func (c *Client) SearchMembers(ctx context.Context, query string, limit int) ([]response.MemberResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out []response.MemberResponse
	if err := c.do(ctx, http.MethodGet, "/api/members/search", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) EstimateFees(ctx context.Context, req request.FeeEstimateRequest) (*response.FeeEstimateResponse, error) {
	params := url.Values{}
	params.Set("email", req.Email)
	params.Set("duration_minutes", strconv.Itoa(req.DurationMinutes))
	params.Set("player_count", strconv.Itoa(req.PlayerCount))
	params.Set("guest_count", strconv.Itoa(req.GuestCount))
	if req.Date != "" {
		params.Set("date", req.Date)
	}

	var out response.FeeEstimateResponse
	if err := c.do(ctx, http.MethodGet, "/api/fee-estimate", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) finalize(ctx context.Context, path string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	var out response.FinalizeResponse
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResolveLegacyReview(ctx context.Context, reviewID string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	return c.finalize(ctx, "/api/legacy-reviews/"+url.PathEscape(reviewID)+"/assign", req)
}

func (c *Client) AssignPendingBooking(ctx context.Context, bookingID string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	return c.finalize(ctx, bookingPath(bookingID, "assign"), req)
}

func (c *Client) LinkExternalImport(ctx context.Context, externalID string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	return c.finalize(ctx, "/api/external-bookings/"+url.PathEscape(externalID)+"/assign", req)
}

func (c *Client) UpdatePayments(ctx context.Context, bookingID string, req request.UpdatePaymentsRequest) (*response.PaymentActionResponse, error) {
	var out response.PaymentActionResponse
	if err := c.do(ctx, http.MethodPatch, bookingPath(bookingID, "payments"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSavedCard(ctx context.Context, email string) (*response.SavedCardResponse, error) {
	params := url.Values{}
	params.Set("email", email)

	var out response.SavedCardResponse
	if err := c.do(ctx, http.MethodGet, "/api/payments/saved-card", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ChargeSavedCard(ctx context.Context, req request.ChargeSavedCardRequest) (*response.ChargeSavedCardResponse, error) {
	var out response.ChargeSavedCardResponse
	if err := c.do(ctx, http.MethodPost, "/api/payments/charge-saved-card", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateHostedPayment(ctx context.Context, req request.HostedPaymentRequest) (*response.HostedPaymentResponse, error) {
	var out response.HostedPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/api/payments/hosted", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ConfirmPayment(ctx context.Context, intentID string) (*response.ConfirmPaymentResponse, error) {
	var out response.ConfirmPaymentResponse
	body := request.ConfirmPaymentRequest{PaymentIntentID: intentID}
	if err := c.do(ctx, http.MethodPost, "/api/payments/confirm", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTerminalPayment(ctx context.Context, req request.TerminalPaymentRequest) (*response.TerminalPaymentResponse, error) {
	var out response.TerminalPaymentResponse
	if err := c.do(ctx, http.MethodPost, "/api/payments/terminal", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) VoidPayments(ctx context.Context, bookingID string) (*response.VoidPaymentsResponse, error) {
	var out response.VoidPaymentsResponse
	if err := c.do(ctx, http.MethodPost, bookingPath(bookingID, "payments", "void"), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Checkin(ctx context.Context, bookingID string, req request.CheckinRequest) (*response.CheckinResponse, error) {
	var out response.CheckinResponse
	if err := c.do(ctx, http.MethodPut, bookingPath(bookingID, "checkin"), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
