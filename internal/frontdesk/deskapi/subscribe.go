package deskapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"roster-desk/internal/dto/response"

	"go.uber.org/zap"
)

func (c *Client) wsURL(path string) string {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + path
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + path
	}
	return c.baseURL + path
}

// Subscribe opens the booking event stream. The returned channel is closed
// when ctx is done or the server drops the connection.
func (c *Client) Subscribe(ctx context.Context, bookingID string) (<-chan response.PushEvent, error) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL("/ws/bookings/"+url.PathEscape(bookingID)), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribe booking %s: status %d: %w", bookingID, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("subscribe booking %s: %w", bookingID, err)
	}

	events := make(chan response.PushEvent, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	go func() {
		defer close(events)
		defer close(done)
		defer conn.Close()

		for {
			var ev response.PushEvent
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() == nil {
					c.log.Info("Event stream closed", zap.Error(err), zap.String("booking_id", bookingID))
				}
				return
			}

			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
