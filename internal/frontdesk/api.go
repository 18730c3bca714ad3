// Package frontdesk is the desk-side engine that assigns rosters, collects
// payments and checks bookings in. It talks to the server only through API.
package frontdesk

import (
	"context"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
)

// API is the server surface the engine consumes. deskapi.Client implements
// it over HTTP and websocket.
type API interface {
	GetRoster(ctx context.Context, bookingID string) (*response.RosterResponse, error)
	LinkMember(ctx context.Context, bookingID, slotID, email string) error
	UnlinkMember(ctx context.Context, bookingID, slotID string) error
	AddGuest(ctx context.Context, bookingID string, req request.AddGuestRequest) error
	RemoveGuest(ctx context.Context, bookingID, guestID string) error
	UpdatePlayerCount(ctx context.Context, bookingID string, count int) error
	SearchMembers(ctx context.Context, query string, limit int) ([]response.MemberResponse, error)
	EstimateFees(ctx context.Context, req request.FeeEstimateRequest) (*response.FeeEstimateResponse, error)

	ResolveLegacyReview(ctx context.Context, reviewID string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error)
	AssignPendingBooking(ctx context.Context, bookingID string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error)
	LinkExternalImport(ctx context.Context, externalID string, req request.FinalizeRosterRequest) (*response.FinalizeResponse, error)

	UpdatePayments(ctx context.Context, bookingID string, req request.UpdatePaymentsRequest) (*response.PaymentActionResponse, error)
	GetSavedCard(ctx context.Context, email string) (*response.SavedCardResponse, error)
	ChargeSavedCard(ctx context.Context, req request.ChargeSavedCardRequest) (*response.ChargeSavedCardResponse, error)
	CreateHostedPayment(ctx context.Context, req request.HostedPaymentRequest) (*response.HostedPaymentResponse, error)
	ConfirmPayment(ctx context.Context, intentID string) (*response.ConfirmPaymentResponse, error)
	CreateTerminalPayment(ctx context.Context, req request.TerminalPaymentRequest) (*response.TerminalPaymentResponse, error)
	VoidPayments(ctx context.Context, bookingID string) (*response.VoidPaymentsResponse, error)

	Checkin(ctx context.Context, bookingID string, req request.CheckinRequest) (*response.CheckinResponse, error)

	// Subscribe streams push events for a booking. The channel is closed
	// once ctx is done or the stream ends.
	Subscribe(ctx context.Context, bookingID string) (<-chan response.PushEvent, error)
}
