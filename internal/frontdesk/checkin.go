package frontdesk

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"

	"go.uber.org/zap"
)

// OfferedTransitions lists the statuses staff may move a booking to.
// cancellation_pending is set elsewhere and never offered.
func OfferedTransitions(status string) []string {
	switch entity.BookingStatus(status) {
	case entity.BookingStatusPending:
		return []string{string(entity.BookingStatusAttended), string(entity.BookingStatusNoShow), string(entity.BookingStatusCancelled)}
	case entity.BookingStatusCancellationPending:
		return []string{string(entity.BookingStatusAttended), string(entity.BookingStatusNoShow)}
	case entity.BookingStatusAttended:
		return []string{string(entity.BookingStatusNoShow)}
	case entity.BookingStatusNoShow:
		return []string{string(entity.BookingStatusAttended)}
	}
	return nil
}

// AttendanceGate returns a non-nil error when the roster blocks attended.
func AttendanceGate(r *response.RosterResponse) error {
	if r == nil {
		return ErrNoBooking
	}
	gate := response.PaymentGate{Validation: r.Validation, FinancialSummary: r.FinancialSummary}
	if r.Validation.Incomplete() {
		return &PaymentRequiredError{
			Message: fmt.Sprintf("roster incomplete: %d empty slot(s)", r.Validation.EmptySlots),
			Gate:    gate,
		}
	}
	if r.FinancialSummary.PaymentRequired() {
		return &PaymentRequiredError{Message: "outstanding fees must be settled", Gate: gate}
	}
	return nil
}

// CheckinController moves the open booking through its lifecycle statuses.
type CheckinController struct {
	api       API
	roster    *RosterStore
	bookingID string
	ctx       context.Context
	em        emitter
	log       *zap.Logger

	mu       sync.Mutex
	inFlight bool
}

func newCheckinController(ctx context.Context, api API, roster *RosterStore, bookingID string, em emitter, log *zap.Logger) *CheckinController {
	return &CheckinController{
		api:       api,
		roster:    roster,
		bookingID: bookingID,
		ctx:       ctx,
		em:        em,
		log:       log.With(zap.String("component", "checkin")),
	}
}

// Offered lists the transitions available for the current status.
func (c *CheckinController) Offered() []string {
	r := c.roster.Current()
	if r == nil {
		return nil
	}
	return OfferedTransitions(r.Booking.Status)
}

// CanAttend reports whether the attended transition is enabled.
func (c *CheckinController) CanAttend() bool {
	r := c.roster.Current()
	if r == nil || !slices.Contains(OfferedTransitions(r.Booking.Status), string(entity.BookingStatusAttended)) {
		return false
	}
	return AttendanceGate(r) == nil
}

// SetStatus applies a status change. confirmPayment records outstanding
// fees as collected at the desk in the same call; the roster must still be
// complete.
func (c *CheckinController) SetStatus(ctx context.Context, status string, confirmPayment bool) error {
	if c.ctx.Err() != nil {
		return ErrNoBooking
	}
	r := c.roster.Current()
	if r == nil {
		return ErrNoBooking
	}
	if r.Booking.Status == status {
		return nil
	}
	if !slices.Contains(OfferedTransitions(r.Booking.Status), status) {
		return fmt.Errorf("%w: %s to %s", ErrTransitionNotOffered, r.Booking.Status, status)
	}

	if status == string(entity.BookingStatusAttended) {
		if err := AttendanceGate(r); err != nil {
			if r.Validation.Incomplete() || !confirmPayment {
				return err
			}
		}
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrBusy
	}
	c.inFlight = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	_, err := c.api.Checkin(ctx, c.bookingID, request.CheckinRequest{
		Status:         status,
		ConfirmPayment: confirmPayment,
	})
	if err != nil {
		c.em.toast(err.Error())
		return err
	}

	c.log.Info("Booking status changed",
		zap.String("booking_id", c.bookingID),
		zap.String("from", r.Booking.Status),
		zap.String("to", status),
	)
	c.em.toast(fmt.Sprintf("Booking marked %s", status))

	_, err = c.roster.Refresh(ctx)
	return err
}
