package usecase

import (
	"context"
	"fmt"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/data/repository"
	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"

	"go.uber.org/zap"
)

type CheckinService interface {
	UpdateStatus(ctx context.Context, bookingID string, req *request.CheckinRequest) (*response.CheckinResponse, error)
}

type checkinService struct {
	repo *repository.Repository
	pub  Publisher
	log  *zap.Logger
}

func NewCheckinService(repo *repository.Repository, deps Deps, log *zap.Logger) CheckinService {
	return &checkinService{
		repo: repo,
		pub:  deps.Publisher,
		log:  log.With(zap.String("service", "checkin")),
	}
}

// AllowedTransition reports whether staff may move a booking from one status
// to another. Attended and no-show can be corrected into each other;
// cancellation is only offered while pending. cancellation_pending is set
// elsewhere and never written here.
func AllowedTransition(from, to entity.BookingStatus) bool {
	switch to {
	case entity.BookingStatusAttended, entity.BookingStatusNoShow:
		return from == entity.BookingStatusPending ||
			from == entity.BookingStatusCancellationPending ||
			from == entity.BookingStatusAttended ||
			from == entity.BookingStatusNoShow
	case entity.BookingStatusCancelled:
		return from == entity.BookingStatusPending
	}
	return false
}

func (s *checkinService) UpdateStatus(ctx context.Context, bookingID string, req *request.CheckinRequest) (*response.CheckinResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, err := loadBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}

	to := entity.BookingStatus(req.Status)
	if booking.Status == to {
		return &response.CheckinResponse{BookingID: bookingID, Status: string(to)}, nil
	}
	if !AllowedTransition(booking.Status, to) {
		return nil, fmt.Errorf("%s to %s: %w", booking.Status, to, ErrInvalidTransition)
	}

	var settlement *entity.PaymentRecord
	if to == entity.BookingStatusAttended {
		if settlement, err = s.gate(ctx, booking, req.ConfirmPayment); err != nil {
			return nil, err
		}
	}

	if settlement != nil {
		settled, err := s.repo.Participant.SettleAndAttend(ctx, settlement)
		if err != nil {
			return nil, err
		}
		s.log.Info("Fees collected at check-in",
			zap.String("booking_id", bookingID),
			zap.Int64("participants", settled),
			zap.Int64("amount_cents", settlement.AmountCents),
		)
		publish(ctx, s.pub, s.log, response.PushBillingUpdate, bookingID, response.ActionAllConfirmed)
	} else if err := s.repo.Booking.UpdateStatus(ctx, booking.ID, to); err != nil {
		return nil, fmt.Errorf("update booking %s status: %w", bookingID, err)
	}

	publish(ctx, s.pub, s.log, response.PushRosterUpdate, bookingID, response.ActionStatusChanged)

	s.log.Info("Booking status changed",
		zap.String("booking_id", bookingID),
		zap.String("from", string(booking.Status)),
		zap.String("to", string(to)),
		zap.Bool("confirm_payment", req.ConfirmPayment),
	)
	return &response.CheckinResponse{BookingID: bookingID, Status: string(to)}, nil
}

// gate blocks attendance while slots are empty or fees are outstanding.
// With confirmPayment it returns the desk settlement to record with the
// status change.
func (s *checkinService) gate(ctx context.Context, booking *entity.Booking, confirmPayment bool) (*entity.PaymentRecord, error) {
	participants, err := s.repo.Participant.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", booking.ID.String(), err)
	}

	roster := buildRoster(booking, participants, nil)
	gate := response.PaymentGate{Validation: roster.Validation, FinancialSummary: roster.FinancialSummary}

	if !booking.RosterCommitted || roster.Validation.Incomplete() {
		return nil, &PaymentGateError{Reason: "roster incomplete", Gate: gate}
	}

	if !roster.FinancialSummary.PaymentRequired() {
		return nil, nil
	}
	if !confirmPayment {
		return nil, &PaymentGateError{Reason: "outstanding fees", Gate: gate}
	}

	amount, ids := outstanding(participants)
	return newPaymentRecord(booking.ID, entity.PaymentMethodCash, amount, entity.PaymentRecordConfirmed, ids), nil
}
