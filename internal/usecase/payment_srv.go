package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/data/repository"
	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/pkg/notify"
	"roster-desk/pkg/payment"
	"roster-desk/pkg/queue"
	"roster-desk/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SourceCharge  = "charge"
	SourceConfirm = "confirm"
	SourceWebhook = "webhook"
	SourceInvoice = "invoice"
)

type PaymentService interface {
	UpdatePayments(ctx context.Context, bookingID string, req *request.UpdatePaymentsRequest) (*response.PaymentActionResponse, error)
	GetSavedCard(ctx context.Context, email string) (*response.SavedCardResponse, error)
	ChargeSavedCard(ctx context.Context, req *request.ChargeSavedCardRequest) (*response.ChargeSavedCardResponse, error)
	CreateHostedPayment(ctx context.Context, req *request.HostedPaymentRequest) (*response.HostedPaymentResponse, error)
	ConfirmPayment(ctx context.Context, req *request.ConfirmPaymentRequest) (*response.ConfirmPaymentResponse, error)
	CreateTerminalPayment(ctx context.Context, req *request.TerminalPaymentRequest) (*response.TerminalPaymentResponse, error)
	VoidPayments(ctx context.Context, bookingID string) (*response.VoidPaymentsResponse, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// ReconcileIntent applies a succeeded intent to its participants. It
	// reports false when the intent was already reconciled.
	ReconcileIntent(ctx context.Context, intentID, source string) (bool, error)
}

type paymentService struct {
	repo     *repository.Repository
	provider PaymentProvider
	pub      Publisher
	notifier Notifier
	queue    ReconcileQueue
	log      *zap.Logger
}

func NewPaymentService(repo *repository.Repository, deps Deps, log *zap.Logger) PaymentService {
	return &paymentService{
		repo:     repo,
		provider: deps.Provider,
		pub:      deps.Publisher,
		notifier: deps.Notifier,
		queue:    deps.Queue,
		log:      log.With(zap.String("service", "payment")),
	}
}

func newPaymentRecord(bookingID uuid.UUID, method entity.PaymentMethod, amount int64, status entity.PaymentRecordStatus, ids []string) *entity.PaymentRecord {
	now := time.Now()
	return &entity.PaymentRecord{
		BaseNoDelete:   entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:      bookingID,
		Method:         method,
		AmountCents:    amount,
		Status:         status,
		ParticipantIDs: ids,
	}
}

func outstanding(participants []*entity.Participant) (int64, []string) {
	var total int64
	var ids []string
	for _, p := range participants {
		if !p.Settled() {
			total += p.FeeCents
			ids = append(ids, p.ID.String())
		}
	}
	return total, ids
}

// selectCharge resolves participant ids on a booking and sums what they owe.
func (s *paymentService) selectCharge(ctx context.Context, bookingID string, ids []string) (*entity.Booking, int64, error) {
	booking, err := loadBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, 0, err
	}

	participants, err := s.repo.Participant.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("load roster %s: %w", bookingID, err)
	}

	var amount int64
	for _, id := range ids {
		p, err := findParticipant(participants, id)
		if err != nil {
			return nil, 0, err
		}
		if !p.Settled() {
			amount += p.FeeCents
		}
	}
	if amount <= 0 {
		return nil, 0, invalid("nothing outstanding for the selected participants")
	}
	return booking, amount, nil
}

func (s *paymentService) UpdatePayments(ctx context.Context, bookingID string, req *request.UpdatePaymentsRequest) (*response.PaymentActionResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Action.NeedsParticipant() && (req.ParticipantID == nil || *req.ParticipantID == "") {
		return nil, invalid("%s needs a participant", req.Action)
	}
	var reason *string
	if req.Action.NeedsReason() {
		if req.Reason == nil || strings.TrimSpace(*req.Reason) == "" {
			return nil, invalid("a waiver reason is required")
		}
		r := strings.TrimSpace(*req.Reason)
		reason = &r
	}

	booking, participants, err := loadEditable(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}

	var target *entity.Participant
	if req.Action.NeedsParticipant() {
		if target, err = findParticipant(participants, *req.ParticipantID); err != nil {
			return nil, err
		}
	}

	var updated int64
	var record *entity.PaymentRecord

	switch req.Action {
	case request.PaymentActionConfirm:
		if target.Settled() {
			break
		}
		if updated, err = s.repo.Participant.SettleByIDs(ctx, booking.ID, []string{target.ID.String()}, entity.PaymentStatusPaid); err != nil {
			return nil, err
		}
		record = newPaymentRecord(booking.ID, entity.PaymentMethodCash, target.FeeCents, entity.PaymentRecordConfirmed, []string{target.ID.String()})

	case request.PaymentActionConfirmAll:
		amount, ids := outstanding(participants)
		if updated, err = s.repo.Participant.SettlePending(ctx, booking.ID, entity.PaymentStatusPaid, nil); err != nil {
			return nil, err
		}
		if updated > 0 {
			record = newPaymentRecord(booking.ID, entity.PaymentMethodCash, amount, entity.PaymentRecordConfirmed, ids)
		}

	case request.PaymentActionWaive:
		if target.Settled() {
			break
		}
		target.PaymentStatus = entity.PaymentStatusWaived
		target.WaiverReason = reason
		if err := s.repo.Participant.Update(ctx, target); err != nil {
			return nil, err
		}
		updated = 1
		record = newPaymentRecord(booking.ID, entity.PaymentMethodWaiver, target.FeeCents, entity.PaymentRecordConfirmed, []string{target.ID.String()})
		record.Note = reason

	case request.PaymentActionWaiveAll:
		amount, ids := outstanding(participants)
		if updated, err = s.repo.Participant.SettlePending(ctx, booking.ID, entity.PaymentStatusWaived, reason); err != nil {
			return nil, err
		}
		if updated > 0 {
			record = newPaymentRecord(booking.ID, entity.PaymentMethodWaiver, amount, entity.PaymentRecordConfirmed, ids)
			record.Note = reason
		}

	case request.PaymentActionUseGuestPass:
		if err := s.useGuestPass(ctx, booking, target); err != nil {
			return nil, err
		}
		updated = 1
	}

	if record != nil {
		if err := s.repo.Payment.Create(ctx, record); err != nil {
			// rows are already settled; the ledger entry is audit only
			s.log.Error("Failed to record desk settlement", zap.Error(err), zap.String("booking_id", bookingID))
		}
		if req.Action == request.PaymentActionConfirmAll || req.Action == request.PaymentActionWaiveAll {
			s.sendReceipt(ctx, booking, record)
		}
	}

	if updated > 0 {
		publish(ctx, s.pub, s.log, response.PushBillingUpdate, bookingID, string(req.Action))
	}

	s.log.Info("Payments updated",
		zap.String("booking_id", bookingID),
		zap.String("action", string(req.Action)),
		zap.Int64("updated", updated),
	)
	return &response.PaymentActionResponse{Updated: updated}, nil
}

func (s *paymentService) useGuestPass(ctx context.Context, booking *entity.Booking, p *entity.Participant) error {
	if !p.IsGuest() {
		return fmt.Errorf("participant %s is not a guest: %w", p.ID.String(), ErrGuestPassUnavailable)
	}
	if p.UsedGuestPass {
		return fmt.Errorf("participant %s already used a pass: %w", p.ID.String(), ErrGuestPassUnavailable)
	}
	if p.PaymentStatus != entity.PaymentStatusPending {
		return fmt.Errorf("participant %s is already %s: %w", p.ID.String(), p.PaymentStatus, ErrGuestPassUnavailable)
	}

	month := booking.GuestPassMonth()
	ledger, err := s.repo.GuestPass.FindByOwner(ctx, booking.OwnerEmail, month)
	if err != nil {
		return fmt.Errorf("load guest passes for %s: %w", booking.OwnerEmail, err)
	}
	if ledger.Remaining() == 0 {
		return fmt.Errorf("%s has no guest passes left for %s: %w", booking.OwnerEmail, month, ErrGuestPassUnavailable)
	}

	err = s.repo.Participant.ApplyGuestPass(ctx, p.ID, booking.OwnerEmail, month)
	if errors.Is(err, repository.ErrGuestPassExhausted) || errors.Is(err, repository.ErrGuestPassAlreadyUsed) {
		return fmt.Errorf("%v: %w", err, ErrGuestPassUnavailable)
	}
	return err
}

func (s *paymentService) GetSavedCard(ctx context.Context, email string) (*response.SavedCardResponse, error) {
	email = utils.NormalizeEmail(email)
	if email == "" {
		return nil, invalid("email is required")
	}

	card, err := s.provider.FindSavedCard(ctx, email)
	if err != nil {
		s.log.Warn("Saved card lookup failed", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("look up saved card: %v: %w", err, ErrProvider)
	}
	if card == nil {
		return &response.SavedCardResponse{HasSavedCard: false}, nil
	}

	return &response.SavedCardResponse{
		HasSavedCard: true,
		Brand:        card.Brand,
		Last4:        card.Last4,
	}, nil
}

func (s *paymentService) ChargeSavedCard(ctx context.Context, req *request.ChargeSavedCardRequest) (*response.ChargeSavedCardResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, amount, err := s.selectCharge(ctx, req.BookingID, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	card, err := s.provider.FindSavedCard(ctx, utils.NormalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("look up saved card: %v: %w", err, ErrProvider)
	}
	if card == nil {
		return &response.ChargeSavedCardResponse{
			Outcome: response.ChargeOutcomeNoSavedCard,
			Message: "No saved card on file",
		}, nil
	}

	key := utils.IdempotencyKey("charge", req.BookingID, req.SessionID, utils.SortedJoin(req.ParticipantIDs))
	intent, err := s.provider.ChargeOffSession(ctx, payment.ChargeParams{
		Card:           *card,
		AmountCents:    amount,
		Description:    fmt.Sprintf("Booking %s", booking.ID.String()),
		Metadata:       map[string]string{"booking_id": booking.ID.String(), "method": string(entity.PaymentMethodCardOnFile)},
		IdempotencyKey: key,
	})

	var cardErr *payment.CardError
	switch {
	case errors.Is(err, payment.ErrRequiresAction):
		out := &response.ChargeSavedCardResponse{
			Outcome: response.ChargeOutcomeRequiresAction,
			Message: "Card requires additional verification",
		}
		if intent != nil {
			out.PaymentIntentID = intent.ID
		}
		return out, nil
	case errors.As(err, &cardErr):
		return &response.ChargeSavedCardResponse{
			Outcome: response.ChargeOutcomeCardError,
			Message: cardErr.Message,
		}, nil
	case err != nil:
		s.log.Error("Saved card charge failed", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("charge saved card: %v: %w", err, ErrProvider)
	}

	if err := s.recordIntent(ctx, booking.ID, intent.ID, entity.PaymentMethodCardOnFile, amount, req.ParticipantIDs, nil); err != nil {
		return nil, err
	}

	// rows flip only once the intent is reconciled
	s.scheduleReconcile(ctx, intent.ID, booking.ID.String(), SourceCharge)

	s.log.Info("Saved card charged",
		zap.String("booking_id", req.BookingID),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_cents", amount),
	)
	return &response.ChargeSavedCardResponse{
		Outcome:         response.ChargeOutcomeSuccess,
		PaymentIntentID: intent.ID,
	}, nil
}

// recordIntent stores a provider intent once; idempotent retries return the
// same intent and must not duplicate the record.
func (s *paymentService) recordIntent(ctx context.Context, bookingID uuid.UUID, intentID string, method entity.PaymentMethod, amount int64, ids []string, note *string) error {
	existing, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	record := newPaymentRecord(bookingID, method, amount, entity.PaymentRecordCreated, ids)
	record.ProviderIntentID = &intentID
	record.Note = note
	return s.repo.Payment.Create(ctx, record)
}

func (s *paymentService) scheduleReconcile(ctx context.Context, intentID, bookingID, source string) {
	if s.queue != nil {
		err := s.queue.EnqueueReconcile(ctx, queue.ReconcilePayload{IntentID: intentID, BookingID: bookingID, Source: source})
		if err == nil {
			return
		}
		s.log.Warn("Enqueue failed, reconciling inline", zap.Error(err), zap.String("intent_id", intentID))
	}

	if _, err := s.ReconcileIntent(ctx, intentID, source); err != nil {
		s.log.Warn("Inline reconcile failed", zap.Error(err), zap.String("intent_id", intentID))
	}
}

func (s *paymentService) CreateHostedPayment(ctx context.Context, req *request.HostedPaymentRequest) (*response.HostedPaymentResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, amount, err := s.selectCharge(ctx, req.BookingID, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	intent, err := s.provider.CreateIntent(ctx, payment.IntentParams{
		AmountCents:    amount,
		Description:    fmt.Sprintf("Booking %s", booking.ID.String()),
		Metadata:       map[string]string{"booking_id": booking.ID.String(), "method": string(entity.PaymentMethodHosted)},
		IdempotencyKey: utils.IdempotencyKey("hosted", req.BookingID, utils.SortedJoin(req.ParticipantIDs), fmt.Sprint(amount)),
	})
	if err != nil {
		s.log.Error("Failed to create hosted payment", zap.Error(err), zap.String("booking_id", req.BookingID))
		return nil, fmt.Errorf("create hosted payment: %v: %w", err, ErrProvider)
	}

	if err := s.recordIntent(ctx, booking.ID, intent.ID, entity.PaymentMethodHosted, amount, req.ParticipantIDs, nil); err != nil {
		return nil, err
	}

	return &response.HostedPaymentResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     amount,
	}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, req *request.ConfirmPaymentRequest) (*response.ConfirmPaymentResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	record, err := s.repo.Payment.FindByIntentID(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, notFound("payment %s", req.PaymentIntentID)
	}

	intent, err := s.provider.GetIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %v: %w", err, ErrProvider)
	}

	out := &response.ConfirmPaymentResponse{
		PaymentIntentID: intent.ID,
		Status:          string(intent.Status),
		Reconciled:      record.ReconciledAt != nil,
	}

	if intent.Status == payment.IntentSucceeded && !out.Reconciled {
		if _, err := s.ReconcileIntent(ctx, intent.ID, SourceConfirm); err != nil {
			return nil, err
		}
		out.Reconciled = true
	}

	return out, nil
}

func (s *paymentService) CreateTerminalPayment(ctx context.Context, req *request.TerminalPaymentRequest) (*response.TerminalPaymentResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	booking, amount, err := s.selectCharge(ctx, req.BookingID, req.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"booking_id": booking.ID.String(),
		"method":     string(entity.PaymentMethodTerminal),
	}
	if req.FeeBreakdown != "" {
		metadata["fee_breakdown"] = req.FeeBreakdown
	}

	intent, err := s.provider.CreateIntent(ctx, payment.IntentParams{
		AmountCents:    amount,
		Description:    fmt.Sprintf("Booking %s (terminal)", booking.ID.String()),
		Metadata:       metadata,
		IdempotencyKey: utils.IdempotencyKey("terminal", req.BookingID, req.ReaderID, utils.SortedJoin(req.ParticipantIDs), fmt.Sprint(amount)),
		CardPresent:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("create terminal payment: %v: %w", err, ErrProvider)
	}

	var note *string
	if req.FeeBreakdown != "" {
		note = &req.FeeBreakdown
	}
	if err := s.recordIntent(ctx, booking.ID, intent.ID, entity.PaymentMethodTerminal, amount, req.ParticipantIDs, note); err != nil {
		return nil, err
	}

	if err := s.provider.ProcessOnReader(ctx, req.ReaderID, intent.ID); err != nil {
		s.log.Error("Reader rejected payment", zap.Error(err), zap.String("reader_id", req.ReaderID))
		return nil, fmt.Errorf("send payment to reader: %v: %w", err, ErrProvider)
	}

	s.log.Info("Terminal payment started",
		zap.String("booking_id", req.BookingID),
		zap.String("intent_id", intent.ID),
		zap.String("reader_id", req.ReaderID),
	)
	return &response.TerminalPaymentResponse{
		PaymentIntentID: intent.ID,
		ReaderID:        req.ReaderID,
		AmountCents:     amount,
	}, nil
}

func (s *paymentService) VoidPayments(ctx context.Context, bookingID string) (*response.VoidPaymentsResponse, error) {
	booking, err := loadBooking(ctx, s.repo, bookingID)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.Payment.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	out := &response.VoidPaymentsResponse{}
	keep := []string{}
	var errs []error
	for _, rec := range records {
		status, err := s.voidRecord(ctx, rec)
		if err != nil {
			s.log.Error("Failed to void payment",
				zap.Error(err),
				zap.String("booking_id", bookingID),
				zap.String("payment_id", rec.ID.String()),
			)
			// rows this payment covers stay paid until it is voided
			keep = append(keep, rec.ParticipantIDs...)
			errs = append(errs, err)
			out.Failed++
			continue
		}
		switch status {
		case entity.PaymentRecordRefunded:
			out.Refunded++
		case entity.PaymentRecordCancelled:
			out.Cancelled++
		}
	}

	if out.Reset, err = s.repo.Participant.ResetPaid(ctx, booking.ID, keep); err != nil {
		return nil, err
	}

	publish(ctx, s.pub, s.log, response.PushBillingUpdate, bookingID, response.ActionPaymentsVoided)

	s.log.Info("Payments voided",
		zap.String("booking_id", bookingID),
		zap.Int("refunded", out.Refunded),
		zap.Int("cancelled", out.Cancelled),
		zap.Int64("reset", out.Reset),
		zap.Int("failed", out.Failed),
	)

	if len(errs) > 0 {
		return nil, fmt.Errorf("void payments for booking %s: %d of %d failed: %w",
			bookingID, out.Failed, len(records), errors.Join(append([]error{ErrProvider}, errs...)...))
	}
	return out, nil
}

// voidRecord refunds or cancels one payment and returns the record's new
// status, or "" when nothing needed voiding. Records not yet reconciled are
// checked at the provider, since the intent may already have succeeded.
func (s *paymentService) voidRecord(ctx context.Context, rec *entity.PaymentRecord) (entity.PaymentRecordStatus, error) {
	if rec.ProviderIntentID == nil {
		// desk settlements have nothing to refund at the provider
		if rec.Status != entity.PaymentRecordConfirmed {
			return "", nil
		}
		if err := s.repo.Payment.UpdateStatus(ctx, rec.ID, entity.PaymentRecordCancelled); err != nil {
			return "", err
		}
		return entity.PaymentRecordCancelled, nil
	}

	intentID := *rec.ProviderIntentID
	var next entity.PaymentRecordStatus
	switch rec.Status {
	case entity.PaymentRecordConfirmed:
		next = entity.PaymentRecordRefunded

	case entity.PaymentRecordCreated:
		intent, err := s.provider.GetIntent(ctx, intentID)
		if err != nil {
			return "", fmt.Errorf("retrieve intent %s: %w", intentID, err)
		}
		switch intent.Status {
		case payment.IntentSucceeded:
			next = entity.PaymentRecordRefunded
		case payment.IntentCanceled:
			if err := s.repo.Payment.UpdateStatus(ctx, rec.ID, entity.PaymentRecordCancelled); err != nil {
				return "", err
			}
			return entity.PaymentRecordCancelled, nil
		case payment.IntentProcessing:
			return "", fmt.Errorf("intent %s is still processing", intentID)
		default:
			next = entity.PaymentRecordCancelled
		}

	default:
		return "", nil
	}

	if next == entity.PaymentRecordRefunded {
		if err := s.provider.Refund(ctx, intentID); err != nil {
			return "", fmt.Errorf("refund intent %s: %w", intentID, err)
		}
	} else if err := s.provider.CancelIntent(ctx, intentID); err != nil {
		return "", fmt.Errorf("cancel intent %s: %w", intentID, err)
	}

	if err := s.repo.Payment.UpdateStatus(ctx, rec.ID, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return invalid("webhook rejected: %v", err)
	}

	if ev.IntentID == "" {
		s.log.Debug("Ignoring webhook event", zap.String("event_id", ev.ID), zap.String("type", ev.Type))
		return nil
	}

	source := SourceWebhook
	if ev.Type == payment.EventInvoicePaid {
		source = SourceInvoice
	}

	s.scheduleReconcile(ctx, ev.IntentID, ev.Metadata["booking_id"], source)
	return nil
}

func (s *paymentService) ReconcileIntent(ctx context.Context, intentID, source string) (bool, error) {
	record, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return false, err
	}
	if record == nil {
		// intents created outside the desk have nothing to reconcile
		s.log.Warn("No payment record for intent", zap.String("intent_id", intentID), zap.String("source", source))
		return false, nil
	}
	if record.ReconciledAt != nil {
		return false, nil
	}

	intent, err := s.provider.GetIntent(ctx, intentID)
	if err != nil {
		return false, fmt.Errorf("reconcile %s: %v: %w", intentID, err, ErrProvider)
	}

	switch intent.Status {
	case payment.IntentSucceeded:
	case payment.IntentProcessing:
		return false, fmt.Errorf("intent %s still processing", intentID)
	case payment.IntentCanceled:
		if err := s.repo.Payment.UpdateStatus(ctx, record.ID, entity.PaymentRecordCancelled); err != nil {
			return false, err
		}
		return false, nil
	default:
		s.log.Info("Intent not settled", zap.String("intent_id", intentID), zap.String("status", string(intent.Status)))
		return false, nil
	}

	// settling is idempotent, so it runs before the claim
	if _, err := s.repo.Participant.SettleByIDs(ctx, record.BookingID, record.ParticipantIDs, entity.PaymentStatusPaid); err != nil {
		return false, err
	}

	claimed, err := s.repo.Payment.MarkReconciled(ctx, intentID)
	if err != nil {
		return false, err
	}
	if !claimed {
		return false, nil
	}

	bookingID := record.BookingID.String()
	if source == SourceInvoice {
		publish(ctx, s.pub, s.log, response.PushInvoiceUpdate, bookingID, response.ActionInvoicePaid)
	} else {
		publish(ctx, s.pub, s.log, response.PushBillingUpdate, bookingID, response.ActionPaymentConfirmed)
	}

	if booking, err := s.repo.Booking.FindByID(ctx, record.BookingID); err == nil && booking != nil {
		s.sendReceipt(ctx, booking, record)
	}

	s.log.Info("Payment reconciled",
		zap.String("booking_id", bookingID),
		zap.String("intent_id", intentID),
		zap.String("source", source),
		zap.Int64("amount_cents", record.AmountCents),
	)
	return true, nil
}

func (s *paymentService) sendReceipt(ctx context.Context, booking *entity.Booking, record *entity.PaymentRecord) {
	if s.notifier == nil || booking.OwnerEmail == "" {
		return
	}

	r := notify.Receipt{
		To:          booking.OwnerEmail,
		OwnerName:   booking.OwnerName,
		BookingID:   booking.ID.String(),
		AmountCents: record.AmountCents,
		Method:      string(record.Method),
	}
	if record.Method == entity.PaymentMethodWaiver && record.Note != nil {
		r.Reason = *record.Note
	}

	if err := s.notifier.SendReceipt(ctx, r); err != nil {
		s.log.Warn("Receipt not sent", zap.Error(err), zap.String("booking_id", booking.ID.String()))
	}
}
