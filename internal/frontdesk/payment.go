package frontdesk

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentState string

const (
	StateIdle                PaymentState = "idle"
	StateChoosingMethod      PaymentState = "choosing_method"
	StateChargingCardOnFile  PaymentState = "charging_card_on_file"
	StateHostedCardForm      PaymentState = "hosted_card_form"
	StateTerminalForm        PaymentState = "terminal_form"
	StateMarkingPaidExternal PaymentState = "marking_paid_external"
	StateWaivingAll          PaymentState = "waiving_all"
	StateConfirming          PaymentState = "confirming"
	StateReconciled          PaymentState = "reconciled"
	StateUnconfirmed         PaymentState = "unconfirmed"
)

// PaymentAction is the single in-flight payment action of a session. At
// most one is set at a time.
type PaymentAction interface {
	paymentAction()
}

type ChargeCardOnFile struct{}

type HostedCard struct {
	IntentID string
}

type TerminalCharge struct {
	ReaderID string
	IntentID string
}

type MarkPaid struct{}

type WaiveAll struct {
	Reason string
}

type ParticipantUpdate struct {
	ParticipantID string
	Action        request.PaymentAction
}

type VoidAll struct{}

func (ChargeCardOnFile) paymentAction()  {}
func (HostedCard) paymentAction()        {}
func (TerminalCharge) paymentAction()    {}
func (MarkPaid) paymentAction()          {}
func (WaiveAll) paymentAction()          {}
func (ParticipantUpdate) paymentAction() {}
func (VoidAll) paymentAction()           {}

// PaymentOrchestrator drives fee collection for one open booking.
type PaymentOrchestrator struct {
	api       API
	cfg       Config
	roster    *RosterStore
	bookingID string
	sessionID string
	ctx       context.Context
	em        emitter
	log       *zap.Logger

	mu         sync.Mutex
	state      PaymentState
	action     PaymentAction
	reconciled bool
	pollCancel context.CancelFunc

	savedCard         *response.SavedCardResponse
	savedCardDisabled bool
}

func newPaymentOrchestrator(ctx context.Context, api API, cfg Config, roster *RosterStore, bookingID string, em emitter, log *zap.Logger) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		api:       api,
		cfg:       cfg,
		roster:    roster,
		bookingID: bookingID,
		sessionID: uuid.NewString(),
		ctx:       ctx,
		em:        em,
		log:       log.With(zap.String("component", "payment_orchestrator")),
		state:     StateIdle,
	}
}

func (o *PaymentOrchestrator) State() PaymentState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Action returns the in-flight action, or nil.
func (o *PaymentOrchestrator) Action() PaymentAction {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.action
}

func (o *PaymentOrchestrator) setState(st PaymentState) {
	o.mu.Lock()
	o.state = st
	o.mu.Unlock()
	o.em.emit(Event{Kind: EventPaymentState, State: st})
}

// Open shows the method picker. It fails when nothing is owed.
func (o *PaymentOrchestrator) Open() error {
	if o.ctx.Err() != nil {
		return ErrNoBooking
	}
	r := o.roster.Current()
	if r == nil {
		return ErrNoBooking
	}
	if !r.FinancialSummary.PaymentRequired() {
		return ErrNothingOwed
	}

	o.mu.Lock()
	if o.action != nil {
		o.mu.Unlock()
		return ErrBusy
	}
	o.mu.Unlock()

	o.setState(StateChoosingMethod)
	return nil
}

// Back leaves a form that has not been submitted, or closes the picker.
func (o *PaymentOrchestrator) Back() error {
	o.mu.Lock()
	switch o.state {
	case StateHostedCardForm, StateTerminalForm:
		o.action = nil
		o.mu.Unlock()
		o.setState(StateChoosingMethod)
		return nil
	case StateChoosingMethod, StateUnconfirmed:
		o.mu.Unlock()
		o.setState(StateIdle)
		return nil
	}
	busy := o.action != nil
	o.mu.Unlock()

	if busy {
		return ErrBusy
	}
	return nil
}

// begin claims the action slot. An empty st keeps the current state.
func (o *PaymentOrchestrator) begin(a PaymentAction, st PaymentState) (*response.RosterResponse, error) {
	if o.ctx.Err() != nil {
		return nil, ErrNoBooking
	}
	r := o.roster.Current()
	if r == nil {
		return nil, ErrNoBooking
	}

	o.mu.Lock()
	if o.action != nil {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	if !r.FinancialSummary.PaymentRequired() {
		o.mu.Unlock()
		return nil, ErrNothingOwed
	}
	o.action = a
	o.reconciled = false
	o.mu.Unlock()

	if st != "" {
		o.setState(st)
	}
	return r, nil
}

func (o *PaymentOrchestrator) clearAction() {
	o.mu.Lock()
	o.action = nil
	o.mu.Unlock()
}

// fail returns to the method picker and surfaces err to staff.
func (o *PaymentOrchestrator) fail(err error) error {
	o.mu.Lock()
	o.action = nil
	o.mu.Unlock()

	o.setState(StateChoosingMethod)
	o.em.toast(err.Error())
	return err
}

// SavedCard returns the owner's card on file. It is looked up once per open.
func (o *PaymentOrchestrator) SavedCard(ctx context.Context) (*response.SavedCardResponse, error) {
	o.mu.Lock()
	if o.savedCard != nil {
		card := *o.savedCard
		o.mu.Unlock()
		return &card, nil
	}
	o.mu.Unlock()

	r := o.roster.Current()
	if r == nil {
		return nil, ErrNoBooking
	}

	card, err := o.api.GetSavedCard(ctx, r.Booking.OwnerEmail)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.savedCard = card
	if !card.HasSavedCard {
		o.savedCardDisabled = true
	}
	o.mu.Unlock()

	out := *card
	return &out, nil
}

// SavedCardAvailable reports whether the card-on-file path is still offered.
func (o *PaymentOrchestrator) SavedCardAvailable() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.savedCardDisabled && (o.savedCard == nil || o.savedCard.HasSavedCard)
}

func (o *PaymentOrchestrator) disableSavedCard() {
	o.mu.Lock()
	o.savedCardDisabled = true
	o.mu.Unlock()
}

// ChargeCardOnFile charges the owner's saved card. Success only means the
// charge was accepted; the booking is settled once a poll or push confirms.
func (o *PaymentOrchestrator) ChargeCardOnFile(ctx context.Context) error {
	if !o.SavedCardAvailable() {
		return ErrSavedCardDisabled
	}

	card, err := o.SavedCard(ctx)
	if err != nil {
		return err
	}
	if !card.HasSavedCard {
		err := &ProviderError{
			Outcome: response.ChargeOutcomeNoSavedCard,
			Message: "No card on file; use the card form",
		}
		o.em.toast(err.Error())
		return err
	}

	r, err := o.begin(ChargeCardOnFile{}, StateChargingCardOnFile)
	if err != nil {
		return err
	}

	res, err := o.api.ChargeSavedCard(ctx, request.ChargeSavedCardRequest{
		Email:          r.Booking.OwnerEmail,
		BookingID:      o.bookingID,
		SessionID:      o.sessionID,
		ParticipantIDs: outstandingIDs(r),
	})
	if err != nil {
		return o.fail(err)
	}

	switch res.Outcome {
	case response.ChargeOutcomeSuccess:
		o.log.Info("Saved card charged",
			zap.String("booking_id", o.bookingID),
			zap.String("payment_intent_id", res.PaymentIntentID),
		)
		o.startPoll()
		return nil

	case response.ChargeOutcomeNoSavedCard, response.ChargeOutcomeRequiresAction:
		o.disableSavedCard()
		msg := res.Message
		if msg == "" {
			msg = "Card needs verification"
		}
		return o.fail(&ProviderError{Outcome: res.Outcome, Message: msg + "; use the card form"})

	default:
		o.disableSavedCard()
		msg := res.Message
		if msg == "" {
			msg = "Card was declined"
		}
		return o.fail(&ProviderError{Outcome: response.ChargeOutcomeCardError, Message: msg})
	}
}

// StartHostedCard creates the payment the hosted card form collects.
func (o *PaymentOrchestrator) StartHostedCard(ctx context.Context, email string) (*response.HostedPaymentResponse, error) {
	r, err := o.begin(HostedCard{}, StateHostedCardForm)
	if err != nil {
		return nil, err
	}

	res, err := o.api.CreateHostedPayment(ctx, request.HostedPaymentRequest{
		BookingID:      o.bookingID,
		ParticipantIDs: outstandingIDs(r),
		Email:          strings.TrimSpace(email),
	})
	if err != nil {
		return nil, o.fail(err)
	}

	o.mu.Lock()
	if !o.reconciled {
		o.action = HostedCard{IntentID: res.PaymentIntentID}
	}
	o.mu.Unlock()
	return res, nil
}

// HostedCardSucceeded is called when the card form reports success. The
// server confirmation is retried once before falling back to polling.
func (o *PaymentOrchestrator) HostedCardSucceeded(ctx context.Context) error {
	o.mu.Lock()
	hosted, ok := o.action.(HostedCard)
	done := o.reconciled
	o.mu.Unlock()
	if done {
		return nil
	}
	if !ok || hosted.IntentID == "" {
		return invalid("payment", "no card form payment in progress")
	}

	res, err := o.api.ConfirmPayment(ctx, hosted.IntentID)
	if err != nil {
		o.log.Warn("Payment confirmation failed, retrying",
			zap.Error(err),
			zap.String("payment_intent_id", hosted.IntentID),
		)
		select {
		case <-time.After(o.cfg.ConfirmRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		case <-o.ctx.Done():
			return ErrNoBooking
		}
		res, err = o.api.ConfirmPayment(ctx, hosted.IntentID)
	}
	if err != nil {
		// the card may be charged; only the poll can tell
		o.log.Warn("Payment confirmation failed twice", zap.Error(err), zap.String("payment_intent_id", hosted.IntentID))
		o.em.toast("Could not confirm the payment yet; checking the booking")
		o.startPoll()
		return nil
	}

	if res.Reconciled {
		return o.settleOrPoll(ctx, "confirm")
	}
	o.startPoll()
	return nil
}

// CardFormFailed returns to the picker after the hosted or terminal form
// reported an error.
func (o *PaymentOrchestrator) CardFormFailed(message string) error {
	o.mu.Lock()
	switch o.action.(type) {
	case HostedCard, TerminalCharge:
	default:
		o.mu.Unlock()
		return invalid("payment", "no card form in progress")
	}
	o.mu.Unlock()

	if message == "" {
		message = "Card payment failed"
	}
	return o.fail(&ProviderError{Outcome: response.ChargeOutcomeCardError, Message: message})
}

// StartTerminal sends the outstanding amount to a card reader.
func (o *PaymentOrchestrator) StartTerminal(ctx context.Context, readerID string) (*response.TerminalPaymentResponse, error) {
	readerID = strings.TrimSpace(readerID)
	if readerID == "" {
		return nil, invalid("reader", "is required")
	}

	r, err := o.begin(TerminalCharge{ReaderID: readerID}, StateTerminalForm)
	if err != nil {
		return nil, err
	}

	res, err := o.api.CreateTerminalPayment(ctx, request.TerminalPaymentRequest{
		BookingID:      o.bookingID,
		ReaderID:       readerID,
		ParticipantIDs: outstandingIDs(r),
		FeeBreakdown:   ComposeFeeBreakdown(r),
	})
	if err != nil {
		return nil, o.fail(err)
	}

	o.mu.Lock()
	if !o.reconciled {
		o.action = TerminalCharge{ReaderID: readerID, IntentID: res.PaymentIntentID}
	}
	o.mu.Unlock()
	return res, nil
}

// TerminalSucceeded marks every participant paid, since reader payments do
// not settle rows by themselves.
func (o *PaymentOrchestrator) TerminalSucceeded(ctx context.Context) error {
	o.mu.Lock()
	_, ok := o.action.(TerminalCharge)
	done := o.reconciled
	o.mu.Unlock()
	if done {
		return nil
	}
	if !ok {
		return invalid("payment", "no terminal payment in progress")
	}

	_, err := o.api.UpdatePayments(ctx, o.bookingID, request.UpdatePaymentsRequest{
		Action: request.PaymentActionConfirmAll,
	})
	if err != nil {
		o.log.Warn("Confirm all after terminal payment failed", zap.Error(err), zap.String("booking_id", o.bookingID))
		o.startPoll()
		return nil
	}

	return o.settleOrPoll(ctx, "terminal")
}

// settleOrPoll reconciles when a fresh roster is already paid.
func (o *PaymentOrchestrator) settleOrPoll(ctx context.Context, source string) error {
	r, err := o.roster.Refresh(ctx)
	if err == nil && r.FinancialSummary.AllPaid {
		o.reconcile(source)
		return nil
	}
	o.startPoll()
	return nil
}

// MarkPaid records every outstanding fee as collected at the desk.
func (o *PaymentOrchestrator) MarkPaid(ctx context.Context) error {
	if _, err := o.begin(MarkPaid{}, StateMarkingPaidExternal); err != nil {
		return err
	}
	return o.settleAll(ctx, request.UpdatePaymentsRequest{Action: request.PaymentActionConfirmAll}, "paid", nil, "mark_paid")
}

// WaiveAll waives every outstanding fee. A reason is required.
func (o *PaymentOrchestrator) WaiveAll(ctx context.Context, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason", "is required to waive fees")
	}

	if _, err := o.begin(WaiveAll{Reason: reason}, StateWaivingAll); err != nil {
		return err
	}
	return o.settleAll(ctx, request.UpdatePaymentsRequest{
		Action: request.PaymentActionWaiveAll,
		Reason: &reason,
	}, "waived", &reason, "waive_all")
}

func (o *PaymentOrchestrator) settleAll(ctx context.Context, req request.UpdatePaymentsRequest, status string, reason *string, source string) error {
	err := Compensate(ctx, o.rosterCompensation(func() {
		o.roster.settleLocal(status, reason, nil)
	}), func(ctx context.Context) error {
		_, err := o.api.UpdatePayments(ctx, o.bookingID, req)
		return err
	})
	if err != nil {
		return o.fail(err)
	}

	o.reconcile(source)
	if _, err := o.roster.Refresh(ctx); err != nil {
		o.log.Warn("Refresh after settle failed", zap.Error(err), zap.String("booking_id", o.bookingID))
	}
	return nil
}

func (o *PaymentOrchestrator) rosterCompensation(apply func()) Compensation[*response.RosterResponse] {
	return Compensation[*response.RosterResponse]{
		Snapshot: o.roster.Current,
		Apply:    apply,
		Restore:  o.roster.restore,
	}
}

// ConfirmParticipant marks one participant paid.
func (o *PaymentOrchestrator) ConfirmParticipant(ctx context.Context, participantID string) error {
	return o.updateParticipant(ctx, participantID, request.PaymentActionConfirm, "paid", nil)
}

// WaiveParticipant waives one participant's fee with a reason.
func (o *PaymentOrchestrator) WaiveParticipant(ctx context.Context, participantID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return invalid("reason", "is required to waive a fee")
	}
	return o.updateParticipant(ctx, participantID, request.PaymentActionWaive, "waived", &reason)
}

func (o *PaymentOrchestrator) updateParticipant(ctx context.Context, participantID string, action request.PaymentAction, status string, reason *string) error {
	if participantID == "" {
		return invalid("participant", "is required")
	}
	if _, err := o.begin(ParticipantUpdate{ParticipantID: participantID, Action: action}, ""); err != nil {
		return err
	}
	defer o.clearAction()

	err := Compensate(ctx, o.rosterCompensation(func() {
		o.roster.settleLocal(status, reason, map[string]bool{participantID: true})
	}), func(ctx context.Context) error {
		_, err := o.api.UpdatePayments(ctx, o.bookingID, request.UpdatePaymentsRequest{
			Action:        action,
			ParticipantID: &participantID,
			Reason:        reason,
		})
		return err
	})
	if err != nil {
		o.em.toast(err.Error())
		return err
	}

	return o.refreshAndMaybeReconcile(ctx, string(action))
}

// UseGuestPass spends one of the owner's guest passes on a guest.
func (o *PaymentOrchestrator) UseGuestPass(ctx context.Context, guestID string) error {
	if guestID == "" {
		return invalid("participant", "is required")
	}
	r := o.roster.Current()
	if r != nil && r.OwnerGuestPassesRemaining <= 0 {
		return invalid("guest_pass", "no guest passes left this month")
	}
	if _, err := o.begin(ParticipantUpdate{ParticipantID: guestID, Action: request.PaymentActionUseGuestPass}, ""); err != nil {
		return err
	}
	defer o.clearAction()

	_, err := o.api.UpdatePayments(ctx, o.bookingID, request.UpdatePaymentsRequest{
		Action:        request.PaymentActionUseGuestPass,
		ParticipantID: &guestID,
	})
	if err != nil {
		o.em.toast(err.Error())
		return err
	}

	return o.refreshAndMaybeReconcile(ctx, string(request.PaymentActionUseGuestPass))
}

func (o *PaymentOrchestrator) refreshAndMaybeReconcile(ctx context.Context, source string) error {
	r, err := o.roster.Refresh(ctx)
	if err != nil {
		return err
	}
	if r.FinancialSummary.AllPaid {
		o.clearAction()
		o.reconcile(source)
	}
	return nil
}

// VoidAll refunds or cancels every payment of the booking. It needs an
// explicit confirmation and is refused while another action runs.
func (o *PaymentOrchestrator) VoidAll(ctx context.Context, confirmed bool) (*response.VoidPaymentsResponse, error) {
	if o.ctx.Err() != nil {
		return nil, ErrNoBooking
	}
	if !confirmed {
		return nil, ErrConfirmationNeeded
	}

	o.mu.Lock()
	if o.action != nil {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	o.action = VoidAll{}
	o.mu.Unlock()
	defer o.clearAction()

	res, err := o.api.VoidPayments(ctx, o.bookingID)
	if err != nil {
		o.em.toast(err.Error())
		return nil, err
	}

	o.mu.Lock()
	o.reconciled = false
	o.mu.Unlock()
	o.setState(StateIdle)
	o.em.toast("Payments voided")

	if _, err := o.roster.Refresh(ctx); err != nil {
		o.log.Warn("Refresh after void failed", zap.Error(err), zap.String("booking_id", o.bookingID))
	}
	return res, nil
}

// startPoll enters Confirming and re-fetches the roster until it is paid or
// the attempt ceiling is reached. A push may settle the cycle before the
// provider call returns; then there is nothing left to confirm.
func (o *PaymentOrchestrator) startPoll() {
	o.mu.Lock()
	if o.reconciled || o.ctx.Err() != nil {
		o.mu.Unlock()
		return
	}
	if o.pollCancel != nil {
		o.pollCancel()
	}
	ctx, cancel := context.WithCancel(o.ctx)
	o.pollCancel = cancel
	o.state = StateConfirming
	o.mu.Unlock()

	o.em.emit(Event{Kind: EventPaymentState, State: StateConfirming})
	go o.poll(ctx)
}

func (o *PaymentOrchestrator) poll(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= o.cfg.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		r, err := o.roster.Refresh(ctx)
		if err != nil {
			o.log.Debug("Poll refresh failed", zap.Error(err), zap.Int("attempt", attempt))
			continue
		}
		if r.FinancialSummary.AllPaid {
			o.reconcile("poll")
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	r, err := o.roster.Refresh(ctx)
	if err == nil && r.FinancialSummary.AllPaid {
		o.reconcile("poll")
		return
	}

	o.mu.Lock()
	if ctx.Err() != nil || o.reconciled {
		o.mu.Unlock()
		return
	}
	cancel := o.pollCancel
	o.pollCancel = nil
	o.action = nil
	o.state = StateUnconfirmed
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	o.log.Warn("Payment not confirmed after polling",
		zap.String("booking_id", o.bookingID),
		zap.Int("attempts", o.cfg.PollAttempts),
	)
	o.em.emit(Event{Kind: EventPaymentState, State: StateUnconfirmed})
	o.em.emit(Event{Kind: EventUnconfirmed, Message: "Payment not confirmed yet; verify with the provider before charging again"})
}

// reconcile is the single place a payment is declared settled. It runs its
// side effects once per payment cycle, whichever signal arrives first.
func (o *PaymentOrchestrator) reconcile(source string) bool {
	o.mu.Lock()
	if o.reconciled || o.ctx.Err() != nil {
		o.mu.Unlock()
		return false
	}
	o.reconciled = true
	if o.pollCancel != nil {
		o.pollCancel()
		o.pollCancel = nil
	}
	o.action = nil
	o.state = StateReconciled
	o.mu.Unlock()

	o.log.Info("Payment reconciled", zap.String("booking_id", o.bookingID), zap.String("source", source))
	o.em.emit(Event{Kind: EventPaymentState, State: StateReconciled})
	o.em.emit(Event{Kind: EventReconciled, Source: source, Message: "Payment recorded"})
	o.em.emit(Event{Kind: EventCheckinUnlocked})
	return true
}

// HandlePush reacts to a booking event from the push channel.
func (o *PaymentOrchestrator) HandlePush(ctx context.Context, ev response.PushEvent) {
	if ev.BookingID != o.bookingID {
		return
	}

	if ev.SignalsPayment() {
		if !o.awaitingPayment() {
			if _, err := o.roster.Refresh(ctx); err != nil && !errors.Is(err, ErrNoBooking) {
				o.log.Debug("Refresh after billing event failed", zap.Error(err))
			}
			return
		}
		o.reconcile("push")
		if _, err := o.roster.Refresh(ctx); err != nil && !errors.Is(err, ErrNoBooking) {
			o.log.Warn("Refresh after push failed", zap.Error(err), zap.String("booking_id", o.bookingID))
		}
		return
	}

	if _, err := o.roster.Refresh(ctx); err != nil && !errors.Is(err, ErrNoBooking) {
		o.log.Debug("Refresh after roster event failed", zap.Error(err))
	}
}

// awaitingPayment reports whether a collected payment waits for confirmation.
func (o *PaymentOrchestrator) awaitingPayment() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch o.state {
	case StateConfirming, StateChargingCardOnFile, StateHostedCardForm, StateTerminalForm, StateUnconfirmed:
		return true
	}
	return false
}

func (o *PaymentOrchestrator) stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pollCancel != nil {
		o.pollCancel()
		o.pollCancel = nil
	}
}
