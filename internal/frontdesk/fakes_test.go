package frontdesk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func testConfig() Config {
	return Config{
		PollInterval:          5 * time.Millisecond,
		PollAttempts:          5,
		ConfirmRetryBackoff:   5 * time.Millisecond,
		PaymentSurfaceDelay:   20 * time.Millisecond,
		EstimateDebounce:      15 * time.Millisecond,
		DuplicateNameDebounce: 15 * time.Millisecond,
		SearchDebounce:        15 * time.Millisecond,
		ExternalIDMinLength:   6,
	}
}

// owedRoster is an assigned two-player booking: the owner owes $15.00 of
// overage and one guest owes $10.00.
func owedRoster() *response.RosterResponse {
	r := &response.RosterResponse{
		Booking: response.BookingSummary{
			ID:                  "b1",
			OwnerEmail:          "owner@club.test",
			OwnerName:           "Olive Owner",
			Category:            "regular",
			Status:              "pending",
			RosterCommitted:     true,
			DurationMinutes:     90,
			ExpectedPlayerCount: 2,
		},
		Members: []response.ParticipantResponse{{
			ID: "p1", SlotNumber: 1, IsPrimary: true, Type: "owner",
			UserEmail: strPtr("owner@club.test"), DisplayName: "Olive Owner",
			FeeCents: 1500, FeeNote: "Overage fee", PaymentStatus: "pending",
		}},
		Guests: []response.ParticipantResponse{{
			ID: "p2", SlotNumber: 2, Type: "guest", DisplayName: "Gus",
			GuestInfo: &response.GuestInfoResponse{Name: "Gus"},
			FeeCents:  1000, PaymentStatus: "pending",
		}},
		OwnerGuestPassesRemaining: 2,
		OwnerGuestPassesTotal:     4,
	}
	recompute(r)
	r.Validation = response.ComputeValidation(2, r.Participants())
	return r
}

// openRoster is an owner-only booking with empty slots up to expected.
func openRoster(expected int) *response.RosterResponse {
	r := &response.RosterResponse{
		Booking: response.BookingSummary{
			ID: "b1", OwnerEmail: "owner@club.test", Category: "regular",
			Status: "pending", RosterCommitted: true, ExpectedPlayerCount: expected,
		},
		Members: []response.ParticipantResponse{{
			ID: "p1", SlotNumber: 1, IsPrimary: true, Type: "owner",
			UserEmail: strPtr("owner@club.test"), DisplayName: "Olive Owner",
			PaymentStatus: "pending",
		}},
		Guests: []response.ParticipantResponse{},
	}
	for i := 2; i <= expected; i++ {
		r.Members = append(r.Members, response.ParticipantResponse{
			ID: fmt.Sprintf("p%d", i), SlotNumber: i, Type: "empty", PaymentStatus: "pending",
		})
	}
	r.Validation = response.ComputeValidation(expected, r.Participants())
	r.FinancialSummary = response.ComputeFinancialSummary(r.Participants())
	return r
}

// fakeAPI is an in-memory server. Mutations change roster the way the
// real services do, so re-fetches observe them.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	roster      *response.RosterResponse
	rosterCalls int
	rosterErr   error

	members map[string]response.MemberMatchResponse

	linkErr    error
	unlinkErr  error
	removeErr  error
	paymentErr error

	savedCard     *response.SavedCardResponse
	chargeOutcome response.ChargeOutcome
	chargeReqs    []request.ChargeSavedCardRequest
	confirmErrs   []error
	terminalReqs  []request.TerminalPaymentRequest
	paymentReqs   []request.UpdatePaymentsRequest
	checkinReqs   []request.CheckinRequest

	search       []response.MemberResponse
	estimateReqs []request.FeeEstimateRequest

	finalizeRes   *response.FinalizeResponse
	finalizeGate  chan struct{}
	finalizePaths []string

	events chan response.PushEvent

	// beforeChargeReturn runs after the charge is recorded, outside the lock.
	beforeChargeReturn func()
}

func newFakeAPI(r *response.RosterResponse) *fakeAPI {
	return &fakeAPI{
		roster:        r,
		members:       map[string]response.MemberMatchResponse{},
		savedCard:     &response.SavedCardResponse{HasSavedCard: true, Brand: "visa", Last4: "4242"},
		chargeOutcome: response.ChargeOutcomeSuccess,
		finalizeRes:   &response.FinalizeResponse{BookingID: "b1"},
		events:        make(chan response.PushEvent, 8),
	}
}

func (f *fakeAPI) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) rosterFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rosterCalls
}

// settle flips unsettled rows, as the payments endpoint does.
func (f *fakeAPI) settle(status string, reason *string, id string) {
	flip := func(list []response.ParticipantResponse) {
		for i := range list {
			p := &list[i]
			if p.Settled() || (id != "" && p.ID != id) {
				continue
			}
			p.PaymentStatus = status
			p.WaiverReason = reason
		}
	}
	flip(f.roster.Members)
	flip(f.roster.Guests)
	f.refreshDerived()
}

func (f *fakeAPI) refreshDerived() {
	expected := f.roster.Validation.ExpectedPlayerCount
	recompute(f.roster)
	f.roster.Validation = response.ComputeValidation(expected, f.roster.Participants())
}

func (f *fakeAPI) markAllPaid() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settle("paid", nil, "")
}

func (f *fakeAPI) GetRoster(_ context.Context, bookingID string) (*response.RosterResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetRoster")
	f.rosterCalls++
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	if f.roster == nil || f.roster.Booking.ID != bookingID {
		return nil, ErrNotFound
	}
	return f.roster.Clone(), nil
}

func (f *fakeAPI) LinkMember(_ context.Context, _, slotID, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("LinkMember:" + slotID + ":" + email)
	if f.linkErr != nil {
		return f.linkErr
	}
	for i := range f.roster.Members {
		p := &f.roster.Members[i]
		if p.ID == slotID {
			p.Type = "member"
			p.UserEmail = strPtr(email)
			p.DisplayName = email
		}
	}
	f.refreshDerived()
	return nil
}

func (f *fakeAPI) UnlinkMember(_ context.Context, _, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UnlinkMember")
	if f.unlinkErr != nil {
		return f.unlinkErr
	}
	for i := range f.roster.Members {
		if f.roster.Members[i].ID == slotID {
			clearParticipant(&f.roster.Members[i])
		}
	}
	f.refreshDerived()
	return nil
}

func (f *fakeAPI) AddGuest(_ context.Context, _ string, req request.AddGuestRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddGuest")

	if req.Email != nil {
		email := strings.ToLower(*req.Email)
		for _, g := range f.roster.Guests {
			if g.GuestInfo != nil && g.GuestInfo.Email != nil && *g.GuestInfo.Email == email {
				return nil
			}
		}
		if m, ok := f.members[email]; ok && !req.ForceAddAsGuest {
			return &MemberMatchWarning{Member: m}
		}
	}

	for i := range f.roster.Members {
		p := &f.roster.Members[i]
		if p.IsPrimary || p.IsFilled() {
			continue
		}
		p.Type = "guest"
		p.DisplayName = req.Name
		p.GuestInfo = &response.GuestInfoResponse{Name: req.Name, Email: req.Email}
		f.refreshDerived()
		return nil
	}
	return &APIError{Status: 400, Message: "no empty slot"}
}

func (f *fakeAPI) RemoveGuest(_ context.Context, _, guestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveGuest")
	if f.removeErr != nil {
		return f.removeErr
	}
	for i := range f.roster.Guests {
		if f.roster.Guests[i].ID == guestID {
			clearParticipant(&f.roster.Guests[i])
		}
	}
	f.refreshDerived()
	return nil
}

func (f *fakeAPI) UpdatePlayerCount(_ context.Context, _ string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdatePlayerCount")
	f.roster.Booking.ExpectedPlayerCount = count
	f.roster.Validation.ExpectedPlayerCount = count
	f.refreshDerived()
	return nil
}

func (f *fakeAPI) SearchMembers(_ context.Context, query string, _ int) ([]response.MemberResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SearchMembers:" + query)
	return f.search, nil
}

func (f *fakeAPI) EstimateFees(_ context.Context, req request.FeeEstimateRequest) (*response.FeeEstimateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("EstimateFees")
	f.estimateReqs = append(f.estimateReqs, req)
	return &response.FeeEstimateResponse{TotalCents: 2500, OverageCents: 1500, GuestCents: 1000}, nil
}

func (f *fakeAPI) finalize(path string) (*response.FinalizeResponse, error) {
	f.mu.Lock()
	f.record("Finalize")
	f.finalizePaths = append(f.finalizePaths, path)
	gate := f.finalizeGate
	res := *f.finalizeRes
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return &res, nil
}

func (f *fakeAPI) ResolveLegacyReview(_ context.Context, id string, _ request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	return f.finalize("legacy:" + id)
}

func (f *fakeAPI) AssignPendingBooking(_ context.Context, id string, _ request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	return f.finalize("pending:" + id)
}

func (f *fakeAPI) LinkExternalImport(_ context.Context, id string, _ request.FinalizeRosterRequest) (*response.FinalizeResponse, error) {
	return f.finalize("external:" + id)
}

func (f *fakeAPI) UpdatePayments(_ context.Context, _ string, req request.UpdatePaymentsRequest) (*response.PaymentActionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdatePayments")
	f.paymentReqs = append(f.paymentReqs, req)
	if f.paymentErr != nil {
		return nil, f.paymentErr
	}

	id := ""
	if req.ParticipantID != nil {
		id = *req.ParticipantID
	}
	switch req.Action {
	case request.PaymentActionConfirmAll, request.PaymentActionConfirm:
		f.settle("paid", nil, id)
	case request.PaymentActionWaiveAll, request.PaymentActionWaive:
		f.settle("waived", req.Reason, id)
	case request.PaymentActionUseGuestPass:
		for i := range f.roster.Guests {
			if f.roster.Guests[i].ID == id {
				f.roster.Guests[i].FeeCents = 0
				f.roster.Guests[i].UsedGuestPass = true
			}
		}
		f.roster.OwnerGuestPassesRemaining--
		f.refreshDerived()
	}
	return &response.PaymentActionResponse{Updated: 1}, nil
}

func (f *fakeAPI) GetSavedCard(context.Context, string) (*response.SavedCardResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSavedCard")
	card := *f.savedCard
	return &card, nil
}

func (f *fakeAPI) ChargeSavedCard(_ context.Context, req request.ChargeSavedCardRequest) (*response.ChargeSavedCardResponse, error) {
	f.mu.Lock()
	f.record("ChargeSavedCard")
	f.chargeReqs = append(f.chargeReqs, req)
	res := &response.ChargeSavedCardResponse{Outcome: f.chargeOutcome, PaymentIntentID: "pi_saved"}
	beforeReturn := f.beforeChargeReturn
	f.mu.Unlock()

	if beforeReturn != nil {
		beforeReturn()
	}
	return res, nil
}

func (f *fakeAPI) CreateHostedPayment(context.Context, request.HostedPaymentRequest) (*response.HostedPaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateHostedPayment")
	return &response.HostedPaymentResponse{PaymentIntentID: "pi_hosted", ClientSecret: "secret", AmountCents: 2500}, nil
}

func (f *fakeAPI) ConfirmPayment(_ context.Context, intentID string) (*response.ConfirmPaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ConfirmPayment")
	if len(f.confirmErrs) > 0 {
		err := f.confirmErrs[0]
		f.confirmErrs = f.confirmErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.settle("paid", nil, "")
	return &response.ConfirmPaymentResponse{PaymentIntentID: intentID, Status: "succeeded", Reconciled: true}, nil
}

func (f *fakeAPI) CreateTerminalPayment(_ context.Context, req request.TerminalPaymentRequest) (*response.TerminalPaymentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTerminalPayment")
	f.terminalReqs = append(f.terminalReqs, req)
	return &response.TerminalPaymentResponse{PaymentIntentID: "pi_terminal", ReaderID: req.ReaderID, AmountCents: 2500}, nil
}

func (f *fakeAPI) VoidPayments(context.Context, string) (*response.VoidPaymentsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("VoidPayments")
	return &response.VoidPaymentsResponse{Refunded: 1}, nil
}

func (f *fakeAPI) Checkin(_ context.Context, bookingID string, req request.CheckinRequest) (*response.CheckinResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Checkin")
	f.checkinReqs = append(f.checkinReqs, req)
	if req.ConfirmPayment {
		f.settle("paid", nil, "")
	}
	f.roster.Booking.Status = req.Status
	return &response.CheckinResponse{BookingID: bookingID, Status: req.Status}, nil
}

func (f *fakeAPI) Subscribe(ctx context.Context, _ string) (<-chan response.PushEvent, error) {
	out := make(chan response.PushEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-f.events:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// recorder collects events delivered to the listener.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) last(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func (r *recorder) waitFor(t *testing.T, kind EventKind) Event {
	t.Helper()
	require.Eventually(t, func() bool { return r.count(kind) > 0 }, time.Second, 2*time.Millisecond, "no %s event", kind)
	ev, _ := r.last(kind)
	return ev
}

func openDesk(t *testing.T, api *fakeAPI) (*Desk, *Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	desk := NewDesk(api, testConfig(), rec, nil)
	s, err := desk.Open(context.Background(), "b1")
	require.NoError(t, err)
	t.Cleanup(desk.Close)
	return desk, s, rec
}
