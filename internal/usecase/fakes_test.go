package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/data/repository"
	"roster-desk/internal/dto/response"
	"roster-desk/pkg/notify"
	"roster-desk/pkg/payment"
	"roster-desk/pkg/pricing"
	"roster-desk/pkg/queue"

	"github.com/google/uuid"
)

// memStore backs the fake repositories. Reads return copies so services
// cannot mutate stored rows without going through a write.
type memStore struct {
	mu           sync.Mutex
	bookings     map[uuid.UUID]*entity.Booking
	participants map[uuid.UUID][]*entity.Participant
	members      map[string]*entity.Member
	ledgers      map[string]*entity.GuestPassLedger
	payments     []*entity.PaymentRecord
	reviews      map[uuid.UUID]*entity.LegacyReview
	imports      map[string]*entity.ExternalImport

	// attendErr fails SettleAndAttend before anything is written
	attendErr error
}

func newMemStore() *memStore {
	return &memStore{
		bookings:     map[uuid.UUID]*entity.Booking{},
		participants: map[uuid.UUID][]*entity.Participant{},
		members:      map[string]*entity.Member{},
		ledgers:      map[string]*entity.GuestPassLedger{},
		reviews:      map[uuid.UUID]*entity.LegacyReview{},
		imports:      map[string]*entity.ExternalImport{},
	}
}

func (m *memStore) repository() *repository.Repository {
	return &repository.Repository{
		Booking:     fakeBookings{m},
		Participant: fakeParticipants{m},
		Member:      fakeMembers{m},
		GuestPass:   fakeGuestPasses{m},
		Payment:     fakePayments{m},
		Provenance:  fakeProvenance{m},
	}
}

func copyParticipant(p *entity.Participant) *entity.Participant {
	cp := *p
	if p.Guest != nil {
		g := *p.Guest
		cp.Guest = &g
	}
	return &cp
}

func (m *memStore) addBooking(b *entity.Booking) *entity.Booking {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.StartsAt.IsZero() {
		b.StartsAt = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}
	if b.DurationMinutes == 0 {
		b.DurationMinutes = 60
	}
	if b.Category == "" {
		b.Category = entity.BookingCategoryRegular
	}
	if b.Status == "" {
		b.Status = entity.BookingStatusPending
	}
	m.bookings[b.ID] = b
	return b
}

func (m *memStore) addMember(email, name string, kind entity.MemberKind) *entity.Member {
	tier := "gold"
	mem := &entity.Member{Email: email, Name: name, Kind: kind, Tier: &tier}
	mem.ID = uuid.New()
	m.members[strings.ToLower(email)] = mem
	return mem
}

func (m *memStore) addParticipant(bookingID uuid.UUID, p *entity.Participant) *entity.Participant {
	p.ID = uuid.New()
	p.BookingID = bookingID
	if p.PaymentStatus == "" {
		p.PaymentStatus = entity.PaymentStatusPending
	}
	if p.Type == "" {
		p.Type = entity.ParticipantTypeEmpty
	}
	m.participants[bookingID] = append(m.participants[bookingID], p)
	return p
}

func (m *memStore) participant(bookingID uuid.UUID, slot int) *entity.Participant {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.participants[bookingID] {
		if p.SlotNumber == slot {
			return copyParticipant(p)
		}
	}
	return nil
}

type fakeBookings struct{ *memStore }

func (f fakeBookings) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (f fakeBookings) UpdatePlayerCount(ctx context.Context, id uuid.UUID, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id].ExpectedPlayerCount = count
	return nil
}

func (f fakeBookings) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[id].Status = status
	return nil
}

type fakeParticipants struct{ *memStore }

func (f fakeParticipants) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Participant
	for _, p := range f.participants[bookingID] {
		out = append(out, copyParticipant(p))
	}
	return out, nil
}

func (f fakeParticipants) find(id uuid.UUID) *entity.Participant {
	for _, list := range f.participants {
		for _, p := range list {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}

func (f fakeParticipants) FindByID(ctx context.Context, id uuid.UUID) (*entity.Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.find(id); p != nil {
		return copyParticipant(p), nil
	}
	return nil, nil
}

func (f fakeParticipants) Update(ctx context.Context, p *entity.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.find(p.ID)
	if stored == nil {
		return fmt.Errorf("participant %s not found", p.ID)
	}
	*stored = *copyParticipant(p)
	return nil
}

func (f fakeParticipants) UpdateFees(ctx context.Context, participants []*entity.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range participants {
		if stored := f.find(p.ID); stored != nil && stored.PaymentStatus == entity.PaymentStatusPending {
			stored.FeeCents = p.FeeCents
			stored.FeeNote = p.FeeNote
		}
	}
	return nil
}

func (f fakeParticipants) CreateEmptySlots(ctx context.Context, bookingID uuid.UUID, fromSlot, toSlot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for slot := fromSlot; slot <= toSlot; slot++ {
		exists := false
		for _, p := range f.participants[bookingID] {
			if p.SlotNumber == slot {
				exists = true
			}
		}
		if !exists {
			f.addParticipant(bookingID, &entity.Participant{SlotNumber: slot})
		}
	}
	return nil
}

func (f fakeParticipants) CommitRoster(ctx context.Context, bookingID uuid.UUID, participants []*entity.Participant, expectedPlayers int, prov entity.Provenance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bookings[bookingID]
	if b.RosterCommitted {
		return repository.ErrRosterCommitted
	}
	switch prov.Kind {
	case entity.ProvenanceLegacyReview:
		r := f.reviews[prov.LegacyReviewID]
		if r.ResolvedAt != nil {
			return repository.ErrProvenanceResolved
		}
		now := time.Now()
		r.ResolvedAt = &now
	case entity.ProvenanceExternal:
		imp := f.imports[prov.ExternalID]
		if imp.LinkedAt != nil {
			return repository.ErrProvenanceResolved
		}
		now := time.Now()
		imp.LinkedAt = &now
	}
	for _, p := range participants {
		f.participants[bookingID] = append(f.participants[bookingID], copyParticipant(p))
		if p.IsPrimary && p.UserEmail != nil {
			b.OwnerEmail = *p.UserEmail
			b.OwnerName = p.DisplayName
		}
	}
	b.RosterCommitted = true
	b.ExpectedPlayerCount = expectedPlayers
	return nil
}

func (f fakeParticipants) SettlePending(ctx context.Context, bookingID uuid.UUID, status entity.PaymentStatus, reason *string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.participants[bookingID] {
		if p.PaymentStatus == entity.PaymentStatusPending && p.FeeCents > 0 {
			p.PaymentStatus = status
			if reason != nil {
				p.WaiverReason = reason
			}
			n++
		}
	}
	return n, nil
}

func (f fakeParticipants) SettleAndAttend(ctx context.Context, settlement *entity.PaymentRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attendErr != nil {
		return 0, f.attendErr
	}
	b, ok := f.bookings[settlement.BookingID]
	if !ok {
		return 0, fmt.Errorf("booking %s not found", settlement.BookingID)
	}
	var n int64
	for _, p := range f.participants[settlement.BookingID] {
		if p.PaymentStatus == entity.PaymentStatusPending && p.FeeCents > 0 {
			p.PaymentStatus = entity.PaymentStatusPaid
			n++
		}
	}
	cp := *settlement
	f.payments = append(f.payments, &cp)
	b.Status = entity.BookingStatusAttended
	return n, nil
}

func (f fakeParticipants) SettleByIDs(ctx context.Context, bookingID uuid.UUID, ids []string, status entity.PaymentStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.participants[bookingID] {
		for _, id := range ids {
			if p.ID.String() == id && p.PaymentStatus == entity.PaymentStatusPending {
				p.PaymentStatus = status
				n++
			}
		}
	}
	return n, nil
}

func (f fakeParticipants) ResetPaid(ctx context.Context, bookingID uuid.UUID, keep []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, p := range f.participants[bookingID] {
		if p.PaymentStatus == entity.PaymentStatusPaid && !slices.Contains(keep, p.ID.String()) {
			p.PaymentStatus = entity.PaymentStatusPending
			n++
		}
	}
	return n, nil
}

func (f fakeParticipants) ApplyGuestPass(ctx context.Context, participantID uuid.UUID, ownerEmail, month string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.ledgers[ownerEmail+"|"+month]
	if l == nil || l.Used >= l.Total {
		return repository.ErrGuestPassExhausted
	}
	p := f.find(participantID)
	if p.UsedGuestPass {
		return repository.ErrGuestPassAlreadyUsed
	}
	l.Used++
	p.FeeCents = 0
	p.UsedGuestPass = true
	p.FeeNote = "Guest pass applied"
	return nil
}

type fakeMembers struct{ *memStore }

func (f fakeMembers) FindByEmail(ctx context.Context, email string) (*entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[strings.ToLower(email)], nil
}

func (f fakeMembers) Search(ctx context.Context, query string, limit int) ([]*entity.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.Member
	for _, m := range f.members {
		if strings.Contains(strings.ToLower(m.Name), strings.ToLower(query)) && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeGuestPasses struct{ *memStore }

func (f fakeGuestPasses) FindByOwner(ctx context.Context, ownerEmail, month string) (*entity.GuestPassLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l := f.ledgers[ownerEmail+"|"+month]; l != nil {
		cp := *l
		return &cp, nil
	}
	return nil, nil
}

type fakePayments struct{ *memStore }

func (f fakePayments) Create(ctx context.Context, p *entity.PaymentRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.payments = append(f.payments, &cp)
	return nil
}

func (f fakePayments) FindByIntentID(ctx context.Context, intentID string) (*entity.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ProviderIntentID != nil && *p.ProviderIntentID == intentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f fakePayments) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entity.PaymentRecord
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f fakePayments) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.PaymentRecordStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return fmt.Errorf("payment %s not found", id)
}

func (f fakePayments) MarkReconciled(ctx context.Context, intentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ProviderIntentID != nil && *p.ProviderIntentID == intentID && p.ReconciledAt == nil {
			now := time.Now()
			p.ReconciledAt = &now
			p.Status = entity.PaymentRecordConfirmed
			return true, nil
		}
	}
	return false, nil
}

type fakeProvenance struct{ *memStore }

func (f fakeProvenance) FindLegacyReview(ctx context.Context, id uuid.UUID) (*entity.LegacyReview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r := f.reviews[id]; r != nil {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f fakeProvenance) FindExternalImport(ctx context.Context, externalID string) (*entity.ExternalImport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if imp := f.imports[externalID]; imp != nil {
		cp := *imp
		return &cp, nil
	}
	return nil, nil
}

// fakePricing charges overage per owner and a flat fee per billable guest.
type fakePricing struct {
	overage  int64
	perGuest int64
	err      error
	queries  []pricing.Query
}

func (f *fakePricing) Estimate(ctx context.Context, q pricing.Query) (*pricing.Quote, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	guest := f.perGuest * int64(q.GuestCount)
	return &pricing.Quote{TotalCents: f.overage + guest, OverageCents: f.overage, GuestCents: guest}, nil
}

type fakeProvider struct {
	card       *payment.SavedCard
	chargeErr  error
	intents    map[string]*payment.Intent
	created    []payment.IntentParams
	charges    []payment.ChargeParams
	refunded   []string
	cancelled  []string
	processed  []string
	webhook    *payment.WebhookEvent
	webhookErr error
	seq        int

	// failures by intent id, as the provider would reject them
	refundErrs map[string]error
	cancelErrs map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: map[string]*payment.Intent{}}
}

func (f *fakeProvider) nextIntent(amount int64, status payment.IntentStatus) *payment.Intent {
	f.seq++
	in := &payment.Intent{
		ID:           fmt.Sprintf("pi_%d", f.seq),
		ClientSecret: fmt.Sprintf("pi_%d_secret", f.seq),
		Status:       status,
		AmountCents:  amount,
	}
	f.intents[in.ID] = in
	return in
}

func (f *fakeProvider) FindSavedCard(ctx context.Context, email string) (*payment.SavedCard, error) {
	return f.card, nil
}

func (f *fakeProvider) ChargeOffSession(ctx context.Context, c payment.ChargeParams) (*payment.Intent, error) {
	f.charges = append(f.charges, c)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return f.nextIntent(c.AmountCents, payment.IntentSucceeded), nil
}

func (f *fakeProvider) CreateIntent(ctx context.Context, p payment.IntentParams) (*payment.Intent, error) {
	f.created = append(f.created, p)
	return f.nextIntent(p.AmountCents, payment.IntentRequiresPaymentMethod), nil
}

func (f *fakeProvider) ProcessOnReader(ctx context.Context, readerID, intentID string) error {
	f.processed = append(f.processed, readerID+"/"+intentID)
	return nil
}

func (f *fakeProvider) GetIntent(ctx context.Context, intentID string) (*payment.Intent, error) {
	in, ok := f.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", intentID)
	}
	cp := *in
	return &cp, nil
}

func (f *fakeProvider) CancelIntent(ctx context.Context, intentID string) error {
	if err := f.cancelErrs[intentID]; err != nil {
		return err
	}
	if in, ok := f.intents[intentID]; ok && in.Status == payment.IntentSucceeded {
		return fmt.Errorf("cannot cancel intent %s with status succeeded", intentID)
	}
	f.cancelled = append(f.cancelled, intentID)
	return nil
}

func (f *fakeProvider) Refund(ctx context.Context, intentID string) error {
	if err := f.refundErrs[intentID]; err != nil {
		return err
	}
	f.refunded = append(f.refunded, intentID)
	return nil
}

func (f *fakeProvider) ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error) {
	return f.webhook, f.webhookErr
}

type fakePublisher struct {
	mu     sync.Mutex
	events []response.PushEvent
}

func (f *fakePublisher) Publish(ctx context.Context, ev response.PushEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeNotifier struct {
	receipts []notify.Receipt
}

func (f *fakeNotifier) SendReceipt(ctx context.Context, r notify.Receipt) error {
	f.receipts = append(f.receipts, r)
	return nil
}

type fakeQueue struct {
	payloads []queue.ReconcilePayload
}

func (f *fakeQueue) EnqueueReconcile(ctx context.Context, p queue.ReconcilePayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}
