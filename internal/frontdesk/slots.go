package frontdesk

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"roster-desk/internal/data/entity"
	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/pkg/utils"

	"go.uber.org/zap"
)

const SlotCount = entity.MaxPlayers

// Slot is one pre-commit roster position.
type Slot interface {
	slot()
}

type EmptySlot struct{}

type MemberSlot struct {
	MemberID string
	Email    string
	Name     string
	Tier     *string
}

type VisitorSlot struct {
	VisitorID string
	Email     string
	Name      string
}

type GuestPlaceholder struct {
	DisplayName string
}

func (EmptySlot) slot()        {}
func (MemberSlot) slot()       {}
func (VisitorSlot) slot()      {}
func (GuestPlaceholder) slot() {}

func slotName(s Slot) string {
	switch v := s.(type) {
	case MemberSlot:
		return v.Name
	case VisitorSlot:
		return v.Name
	case GuestPlaceholder:
		return v.DisplayName
	}
	return ""
}

func isEmpty(s Slot) bool {
	_, ok := s.(EmptySlot)
	return ok || s == nil
}

// EditMode is what the staff is doing with one slot.
type EditMode int

const (
	EditIdle EditMode = iota
	EditSearching
	EditNamingGuest
)

// Provenance is where an unassigned booking came from. Exactly one commit
// path exists per variant.
type Provenance interface {
	provenance()
}

type LegacyReview struct {
	ReviewID string
}

type PendingBooking struct {
	BookingID string
}

type ExternalImport struct {
	ExternalID string
}

func (LegacyReview) provenance()   {}
func (PendingBooking) provenance() {}
func (ExternalImport) provenance() {}

// Target identifies the booking being assigned and the context the fee
// estimate needs.
type Target struct {
	LegacyReviewID   string
	MatchedBookingID string
	ExternalID       string

	Category        string
	DurationMinutes int
	Date            string
}

// ResolveProvenance picks the commit path: legacy review first, then a
// matched booking, then an external import id.
func ResolveProvenance(t Target, externalIDMinLen int) (Provenance, error) {
	switch {
	case strings.TrimSpace(t.LegacyReviewID) != "":
		return LegacyReview{ReviewID: strings.TrimSpace(t.LegacyReviewID)}, nil
	case strings.TrimSpace(t.MatchedBookingID) != "":
		return PendingBooking{BookingID: strings.TrimSpace(t.MatchedBookingID)}, nil
	case strings.TrimSpace(t.ExternalID) != "":
		id := strings.TrimSpace(t.ExternalID)
		if !utils.ValidExternalID(id, externalIDMinLen) {
			return nil, invalid("external_id", "must be digits only and at least %d long", externalIDMinLen)
		}
		return ExternalImport{ExternalID: id}, nil
	}
	return nil, invalid("booking", "no booking to assign")
}

// SlotEngine holds the editable roster of a booking that has not been
// assigned yet.
type SlotEngine struct {
	api  API
	cfg  Config
	ctx  context.Context
	em   emitter
	log  *zap.Logger
	prov Provenance

	target Target

	mu         sync.Mutex
	slots      [SlotCount]Slot
	modes      [SlotCount]EditMode
	finalizing bool

	estimate   *debouncer
	duplicates *debouncer
	search     *debouncer
	surface    *time.Timer
}

func newSlotEngine(ctx context.Context, api API, cfg Config, target Target, prov Provenance, em emitter, log *zap.Logger) *SlotEngine {
	e := &SlotEngine{
		api:        api,
		cfg:        cfg,
		ctx:        ctx,
		em:         em,
		log:        log.With(zap.String("component", "slot_engine")),
		prov:       prov,
		target:     target,
		estimate:   newDebouncer(cfg.EstimateDebounce),
		duplicates: newDebouncer(cfg.DuplicateNameDebounce),
		search:     newDebouncer(cfg.SearchDebounce),
	}
	for i := range e.slots {
		e.slots[i] = EmptySlot{}
	}
	return e
}

func (e *SlotEngine) Provenance() Provenance { return e.prov }

func (e *SlotEngine) Slots() [SlotCount]Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots
}

func (e *SlotEngine) EditMode(i int) EditMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i < 0 || i >= SlotCount {
		return EditIdle
	}
	return e.modes[i]
}

func (e *SlotEngine) additionalAllowed() bool {
	return entity.BookingCategory(e.target.Category).AllowsAdditionalPlayers()
}

func (e *SlotEngine) checkIndex(i int) error {
	if e.ctx.Err() != nil {
		return ErrNoBooking
	}
	if i < 0 || i >= SlotCount {
		return invalid("slot", "must be between 0 and %d", SlotCount-1)
	}
	return nil
}

// UpdateSlot replaces slot i.
func (e *SlotEngine) UpdateSlot(i int, s Slot) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	if s == nil {
		s = EmptySlot{}
	}
	if _, ok := s.(GuestPlaceholder); ok && i == 0 {
		return invalid("slot", "the owner must be a member or visitor")
	}
	if i > 0 && !isEmpty(s) && !e.additionalAllowed() {
		return invalid("slot", "%s bookings take no additional players", e.target.Category)
	}

	e.mu.Lock()
	e.slots[i] = s
	e.modes[i] = EditIdle
	e.mu.Unlock()

	e.em.emit(Event{Kind: EventRosterChanged, Slot: i})
	e.scheduleEstimate()
	return nil
}

func (e *SlotEngine) ClearSlot(i int) error {
	return e.UpdateSlot(i, EmptySlot{})
}

// AddGuestPlaceholder puts a named guest in slot i and checks the name
// against the other slots and the directory.
func (e *SlotEngine) AddGuestPlaceholder(i int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Guest %d", i+1)
	}
	if err := e.UpdateSlot(i, GuestPlaceholder{DisplayName: name}); err != nil {
		return err
	}

	e.mu.Lock()
	e.modes[i] = EditNamingGuest
	e.mu.Unlock()

	e.duplicates.trigger(e.ctx, func(ctx context.Context) {
		e.checkDuplicateName(ctx, i, name)
	})
	return nil
}

// Search looks up the directory for slot i once typing settles.
func (e *SlotEngine) Search(i int, query string) error {
	if err := e.checkIndex(i); err != nil {
		return err
	}
	query = strings.TrimSpace(query)

	e.mu.Lock()
	e.modes[i] = EditSearching
	e.mu.Unlock()

	if len([]rune(query)) < 2 {
		e.search.stop()
		return nil
	}

	e.search.trigger(e.ctx, func(ctx context.Context) {
		members, err := e.api.SearchMembers(ctx, query, 10)
		if err != nil {
			e.log.Debug("Member search failed", zap.Error(err), zap.String("query", query))
			return
		}
		e.em.emit(Event{Kind: EventSearchResults, Slot: i, Members: members})
	})
	return nil
}

// SelectMember fills slot i from a search result.
func (e *SlotEngine) SelectMember(i int, m response.MemberResponse) error {
	if m.Kind == "visitor" {
		return e.UpdateSlot(i, VisitorSlot{VisitorID: m.ID, Email: m.Email, Name: m.Name})
	}
	return e.UpdateSlot(i, MemberSlot{MemberID: m.ID, Email: m.Email, Name: m.Name, Tier: m.Tier})
}

func (e *SlotEngine) checkDuplicateName(ctx context.Context, i int, name string) {
	slots := e.Slots()
	for j, s := range slots {
		if j != i && strings.EqualFold(slotName(s), name) {
			e.em.emit(Event{Kind: EventDuplicateName, Slot: i, Message: fmt.Sprintf("%q is already in slot %d", name, j+1)})
			return
		}
	}

	members, err := e.api.SearchMembers(ctx, name, 5)
	if err != nil {
		e.log.Debug("Duplicate name lookup failed", zap.Error(err))
		return
	}
	for _, m := range members {
		if strings.EqualFold(m.Name, name) {
			e.em.emit(Event{
				Kind:    EventDuplicateName,
				Slot:    i,
				Message: fmt.Sprintf("%q matches member %s", name, m.Email),
				Members: []response.MemberResponse{m},
			})
			return
		}
	}
}

// composition counts filled slots and the ones billed as guests.
func composition(slots [SlotCount]Slot) (players, guests int) {
	for _, s := range slots {
		switch s.(type) {
		case MemberSlot:
			players++
		case VisitorSlot, GuestPlaceholder:
			players++
			guests++
		}
	}
	return players, guests
}

func ownerEmail(s Slot) string {
	switch v := s.(type) {
	case MemberSlot:
		return v.Email
	case VisitorSlot:
		return v.Email
	}
	return ""
}

func (e *SlotEngine) scheduleEstimate() {
	slots := e.Slots()
	email := ownerEmail(slots[0])
	if email == "" || e.target.DurationMinutes <= 0 {
		e.estimate.stop()
		return
	}

	players, guests := composition(slots)
	// the owner is billed as the owner even when a visitor
	if _, ok := slots[0].(VisitorSlot); ok {
		guests--
	}

	req := request.FeeEstimateRequest{
		Email:           email,
		DurationMinutes: e.target.DurationMinutes,
		PlayerCount:     players,
		GuestCount:      guests,
		Date:            e.target.Date,
	}
	e.estimate.trigger(e.ctx, func(ctx context.Context) {
		est, err := e.api.EstimateFees(ctx, req)
		if err != nil {
			e.log.Debug("Fee estimate failed", zap.Error(err))
			return
		}
		e.em.emit(Event{Kind: EventEstimate, Estimate: est})
	})
}

// CanFinalize reports whether Finalize would be attempted.
func (e *SlotEngine) CanFinalize() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !isEmpty(e.slots[0]) && !e.finalizing && e.ctx.Err() == nil
}

func toPlayer(s Slot) (request.PlayerRequest, bool) {
	switch v := s.(type) {
	case MemberSlot:
		email := v.Email
		return request.PlayerRequest{Type: request.PlayerTypeMember, Email: &email, Name: v.Name}, true
	case VisitorSlot:
		email := v.Email
		return request.PlayerRequest{Type: request.PlayerTypeVisitor, Email: &email, Name: v.Name}, true
	case GuestPlaceholder:
		return request.PlayerRequest{Type: request.PlayerTypeGuest, Name: v.DisplayName}, true
	}
	return request.PlayerRequest{}, false
}

// BuildRequest turns the slots into a finalize payload.
func (e *SlotEngine) BuildRequest() (request.FinalizeRosterRequest, error) {
	slots := e.Slots()

	owner, ok := toPlayer(slots[0])
	if !ok {
		return request.FinalizeRosterRequest{}, invalid("owner", "is required")
	}

	req := request.FinalizeRosterRequest{Owner: owner, AdditionalPlayers: []request.PlayerRequest{}}
	for _, s := range slots[1:] {
		if p, ok := toPlayer(s); ok {
			req.AdditionalPlayers = append(req.AdditionalPlayers, p)
		}
	}
	return req, nil
}

// Finalize commits the roster through the path of the booking's provenance.
// A second call while one is in flight returns ErrFinalizeInFlight.
func (e *SlotEngine) Finalize(ctx context.Context) (*response.FinalizeResponse, error) {
	if e.ctx.Err() != nil {
		return nil, ErrNoBooking
	}
	req, err := e.BuildRequest()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if e.finalizing {
		e.mu.Unlock()
		return nil, ErrFinalizeInFlight
	}
	e.finalizing = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.finalizing = false
		e.mu.Unlock()
	}()

	var res *response.FinalizeResponse
	switch p := e.prov.(type) {
	case LegacyReview:
		res, err = e.api.ResolveLegacyReview(ctx, p.ReviewID, req)
	case PendingBooking:
		res, err = e.api.AssignPendingBooking(ctx, p.BookingID, req)
	case ExternalImport:
		res, err = e.api.LinkExternalImport(ctx, p.ExternalID, req)
	default:
		return nil, invalid("booking", "no booking to assign")
	}
	if err != nil {
		e.em.toast(err.Error())
		return nil, err
	}

	e.log.Info("Roster finalized",
		zap.String("booking_id", res.BookingID),
		zap.Bool("fees_recalculated", res.FeesRecalculated),
	)
	e.em.emit(Event{Kind: EventFinalized, BookingID: res.BookingID})

	if res.FeesRecalculated {
		e.scheduleOpenPayment(res.BookingID)
	}
	return res, nil
}

// scheduleOpenPayment asks for the payment surface once the assignment
// surface has had time to close.
func (e *SlotEngine) scheduleOpenPayment(bookingID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.surface != nil {
		e.surface.Stop()
	}
	e.surface = time.AfterFunc(e.cfg.PaymentSurfaceDelay, func() {
		e.em.emit(Event{Kind: EventOpenPayment, BookingID: bookingID})
	})
}

func (e *SlotEngine) stop() {
	e.estimate.stop()
	e.duplicates.stop()
	e.search.stop()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.surface != nil {
		e.surface.Stop()
		e.surface = nil
	}
}
