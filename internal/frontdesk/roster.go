package frontdesk

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"

	"go.uber.org/zap"
)

// MatchChoice resolves a MemberMatchWarning.
type MatchChoice int

const (
	MatchLinkAsMember MatchChoice = iota + 1
	MatchAddAsGuest
)

// RosterStore caches the committed roster of the open booking. Every
// mutation goes to the server and is followed by a full re-fetch.
type RosterStore struct {
	api       API
	bookingID string
	ctx       context.Context
	em        emitter
	log       *zap.Logger

	mu     sync.Mutex
	roster *response.RosterResponse
}

func newRosterStore(ctx context.Context, api API, bookingID string, em emitter, log *zap.Logger) *RosterStore {
	return &RosterStore{
		api:       api,
		bookingID: bookingID,
		ctx:       ctx,
		em:        em,
		log:       log.With(zap.String("component", "roster_store")),
	}
}

// Current returns a copy of the cached roster, or nil before the first fetch.
func (s *RosterStore) Current() *response.RosterResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Clone()
}

func (s *RosterStore) set(r *response.RosterResponse) {
	s.mu.Lock()
	s.roster = r.Clone()
	s.mu.Unlock()
	s.em.emit(Event{Kind: EventRosterChanged})
}

// restore puts a snapshot back; a nil snapshot leaves the cache alone.
func (s *RosterStore) restore(snap *response.RosterResponse) {
	if snap == nil {
		return
	}
	s.set(snap)
}

func (s *RosterStore) patch(fn func(r *response.RosterResponse)) {
	s.mu.Lock()
	if s.roster == nil {
		s.mu.Unlock()
		return
	}
	fn(s.roster)
	recompute(s.roster)
	s.mu.Unlock()
	s.em.emit(Event{Kind: EventRosterChanged})
}

// Refresh fetches the authoritative roster. A result that arrives after the
// booking was closed is dropped.
func (s *RosterStore) Refresh(ctx context.Context) (*response.RosterResponse, error) {
	r, err := s.api.GetRoster(ctx, s.bookingID)
	if err != nil {
		return nil, err
	}
	if s.ctx.Err() != nil || ctx.Err() != nil {
		return nil, ErrNoBooking
	}
	s.set(r)
	return r.Clone(), nil
}

func (s *RosterStore) refresh(ctx context.Context) error {
	_, err := s.Refresh(ctx)
	return err
}

func (s *RosterStore) open() error {
	if s.ctx.Err() != nil {
		return ErrNoBooking
	}
	return nil
}

func (s *RosterStore) LinkMember(ctx context.Context, slotID, email string) error {
	if err := s.open(); err != nil {
		return err
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return invalid("email", "is required")
	}
	if slotID == "" {
		return invalid("slot", "is required")
	}

	if err := s.api.LinkMember(ctx, s.bookingID, slotID, email); err != nil {
		return err
	}
	return s.refresh(ctx)
}

// UnlinkMember clears the slot locally at once and puts the exact prior
// roster back if the server refuses.
func (s *RosterStore) UnlinkMember(ctx context.Context, slotID string) error {
	if err := s.open(); err != nil {
		return err
	}

	return Compensate(ctx, Compensation[*response.RosterResponse]{
		Snapshot: s.Current,
		Apply: func() {
			s.patch(func(r *response.RosterResponse) {
				for i := range r.Members {
					if r.Members[i].ID == slotID && !r.Members[i].IsPrimary {
						clearParticipant(&r.Members[i])
					}
				}
			})
		},
		Restore: s.restore,
		Refresh: s.refresh,
	}, func(ctx context.Context) error {
		return s.api.UnlinkMember(ctx, s.bookingID, slotID)
	})
}

// AddGuest returns a *MemberMatchWarning when the email belongs to a member.
func (s *RosterStore) AddGuest(ctx context.Context, req request.AddGuestRequest) error {
	if err := s.open(); err != nil {
		return err
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid("name", "is required")
	}

	err := s.api.AddGuest(ctx, s.bookingID, req)

	var match *MemberMatchWarning
	if errors.As(err, &match) {
		match.Request = req
		s.em.emit(Event{Kind: EventMemberMatch, Match: match})
		return match
	}
	if err != nil {
		return err
	}
	return s.refresh(ctx)
}

// ResolveMemberMatch applies the staff decision on a member match.
func (s *RosterStore) ResolveMemberMatch(ctx context.Context, w *MemberMatchWarning, choice MatchChoice) error {
	if w == nil {
		return invalid("match", "nothing to resolve")
	}

	switch choice {
	case MatchLinkAsMember:
		slotID := ""
		if w.Request.SlotID != nil {
			slotID = *w.Request.SlotID
		} else if slot, ok := firstEmptySlot(s.Current()); ok {
			slotID = slot.ID
		}
		if slotID == "" {
			return invalid("slot", "no empty slot; raise the player count first")
		}
		return s.LinkMember(ctx, slotID, w.Member.Email)

	case MatchAddAsGuest:
		req := w.Request
		req.ForceAddAsGuest = true
		if err := s.open(); err != nil {
			return err
		}
		if err := s.api.AddGuest(ctx, s.bookingID, req); err != nil {
			return err
		}
		return s.refresh(ctx)
	}

	return invalid("choice", "unknown choice %d", choice)
}

func (s *RosterStore) RemoveGuest(ctx context.Context, guestID string) error {
	if err := s.open(); err != nil {
		return err
	}

	return Compensate(ctx, Compensation[*response.RosterResponse]{
		Snapshot: s.Current,
		Apply: func() {
			s.patch(func(r *response.RosterResponse) {
				for i := range r.Guests {
					if r.Guests[i].ID == guestID {
						clearParticipant(&r.Guests[i])
					}
				}
			})
		},
		Restore: s.restore,
		Refresh: s.refresh,
	}, func(ctx context.Context) error {
		return s.api.RemoveGuest(ctx, s.bookingID, guestID)
	})
}

// UpdatePlayerCount changes the validation target. Shrinking keeps filled
// slots beyond n on the server.
func (s *RosterStore) UpdatePlayerCount(ctx context.Context, n int) error {
	if err := s.open(); err != nil {
		return err
	}
	if n < 1 || n > 4 {
		return invalid("count", "must be between 1 and 4")
	}

	if err := s.api.UpdatePlayerCount(ctx, s.bookingID, n); err != nil {
		return err
	}
	return s.refresh(ctx)
}

// settleLocal flips unsettled rows to status. A nil ids set means every row.
func (s *RosterStore) settleLocal(status string, reason *string, ids map[string]bool) {
	s.patch(func(r *response.RosterResponse) {
		flip := func(list []response.ParticipantResponse) {
			for i := range list {
				p := &list[i]
				if p.Settled() || (ids != nil && !ids[p.ID]) {
					continue
				}
				p.PaymentStatus = status
				p.WaiverReason = reason
			}
		}
		flip(r.Members)
		flip(r.Guests)
	})
}

func clearParticipant(p *response.ParticipantResponse) {
	p.Type = "empty"
	p.UserEmail = nil
	p.GuestInfo = nil
	p.Tier = nil
	p.DisplayName = ""
	p.FeeCents = 0
	p.FeeNote = ""
	p.PaymentStatus = "pending"
	p.UsedGuestPass = false
	p.WaiverReason = nil
}

// recompute re-derives the lists and aggregates after a local patch.
func recompute(r *response.RosterResponse) {
	all := r.Participants()
	sort.SliceStable(all, func(i, j int) bool { return all[i].SlotNumber < all[j].SlotNumber })

	r.Members = []response.ParticipantResponse{}
	r.Guests = []response.ParticipantResponse{}
	for _, p := range all {
		if p.IsGuest() {
			r.Guests = append(r.Guests, p)
		} else {
			r.Members = append(r.Members, p)
		}
	}

	r.Validation = response.ComputeValidation(r.Validation.ExpectedPlayerCount, all)
	r.FinancialSummary = response.ComputeFinancialSummary(all)
}

func firstEmptySlot(r *response.RosterResponse) (response.ParticipantResponse, bool) {
	if r == nil {
		return response.ParticipantResponse{}, false
	}
	var best response.ParticipantResponse
	found := false
	for _, p := range r.Members {
		if p.IsPrimary || p.IsFilled() {
			continue
		}
		if !found || p.SlotNumber < best.SlotNumber {
			best, found = p, true
		}
	}
	return best, found
}

// outstandingIDs lists participants that still owe money.
func outstandingIDs(r *response.RosterResponse) []string {
	var ids []string
	for _, p := range r.Participants() {
		if !p.Settled() {
			ids = append(ids, p.ID)
		}
	}
	return ids
}
