package response

import (
	"time"
)

type GuestInfoResponse struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

type ParticipantResponse struct {
	ID            string             `json:"id"`
	SlotNumber    int                `json:"slot_number"`
	IsPrimary     bool               `json:"is_primary"`
	Type          string             `json:"type"`
	UserEmail     *string            `json:"user_email"`
	DisplayName   string             `json:"display_name"`
	GuestInfo     *GuestInfoResponse `json:"guest_info"`
	Tier          *string            `json:"tier"`
	FeeCents      int64              `json:"fee_cents"`
	FeeNote       string             `json:"fee_note"`
	PaymentStatus string             `json:"payment_status"`
	UsedGuestPass bool               `json:"used_guest_pass"`
	WaiverReason  *string            `json:"waiver_reason,omitempty"`
}

func (p ParticipantResponse) IsFilled() bool {
	return p.UserEmail != nil || p.GuestInfo != nil
}

func (p ParticipantResponse) IsGuest() bool {
	return p.GuestInfo != nil
}

// Settled reports whether nothing further is owed for this participant.
func (p ParticipantResponse) Settled() bool {
	return p.FeeCents <= 0 || p.PaymentStatus == "paid" || p.PaymentStatus == "waived"
}

type ValidationInfo struct {
	ExpectedPlayerCount int `json:"expected_player_count"`
	ActualPlayerCount   int `json:"actual_player_count"`
	EmptySlots          int `json:"empty_slots"`
}

func (v ValidationInfo) Incomplete() bool {
	return v.EmptySlots > 0
}

type FinancialSummary struct {
	OwnerOverageCents         int64 `json:"owner_overage_cents"`
	GuestFeesWithoutPassCents int64 `json:"guest_fees_without_pass_cents"`
	TotalOwnerOwesCents       int64 `json:"total_owner_owes_cents"`
	GrandTotalCents           int64 `json:"grand_total_cents"`
	OutstandingCents          int64 `json:"outstanding_cents"`
	AllPaid                   bool  `json:"all_paid"`
}

// PaymentRequired reports whether attendance is blocked on payment.
func (f FinancialSummary) PaymentRequired() bool {
	return f.GrandTotalCents > 0 && !f.AllPaid
}

type BookingSummary struct {
	ID                  string    `json:"id"`
	OwnerEmail          string    `json:"owner_email"`
	OwnerName           string    `json:"owner_name"`
	ResourceName        string    `json:"resource_name"`
	StartsAt            time.Time `json:"starts_at"`
	DurationMinutes     int       `json:"duration_minutes"`
	Category            string    `json:"category"`
	Status              string    `json:"status"`
	RosterCommitted     bool      `json:"roster_committed"`
	ExpectedPlayerCount int       `json:"expected_player_count"`
}

type RosterResponse struct {
	Booking                   BookingSummary        `json:"booking"`
	Members                   []ParticipantResponse `json:"members"`
	Guests                    []ParticipantResponse `json:"guests"`
	Validation                ValidationInfo        `json:"validation"`
	FinancialSummary          FinancialSummary      `json:"financial_summary"`
	OwnerGuestPassesRemaining int                   `json:"owner_guest_passes_remaining"`
	OwnerGuestPassesTotal     int                   `json:"owner_guest_passes_total"`
}

// Participants returns members and guests ordered as stored.
func (r *RosterResponse) Participants() []ParticipantResponse {
	all := make([]ParticipantResponse, 0, len(r.Members)+len(r.Guests))
	all = append(all, r.Members...)
	all = append(all, r.Guests...)
	return all
}

// Primary returns the owner participant, if the roster is committed.
func (r *RosterResponse) Primary() (ParticipantResponse, bool) {
	for _, p := range r.Members {
		if p.IsPrimary {
			return p, true
		}
	}
	return ParticipantResponse{}, false
}

// Clone deep-copies the roster so snapshots survive later patches.
func (r *RosterResponse) Clone() *RosterResponse {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Members = append([]ParticipantResponse(nil), r.Members...)
	cp.Guests = append([]ParticipantResponse(nil), r.Guests...)
	return &cp
}

type MemberResponse struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Tier  *string `json:"tier,omitempty"`
	Kind  string  `json:"kind"`
}

// MemberMatchResponse is the payload of a 409 returned by add-guest when the
// guest email belongs to a directory record.
type MemberMatchResponse struct {
	MemberID string  `json:"member_id"`
	Email    string  `json:"email"`
	Name     string  `json:"name"`
	Tier     *string `json:"tier,omitempty"`
}

type FinalizeResponse struct {
	BookingID        string `json:"booking_id"`
	FeesRecalculated bool   `json:"fees_recalculated"`
}
