package entity

import (
	"github.com/google/uuid"
)

type ParticipantType string

const (
	ParticipantTypeOwner   ParticipantType = "owner"
	ParticipantTypeMember  ParticipantType = "member"
	ParticipantTypeVisitor ParticipantType = "visitor"
	ParticipantTypeGuest   ParticipantType = "guest"
	ParticipantTypeEmpty   ParticipantType = "empty"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusWaived  PaymentStatus = "waived"
)

// GuestInfo identifies a participant who is not linked to a directory record.
type GuestInfo struct {
	Name  string  `db:"guest_name"`
	Email *string `db:"guest_email"`
	Phone *string `db:"guest_phone"`
}

// Participant is one committed slot of a booking roster. A filled slot has
// exactly one of UserEmail and Guest set; an empty slot has neither.
type Participant struct {
	BaseNoDelete
	BookingID     uuid.UUID       `db:"booking_id"`
	SlotNumber    int             `db:"slot_number"`
	IsPrimary     bool            `db:"is_primary"`
	Type          ParticipantType `db:"participant_type"`
	UserEmail     *string         `db:"user_email"`
	DisplayName   string          `db:"display_name"`
	Guest         *GuestInfo
	Tier          *string       `db:"tier"`
	FeeCents      int64         `db:"fee_cents"`
	FeeNote       string        `db:"fee_note"`
	PaymentStatus PaymentStatus `db:"payment_status"`
	UsedGuestPass bool          `db:"used_guest_pass"`
	WaiverReason  *string       `db:"waiver_reason"`
}

func (p *Participant) IsFilled() bool {
	return p.UserEmail != nil || p.Guest != nil
}

func (p *Participant) IsGuest() bool {
	return p.Guest != nil
}

// Settled reports whether the participant owes nothing further.
func (p *Participant) Settled() bool {
	return p.FeeCents <= 0 || p.PaymentStatus == PaymentStatusPaid || p.PaymentStatus == PaymentStatusWaived
}

// Clear turns the slot back into an empty placeholder.
func (p *Participant) Clear() {
	p.Type = ParticipantTypeEmpty
	p.UserEmail = nil
	p.Guest = nil
	p.Tier = nil
	p.DisplayName = ""
	p.FeeCents = 0
	p.FeeNote = ""
	p.PaymentStatus = PaymentStatusPending
	p.UsedGuestPass = false
	p.WaiverReason = nil
}
