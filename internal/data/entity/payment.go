package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCardOnFile PaymentMethod = "card_on_file"
	PaymentMethodHosted     PaymentMethod = "hosted"
	PaymentMethodTerminal   PaymentMethod = "terminal"
	PaymentMethodCash       PaymentMethod = "cash"
	PaymentMethodWaiver     PaymentMethod = "waiver"
)

type PaymentRecordStatus string

const (
	PaymentRecordCreated   PaymentRecordStatus = "created"
	PaymentRecordConfirmed PaymentRecordStatus = "confirmed"
	PaymentRecordFailed    PaymentRecordStatus = "failed"
	PaymentRecordCancelled PaymentRecordStatus = "cancelled"
	PaymentRecordRefunded  PaymentRecordStatus = "refunded"
)

// PaymentRecord tracks one provider payment (or desk-side settlement) for a booking.
type PaymentRecord struct {
	BaseNoDelete
	BookingID        uuid.UUID           `db:"booking_id"`
	ProviderIntentID *string             `db:"provider_intent_id"`
	Method           PaymentMethod       `db:"method"`
	AmountCents      int64               `db:"amount_cents"`
	Status           PaymentRecordStatus `db:"status"`
	ParticipantIDs   []string            `db:"participant_ids"`
	Note             *string             `db:"note"`
	ReconciledAt     *time.Time          `db:"reconciled_at"`
}
