package response

const (
	PushRosterUpdate  = "booking-roster-update"
	PushInvoiceUpdate = "booking-invoice-update"
	PushBillingUpdate = "billing-update"
)

const (
	ActionMemberLinked       = "member_linked"
	ActionMemberUnlinked     = "member_unlinked"
	ActionGuestAdded         = "guest_added"
	ActionGuestRemoved       = "guest_removed"
	ActionPlayerCountChanged = "player_count_changed"
	ActionRosterAssigned     = "roster_assigned"
	ActionStatusChanged      = "status_changed"

	ActionPaymentConfirmed = "payment_confirmed"
	ActionInvoicePaid      = "invoice_paid"
	ActionAllConfirmed     = "confirm_all"
	ActionAllWaived        = "waive_all"
	ActionParticipantPaid  = "confirm"
	ActionWaived           = "waive"
	ActionGuestPassUsed    = "use_guest_pass"
	ActionPaymentsVoided   = "payments_voided"
)

// PushEvent is one message on the booking event channel.
type PushEvent struct {
	Type      string `json:"type"`
	BookingID string `json:"booking_id"`
	Action    string `json:"action"`
}

// SignalsPayment reports whether the event announces that the booking's
// outstanding balance was settled.
func (e PushEvent) SignalsPayment() bool {
	switch e.Type {
	case PushBillingUpdate:
		switch e.Action {
		case ActionPaymentConfirmed, ActionInvoicePaid, ActionAllConfirmed, ActionAllWaived:
			return true
		}
	case PushInvoiceUpdate:
		return e.Action == ActionInvoicePaid
	}
	return false
}
