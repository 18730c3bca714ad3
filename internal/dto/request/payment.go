package request

type PaymentAction string

const (
	PaymentActionConfirm      PaymentAction = "confirm"
	PaymentActionConfirmAll   PaymentAction = "confirm_all"
	PaymentActionWaive        PaymentAction = "waive"
	PaymentActionWaiveAll     PaymentAction = "waive_all"
	PaymentActionUseGuestPass PaymentAction = "use_guest_pass"
)

// NeedsParticipant reports whether the action targets a single participant.
func (a PaymentAction) NeedsParticipant() bool {
	return a == PaymentActionConfirm || a == PaymentActionWaive || a == PaymentActionUseGuestPass
}

// NeedsReason reports whether the action requires a free-text reason.
func (a PaymentAction) NeedsReason() bool {
	return a == PaymentActionWaive || a == PaymentActionWaiveAll
}

type UpdatePaymentsRequest struct {
	Action        PaymentAction `json:"action" validate:"required,oneof=confirm confirm_all waive waive_all use_guest_pass"`
	ParticipantID *string       `json:"participant_id,omitempty" validate:"omitempty,uuid"`
	Reason        *string       `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ChargeSavedCardRequest struct {
	Email          string   `json:"email" validate:"required,email"`
	BookingID      string   `json:"booking_id" validate:"required,uuid"`
	SessionID      string   `json:"session_id" validate:"required,max=64"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,uuid"`
}

type HostedPaymentRequest struct {
	BookingID      string   `json:"booking_id" validate:"required,uuid"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,uuid"`
	Email          string   `json:"email" validate:"omitempty,email"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required,startswith=pi_"`
}

type TerminalPaymentRequest struct {
	BookingID      string   `json:"booking_id" validate:"required,uuid"`
	ReaderID       string   `json:"reader_id" validate:"required"`
	ParticipantIDs []string `json:"participant_ids" validate:"required,min=1,dive,uuid"`
	FeeBreakdown   string   `json:"fee_breakdown" validate:"max=500"`
}
