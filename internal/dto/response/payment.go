package response

type ChargeOutcome string

const (
	ChargeOutcomeSuccess        ChargeOutcome = "success"
	ChargeOutcomeNoSavedCard    ChargeOutcome = "no_saved_card"
	ChargeOutcomeRequiresAction ChargeOutcome = "requires_action"
	ChargeOutcomeCardError      ChargeOutcome = "card_error"
)

type ChargeSavedCardResponse struct {
	Outcome         ChargeOutcome `json:"outcome"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	Message         string        `json:"message,omitempty"`
}

type SavedCardResponse struct {
	HasSavedCard bool   `json:"has_saved_card"`
	Brand        string `json:"brand,omitempty"`
	Last4        string `json:"last4,omitempty"`
}

type HostedPaymentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountCents     int64  `json:"amount_cents"`
}

type TerminalPaymentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ReaderID        string `json:"reader_id"`
	AmountCents     int64  `json:"amount_cents"`
}

type ConfirmPaymentResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	Status          string `json:"status"`
	Reconciled      bool   `json:"reconciled"`
}

type PaymentActionResponse struct {
	Updated int64 `json:"updated"`
}

type VoidPaymentsResponse struct {
	Refunded  int   `json:"refunded"`
	Cancelled int   `json:"cancelled"`
	Reset     int64 `json:"reset"`
	Failed    int   `json:"failed"`
}

type FeeEstimateResponse struct {
	TotalCents   int64 `json:"total_cents"`
	OverageCents int64 `json:"overage_cents"`
	GuestCents   int64 `json:"guest_cents"`
}

type CheckinResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

// PaymentGate is returned with a 402 from check-in.
type PaymentGate struct {
	Validation       ValidationInfo   `json:"validation"`
	FinancialSummary FinancialSummary `json:"financial_summary"`
}
