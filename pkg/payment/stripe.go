package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"roster-desk/pkg/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

var (
	ErrNoSavedCard      = errors.New("no saved card on file")
	ErrRequiresAction   = errors.New("card requires additional verification")
	ErrNotConfigured    = errors.New("payment provider not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// CardError is a decline or other card-level failure reported by the processor.
type CardError struct {
	Code    string
	Message string
}

func (e *CardError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("card error (%s): %s", e.Code, e.Message)
	}
	return "card error: " + e.Message
}

type IntentStatus string

const (
	IntentSucceeded             IntentStatus = "succeeded"
	IntentProcessing            IntentStatus = "processing"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentCanceled              IntentStatus = "canceled"
)

// Open reports whether the intent can still be cancelled.
func (s IntentStatus) Open() bool {
	return s != IntentSucceeded && s != IntentCanceled
}

type Intent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	AmountCents  int64
	Metadata     map[string]string
}

type SavedCard struct {
	CustomerID      string
	PaymentMethodID string
	Brand           string
	Last4           string
}

type ChargeParams struct {
	Card           SavedCard
	AmountCents    int64
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
}

type IntentParams struct {
	AmountCents    int64
	Description    string
	Metadata       map[string]string
	IdempotencyKey string
	CardPresent    bool // terminal reader payment
}

// WebhookEvent is the subset of a processor event that drives reconciliation.
type WebhookEvent struct {
	ID       string
	Type     string
	IntentID string
	Metadata map[string]string
}

const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventInvoicePaid            = "invoice.paid"
)

type StripeProvider struct {
	sc            *client.API
	currency      string
	webhookSecret string
	log           *zap.Logger
}

func NewStripeProvider(config utils.StripeConfig, log *zap.Logger) *StripeProvider {
	var sc *client.API
	if config.SecretKey != "" {
		sc = client.New(config.SecretKey, nil)
	}

	currency := config.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &StripeProvider{
		sc:            sc,
		currency:      currency,
		webhookSecret: config.WebhookSecret,
		log:           log.With(zap.String("provider", "stripe")),
	}
}

func (p *StripeProvider) ready() error {
	if p.sc == nil {
		return ErrNotConfigured
	}
	return nil
}

// FindSavedCard looks up the customer by email and returns their default card,
// or the first card on file. It returns nil when no card exists.
func (p *StripeProvider) FindSavedCard(ctx context.Context, email string) (*SavedCard, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := p.sc.Customers.List(params)
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("list customers for %s: %w", email, err)
		}
		return nil, nil
	}
	cust := it.Customer()

	defaultPM := ""
	if cust.InvoiceSettings != nil && cust.InvoiceSettings.DefaultPaymentMethod != nil {
		defaultPM = cust.InvoiceSettings.DefaultPaymentMethod.ID
	}

	pmParams := &stripe.PaymentMethodListParams{
		Customer: stripe.String(cust.ID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	pmParams.Context = ctx

	var chosen *stripe.PaymentMethod
	pit := p.sc.PaymentMethods.List(pmParams)
	for pit.Next() {
		pm := pit.PaymentMethod()
		if chosen == nil || pm.ID == defaultPM {
			chosen = pm
		}
	}
	if err := pit.Err(); err != nil {
		return nil, fmt.Errorf("list payment methods for customer %s: %w", cust.ID, err)
	}

	if chosen == nil {
		return nil, nil
	}

	card := &SavedCard{CustomerID: cust.ID, PaymentMethodID: chosen.ID}
	if chosen.Card != nil {
		card.Brand = string(chosen.Card.Brand)
		card.Last4 = chosen.Card.Last4
	}
	return card, nil
}

// ChargeOffSession confirms an off-session payment against a saved card.
func (p *StripeProvider) ChargeOffSession(ctx context.Context, c ChargeParams) (*Intent, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(c.AmountCents),
		Currency:      stripe.String(p.currency),
		Customer:      stripe.String(c.Card.CustomerID),
		PaymentMethod: stripe.String(c.Card.PaymentMethodID),
		OffSession:    stripe.Bool(true),
		Confirm:       stripe.Bool(true),
	}
	if c.Description != "" {
		params.Description = stripe.String(c.Description)
	}
	params.Context = ctx
	if c.IdempotencyKey != "" {
		params.SetIdempotencyKey(c.IdempotencyKey)
	}
	for k, v := range c.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		p.log.Warn("Off-session charge failed", zap.Error(err), zap.String("customer", c.Card.CustomerID))
		return nil, classifyChargeError(err)
	}

	if pi.Status == stripe.PaymentIntentStatusRequiresAction {
		return toIntent(pi), ErrRequiresAction
	}

	return toIntent(pi), nil
}

// CreateIntent creates an unconfirmed intent for the hosted card form or a
// terminal reader.
func (p *StripeProvider) CreateIntent(ctx context.Context, ip IntentParams) (*Intent, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(ip.AmountCents),
		Currency: stripe.String(p.currency),
	}
	if ip.CardPresent {
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card_present"})
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodAutomatic))
	} else {
		params.AutomaticPaymentMethods = &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		}
	}
	if ip.Description != "" {
		params.Description = stripe.String(ip.Description)
	}
	params.Context = ctx
	if ip.IdempotencyKey != "" {
		params.SetIdempotencyKey(ip.IdempotencyKey)
	}
	for k, v := range ip.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := p.sc.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	return toIntent(pi), nil
}

// ProcessOnReader hands an intent to a card reader.
func (p *StripeProvider) ProcessOnReader(ctx context.Context, readerID, intentID string) error {
	if err := p.ready(); err != nil {
		return err
	}

	params := &stripe.TerminalReaderProcessPaymentIntentParams{
		PaymentIntent: stripe.String(intentID),
	}
	params.Context = ctx

	if _, err := p.sc.TerminalReaders.ProcessPaymentIntent(readerID, params); err != nil {
		return fmt.Errorf("process intent %s on reader %s: %w", intentID, readerID, err)
	}
	return nil
}

func (p *StripeProvider) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := p.sc.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("get payment intent %s: %w", intentID, err)
	}
	return toIntent(pi), nil
}

func (p *StripeProvider) CancelIntent(ctx context.Context, intentID string) error {
	if err := p.ready(); err != nil {
		return err
	}

	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx

	if _, err := p.sc.PaymentIntents.Cancel(intentID, params); err != nil {
		return fmt.Errorf("cancel payment intent %s: %w", intentID, err)
	}
	return nil
}

func (p *StripeProvider) Refund(ctx context.Context, intentID string) error {
	if err := p.ready(); err != nil {
		return err
	}

	params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
	params.Context = ctx
	params.SetIdempotencyKey("refund-" + intentID)

	if _, err := p.sc.Refunds.New(params); err != nil {
		return fmt.Errorf("refund payment intent %s: %w", intentID, err)
	}
	return nil
}

// ParseWebhook verifies the signature header and extracts the payment intent
// the event refers to. Unrelated event types come back with an empty IntentID.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if p.webhookSecret == "" {
		return nil, ErrNotConfigured
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}

	switch out.Type {
	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent event %s: %w", event.ID, err)
		}
		out.IntentID = pi.ID
		out.Metadata = pi.Metadata

	case EventInvoicePaid:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice event %s: %w", event.ID, err)
		}
		if inv.PaymentIntent != nil {
			out.IntentID = inv.PaymentIntent.ID
		}
		out.Metadata = inv.Metadata
	}

	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       IntentStatus(pi.Status),
		AmountCents:  pi.Amount,
		Metadata:     pi.Metadata,
	}
}

func classifyChargeError(err error) error {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return fmt.Errorf("charge saved card: %w", err)
	}

	if serr.Code == stripe.ErrorCodeAuthenticationRequired {
		return ErrRequiresAction
	}
	if serr.Type == stripe.ErrorTypeCard {
		return &CardError{Code: string(serr.Code), Message: serr.Msg}
	}
	return fmt.Errorf("charge saved card: %w", err)
}
