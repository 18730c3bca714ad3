package usecase

import (
	"context"

	"roster-desk/internal/dto/response"
	"roster-desk/pkg/notify"
	"roster-desk/pkg/payment"
	"roster-desk/pkg/pricing"
	"roster-desk/pkg/queue"
)

type Pricing interface {
	Estimate(ctx context.Context, q pricing.Query) (*pricing.Quote, error)
}

type PaymentProvider interface {
	FindSavedCard(ctx context.Context, email string) (*payment.SavedCard, error)
	ChargeOffSession(ctx context.Context, c payment.ChargeParams) (*payment.Intent, error)
	CreateIntent(ctx context.Context, p payment.IntentParams) (*payment.Intent, error)
	ProcessOnReader(ctx context.Context, readerID, intentID string) error
	GetIntent(ctx context.Context, intentID string) (*payment.Intent, error)
	CancelIntent(ctx context.Context, intentID string) error
	Refund(ctx context.Context, intentID string) error
	ParseWebhook(payload []byte, signature string) (*payment.WebhookEvent, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev response.PushEvent) error
}

type Notifier interface {
	SendReceipt(ctx context.Context, r notify.Receipt) error
}

type ReconcileQueue interface {
	EnqueueReconcile(ctx context.Context, p queue.ReconcilePayload) error
}

// Deps are the external collaborators shared by the services. Notifier and
// Queue are optional; without a queue, reconciliation runs inline.
type Deps struct {
	Pricing   Pricing
	Provider  PaymentProvider
	Publisher Publisher
	Notifier  Notifier
	Queue     ReconcileQueue
}
