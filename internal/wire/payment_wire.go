package wire

import (
	"roster-desk/internal/adaptor"
	"roster-desk/internal/data/repository"
	"roster-desk/pkg/middleware"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		r.Patch("/api/bookings/{id}/payments", paymentHandler.UpdatePayments)
		r.Post("/api/bookings/{id}/payments/void", paymentHandler.VoidPayments)

		r.Route("/api/payments", func(r chi.Router) {
			r.Get("/saved-card", paymentHandler.GetSavedCard)
			r.Post("/charge-saved-card", paymentHandler.ChargeSavedCard)
			r.Post("/hosted", paymentHandler.CreateHostedPayment)
			r.Post("/confirm", paymentHandler.ConfirmPayment)
			r.Post("/terminal", paymentHandler.CreateTerminalPayment)
		})
	})

	// ==================== PUBLIC ROUTES ====================
	// authenticated by the Stripe-Signature header
	r.Post("/api/webhooks/stripe", paymentHandler.StripeWebhook)
}
