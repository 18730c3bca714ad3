package adaptor

import (
	"io"
	"net/http"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/usecase"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// UpdatePayments handles PATCH /api/bookings/{id}/payments
func (h *PaymentHandler) UpdatePayments(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePaymentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.UpdatePayments(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update payments")
		return
	}

	utils.ResponseSuccess(w, "Payments updated", out)
}

// GetSavedCard handles GET /api/payments/saved-card?email=
func (h *PaymentHandler) GetSavedCard(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.GetSavedCard(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		handleServiceError(w, h.log, err, "get saved card")
		return
	}

	utils.ResponseSuccess(w, "success", out)
}

// ChargeSavedCard handles POST /api/payments/charge-saved-card. Declines and
// missing cards are outcomes, not errors.
func (h *PaymentHandler) ChargeSavedCard(w http.ResponseWriter, r *http.Request) {
	var req request.ChargeSavedCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.ChargeSavedCard(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "charge saved card")
		return
	}

	utils.ResponseSuccess(w, string(out.Outcome), out)
}

// CreateHostedPayment handles POST /api/payments/hosted
func (h *PaymentHandler) CreateHostedPayment(w http.ResponseWriter, r *http.Request) {
	var req request.HostedPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.CreateHostedPayment(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create hosted payment")
		return
	}

	utils.ResponseCreated(w, "Payment created", out)
}

// ConfirmPayment handles POST /api/payments/confirm
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req request.ConfirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.ConfirmPayment(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "confirm payment")
		return
	}

	utils.ResponseSuccess(w, "success", out)
}

// CreateTerminalPayment handles POST /api/payments/terminal
func (h *PaymentHandler) CreateTerminalPayment(w http.ResponseWriter, r *http.Request) {
	var req request.TerminalPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.CreateTerminalPayment(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create terminal payment")
		return
	}

	utils.ResponseCreated(w, "Payment sent to reader", out)
}

// VoidPayments handles POST /api/bookings/{id}/payments/void
func (h *PaymentHandler) VoidPayments(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.VoidPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "void payments")
		return
	}

	utils.ResponseSuccess(w, "Payments voided", out)
}

// StripeWebhook handles POST /api/webhooks/stripe (public, signature verified)
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid webhook body", nil)
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		handleServiceError(w, h.log, err, "stripe webhook")
		return
	}

	utils.ResponseSuccess(w, "received", nil)
}
