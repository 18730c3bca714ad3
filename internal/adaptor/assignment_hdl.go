package adaptor

import (
	"context"
	"net/http"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/dto/response"
	"roster-desk/internal/usecase"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AssignmentHandler struct {
	service usecase.AssignmentService
	log     *zap.Logger
}

func NewAssignmentHandler(service usecase.AssignmentService, log *zap.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		log:     log.With(zap.String("handler", "assignment")),
	}
}

type finalizeFunc func(ctx context.Context, id string, req *request.FinalizeRosterRequest) (*response.FinalizeResponse, error)

func (h *AssignmentHandler) finalize(w http.ResponseWriter, r *http.Request, param, operation string, fn finalizeFunc) {
	var req request.FinalizeRosterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := fn(r.Context(), chi.URLParam(r, param), &req)
	if err != nil {
		handleServiceError(w, h.log, err, operation)
		return
	}

	utils.ResponseSuccess(w, "Roster assigned", out)
}

// ResolveLegacyReview handles POST /api/legacy-reviews/{id}/assign
func (h *AssignmentHandler) ResolveLegacyReview(w http.ResponseWriter, r *http.Request) {
	h.finalize(w, r, "id", "resolve legacy review", h.service.ResolveLegacyReview)
}

// AssignPendingBooking handles POST /api/bookings/{id}/assign
func (h *AssignmentHandler) AssignPendingBooking(w http.ResponseWriter, r *http.Request) {
	h.finalize(w, r, "id", "assign booking", h.service.AssignPendingBooking)
}

// LinkExternalImport handles POST /api/external-bookings/{externalId}/assign
func (h *AssignmentHandler) LinkExternalImport(w http.ResponseWriter, r *http.Request) {
	h.finalize(w, r, "externalId", "link external booking", h.service.LinkExternalImport)
}
