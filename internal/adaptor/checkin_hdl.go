package adaptor

import (
	"net/http"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/usecase"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CheckinHandler struct {
	service usecase.CheckinService
	log     *zap.Logger
}

func NewCheckinHandler(service usecase.CheckinService, log *zap.Logger) *CheckinHandler {
	return &CheckinHandler{
		service: service,
		log:     log.With(zap.String("handler", "checkin")),
	}
}

// UpdateStatus handles PUT /api/bookings/{id}/checkin. Attendance with
// outstanding fees answers 402 with the payment gate.
func (h *CheckinHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req request.CheckinRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update booking status")
		return
	}

	utils.ResponseSuccess(w, "Status updated", out)
}
