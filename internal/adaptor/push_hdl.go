package adaptor

import (
	"net/http"

	"roster-desk/internal/push"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PushHandler struct {
	hub *push.Hub
	log *zap.Logger
}

func NewPushHandler(hub *push.Hub, log *zap.Logger) *PushHandler {
	return &PushHandler{
		hub: hub,
		log: log.With(zap.String("handler", "push")),
	}
}

// Subscribe handles GET /ws/bookings/{id}
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(bookingID); err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	h.hub.ServeWS(w, r, bookingID)
}
