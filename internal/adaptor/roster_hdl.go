package adaptor

import (
	"net/http"

	"roster-desk/internal/dto/request"
	"roster-desk/internal/usecase"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RosterHandler struct {
	service usecase.RosterService
	fees    usecase.FeeService
	log     *zap.Logger
}

func NewRosterHandler(service usecase.RosterService, fees usecase.FeeService, log *zap.Logger) *RosterHandler {
	return &RosterHandler{
		service: service,
		fees:    fees,
		log:     log.With(zap.String("handler", "roster")),
	}
}

// GetRoster handles GET /api/bookings/{id}/roster
func (h *RosterHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	roster, err := h.service.GetRoster(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get roster")
		return
	}

	utils.ResponseSuccess(w, "success", roster)
}

// LinkMember handles PUT /api/bookings/{id}/slots/{slotId}/link
func (h *RosterHandler) LinkMember(w http.ResponseWriter, r *http.Request) {
	var req request.LinkMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.LinkMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "slotId"), &req); err != nil {
		handleServiceError(w, h.log, err, "link member")
		return
	}

	utils.ResponseSuccess(w, "Member linked", nil)
}

// UnlinkMember handles PUT /api/bookings/{id}/slots/{slotId}/unlink
func (h *RosterHandler) UnlinkMember(w http.ResponseWriter, r *http.Request) {
	if err := h.service.UnlinkMember(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "slotId")); err != nil {
		handleServiceError(w, h.log, err, "unlink member")
		return
	}

	utils.ResponseSuccess(w, "Member unlinked", nil)
}

// AddGuest handles POST /api/bookings/{id}/guests
func (h *RosterHandler) AddGuest(w http.ResponseWriter, r *http.Request) {
	var req request.AddGuestRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.AddGuest(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		handleServiceError(w, h.log, err, "add guest")
		return
	}

	utils.ResponseCreated(w, "Guest added", nil)
}

// RemoveGuest handles DELETE /api/bookings/{id}/guests/{guestId}
func (h *RosterHandler) RemoveGuest(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveGuest(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "guestId")); err != nil {
		handleServiceError(w, h.log, err, "remove guest")
		return
	}

	utils.ResponseSuccess(w, "Guest removed", nil)
}

// UpdatePlayerCount handles PATCH /api/bookings/{id}/player-count
func (h *RosterHandler) UpdatePlayerCount(w http.ResponseWriter, r *http.Request) {
	var req request.UpdatePlayerCountRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdatePlayerCount(r.Context(), chi.URLParam(r, "id"), &req); err != nil {
		handleServiceError(w, h.log, err, "update player count")
		return
	}

	utils.ResponseSuccess(w, "Player count updated", nil)
}

// SearchMembers handles GET /api/members/search?q=&limit=
func (h *RosterHandler) SearchMembers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.MemberSearchRequest{
		Query: query.Get("q"),
		Limit: utils.ParseInt(query.Get("limit"), 10),
	}

	members, err := h.service.SearchMembers(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "search members")
		return
	}

	utils.ResponseSuccess(w, "success", members)
}

// EstimateFees handles GET /api/fee-estimate
func (h *RosterHandler) EstimateFees(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.FeeEstimateRequest{
		Email:           query.Get("email"),
		DurationMinutes: utils.ParseInt(query.Get("duration_minutes"), 0),
		PlayerCount:     utils.ParseInt(query.Get("player_count"), 0),
		GuestCount:      utils.ParseInt(query.Get("guest_count"), 0),
		Date:            query.Get("date"),
	}

	estimate, err := h.fees.Estimate(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "estimate fees")
		return
	}

	utils.ResponseSuccess(w, "success", estimate)
}
