package wire

import (
	"roster-desk/internal/adaptor"
	"roster-desk/internal/data/repository"
	"roster-desk/pkg/middleware"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireRoster(
	r chi.Router,
	rosterHandler *adaptor.RosterHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		r.Get("/api/bookings/{id}/roster", rosterHandler.GetRoster)
		r.Put("/api/bookings/{id}/slots/{slotId}/link", rosterHandler.LinkMember)
		r.Put("/api/bookings/{id}/slots/{slotId}/unlink", rosterHandler.UnlinkMember)
		r.Post("/api/bookings/{id}/guests", rosterHandler.AddGuest)
		r.Delete("/api/bookings/{id}/guests/{guestId}", rosterHandler.RemoveGuest)
		r.Patch("/api/bookings/{id}/player-count", rosterHandler.UpdatePlayerCount)

		r.Get("/api/members/search", rosterHandler.SearchMembers)
		r.Get("/api/fee-estimate", rosterHandler.EstimateFees)
	})
}
