package wire

import (
	"roster-desk/internal/adaptor"
	"roster-desk/internal/data/repository"
	"roster-desk/pkg/middleware"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAssignment(
	r chi.Router,
	assignmentHandler *adaptor.AssignmentHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		r.Post("/api/legacy-reviews/{id}/assign", assignmentHandler.ResolveLegacyReview)
		r.Post("/api/bookings/{id}/assign", assignmentHandler.AssignPendingBooking)
		r.Post("/api/external-bookings/{externalId}/assign", assignmentHandler.LinkExternalImport)
	})
}
