package wire

import (
	"roster-desk/internal/adaptor"
	"roster-desk/internal/data/repository"
	"roster-desk/pkg/middleware"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePush(
	r chi.Router,
	pushHandler *adaptor.PushHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.With(middleware.AuthSession(repo.Session, log)).
		Get("/ws/bookings/{id}", pushHandler.Subscribe)
}
