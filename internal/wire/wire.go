package wire

import (
	"net/http"

	"roster-desk/internal/adaptor"
	"roster-desk/internal/data/repository"
	"roster-desk/internal/push"
	"roster-desk/internal/usecase"
	"roster-desk/pkg/middleware"
	"roster-desk/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the router and the services the worker also needs
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes
func Wiring(repo *repository.Repository, deps usecase.Deps, hub *push.Hub, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, hub, logger)

	router := setupRouter(handler, repo, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	limiter := middleware.NewRateLimiter(config.App.RateLimitRPS, config.App.RateBurst)

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.CORSOrigins))
	r.Use(limiter.Limit(logger))

	wireRoster(r, handler.Roster, repo, config, logger)
	wireAssignment(r, handler.Assignment, repo, config, logger)
	wirePayment(r, handler.Payment, repo, config, logger)
	wireCheckin(r, handler.Checkin, repo, config, logger)
	wirePush(r, handler.Push, repo, config, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
