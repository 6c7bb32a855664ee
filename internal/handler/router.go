package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/sosai/counsel/backend/internal/handler/chat"
	wsHandler "github.com/sosai/counsel/backend/internal/handler/ws"
	middlewarePkg "github.com/sosai/counsel/backend/internal/middleware"
	"github.com/sosai/counsel/backend/internal/service/auth"
	"github.com/sosai/counsel/backend/internal/service/escalation"
	"github.com/sosai/counsel/backend/internal/service/relay"
	"github.com/sosai/counsel/backend/internal/storage/transcript"
	"github.com/sosai/counsel/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(relaySvc *relay.Service, authSvc *auth.Authenticator, issuer auth.Issuer, store transcript.Store, alerts *escalation.Broadcaster) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(issuer, store).RegisterRoutes(api)
		wsHandler.New(relaySvc, authSvc, alerts).RegisterRoutes(api)

		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"sessions": relaySvc.SessionCount(),
				"monitors": alerts.SubscriberCount(),
			})
		})
	})

	return r
}
