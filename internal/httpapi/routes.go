package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/spygrid/codenames-backend/internal/hub"
	"github.com/spygrid/codenames-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, maxPlayers int, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	api := New(h, maxPlayers, log)

	r := chi.NewRouter()
	r.Route("/api/game", func(r chi.Router) {
		r.Post("/", api.CreateGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Post("/join", api.Join)
			r.Post("/start", api.StartGame)
			r.Post("/reveal", api.Reveal)
			r.Post("/end-turn", api.EndTurn)
			r.Get("/ws", ws.Handler(h, log))
		})
	})
	r.Get("/healthz", Healthz)
	return r
}
