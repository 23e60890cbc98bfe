package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/fastfingers/race-backend/internal/identity"
	"github.com/fastfingers/race-backend/internal/prefs"
	"github.com/fastfingers/race-backend/internal/registry"
	"github.com/fastfingers/race-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, store *prefs.Store, ident identity.Provider, origin string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/room", CreateRoomKey(reg))
	r.Get("/room/join", ws.Handler(reg, ident, logger))
	r.Post("/prefs", UpdatePreferences(store, ident, logger))
	r.Get("/words", Words())
	r.Get("/healthz", Healthz)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	return c.Handler(r)
}
