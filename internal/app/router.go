package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-pos/meridian/internal/pos"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	PosHandler *pos.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/pos", func(r chi.Router) {
		params.PosHandler.MountRoutes(r)
	})

	return r
}
