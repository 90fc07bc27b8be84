package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/itchan-dev/itboard/backend/internal/handler"
	"github.com/itchan-dev/itboard/shared/config"
	mw "github.com/itchan-dev/itboard/shared/middleware"
	"github.com/itchan-dev/itboard/shared/middleware/metrics"
	"github.com/itchan-dev/itboard/shared/middleware/throttle"
)

// New builds the API router. The per-IP throttle guards /v1 only; probes
// and metrics are never throttled.
func New(cfg *config.Public, h *handler.Handler, th *throttle.Throttle) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)

	// setup CORS for the frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Location", "Retry-After"},
		MaxAge:         300,
	}))

	r.Use(mw.SecurityHeaders(cfg.SecureCookies, mw.APICSP))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(mw.IPRateLimit(th))

		v1.Post("/boards/{board}/threads", h.CreateThread)
		v1.Post("/boards/{board}/threads/{thread}/replies", h.CreateReply)
		v1.Get("/tasks/{task}", h.GetTask)
	})

	return r
}
