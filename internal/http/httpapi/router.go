package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"shortgen/internal/http/handlers"
	"shortgen/internal/middleware"
)

// Options configures the router around an App.
type Options struct {
	JWTSecret       string
	RateLimitPerMin int
	CORSOrigins     []string
	Languages       []string
	// Static serves stored scene images under /static/ when set.
	Static http.Handler
	Logger zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", opts.Static))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(
			middleware.Language(opts.Languages),
			middleware.AuthJWT(opts.JWTSecret),
		)

		r.Get("/presets", app.ListPresets)
		r.Get("/credits", app.Credits)

		r.Route("/narrative", func(r chi.Router) {
			r.Post("/scene-params", app.SceneParams)
			r.Post("/guardrail", app.GuardRail)
		})

		r.Route("/shorts", func(r chi.Router) {
			r.Post("/", app.CreateShort)
			r.Get("/{id}", app.GetShort)
			r.Get("/{id}/quote", app.QuoteShort)
			r.Get("/{id}/export", app.ExportShort)
			r.With(middleware.RateLimit(opts.RateLimitPerMin, time.Minute)).
				Post("/{id}/generate", app.GenerateShort)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(middleware.RoleAdmin))
			r.Post("/model-cache/invalidate", app.InvalidateModelCache)
		})
	})

	return r
}
