package blockfaces

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubbishGeo/geo-backend/internal/middleware"
)

func SetupRoutes(verifier middleware.TokenVerifier) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenMiddleware(verifier))
		r.Get("/radial", RadialHandler)
		r.Get("/sector", SectorHandler)
		r.Get("/coord", CoordHandler)
		r.Get("/run", RunHandler)
	})

	return r
}
