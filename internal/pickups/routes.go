package pickups

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/RubbishGeo/geo-backend/internal/middleware"
)

func SetupRoutes(keys middleware.KeyFetcher) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyMiddleware(keys))
		r.Post("/", PostPickupsHandler)
	})

	return r
}
