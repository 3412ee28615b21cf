package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"github.com/RubbishGeo/geo-backend/internal/auth"
	"github.com/RubbishGeo/geo-backend/internal/blockfaces"
	"github.com/RubbishGeo/geo-backend/internal/db"
	"github.com/RubbishGeo/geo-backend/internal/middleware"
	"github.com/RubbishGeo/geo-backend/internal/pickups"
)

// localVerifier accepts any bearer token so the read endpoints are usable
// against a local database without Firebase credentials.
type localVerifier struct{}

func (localVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	return "local-user", nil
}

func RootHandler(w http.ResponseWriter, r *http.Request) {
	response := "Server is up!"
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, response)
}

func main() {
	_ = godotenv.Load(".env.local")
	db.Connect()

	port := os.Getenv("PORT")
	if port == "" {
		port = "5050"
	}

	pickups.Init()

	keys := auth.NewKeyStore(db.DB)
	var verifier middleware.TokenVerifier
	if os.Getenv("RUBBISH_GEO_ENV") == "local" {
		// Local databases have no Firebase project behind them.
		verifier = localVerifier{}
	} else {
		v, err := auth.NewFirebaseVerifier(context.Background())
		if err != nil {
			log.Fatal("Failed to initialize Firebase token verifier: ", err)
		}
		verifier = v
	}

	r := chi.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RateLimitMiddleware(rate.Limit(10), 30))
	r.Get("/", RootHandler)

	r.Mount("/pickups", pickups.SetupRoutes(keys))
	r.Mount("/blockfaces", blockfaces.SetupRoutes(verifier))

	fmt.Println("Server listening on port :" + port + "...")

	http.ListenAndServe("0.0.0.0:"+port, r)
}
