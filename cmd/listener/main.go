// The listener receives run-created webhook events from the Firestore
// trigger, reconciles the run's pickups out of Firestore, and forwards the
// batch to the private API.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/RubbishGeo/geo-backend/internal/listener"
	"github.com/RubbishGeo/geo-backend/internal/reconcile"
	"github.com/RubbishGeo/geo-backend/internal/records"
	"github.com/RubbishGeo/geo-backend/internal/sink"
)

func mustEnv(name string) string {
	v := os.Getenv(name)
	if v == "" {
		log.Fatalf("%s must be set", name)
	}
	return v
}

func main() {
	_ = godotenv.Load(".env.local")

	project := mustEnv("GOOGLE_CLOUD_PROJECT")
	apiURL := mustEnv("PRIVATE_API_URL")
	apiKey := mustEnv("PRIVATE_API_KEY")
	secret := listener.SecretFromEnv()
	if secret == "" {
		log.Fatal("LISTENER_WEBHOOK_SECRET must be set")
	}

	collection := os.Getenv("FIRESTORE_COLLECTION")
	if collection == "" {
		collection = records.DefaultCollection
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, project)
	if err != nil {
		log.Fatal("Failed to connect to Firestore: ", err)
	}
	defer client.Close()

	store := records.NewStore(client, collection)
	batches := sink.NewHTTPSink(apiURL, apiKey)
	reconciler := reconcile.New(store, batches)

	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintln(w, "Listener is up!")
	})
	r.Mount("/events", listener.SetupRoutes(listener.NewHandler(reconciler, secret)))

	fmt.Println("Listener listening on port :" + port + "...")

	if err := http.ListenAndServe("0.0.0.0:"+port, r); err != nil {
		log.Fatal(err)
	}
}
