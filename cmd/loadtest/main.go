// loadtest fires synthetic pickup batches at a private API deployment. It
// scatters pickups around a center coordinate and posts them the way the
// listener would, which exercises the full snap/infer/persist path and is
// useful both for smoke-testing a deployment and for sizing the database.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var rubbishTypes = []string{"tobacco", "paper", "plastic", "other", "food", "glass"}

func main() {
	_ = godotenv.Load(".env.local")

	url := flag.String("url", "http://localhost:5050/pickups/", "Private API pickups endpoint")
	runs := flag.Int("runs", 1, "Number of synthetic runs to post")
	pickups := flag.Int("pickups", 25, "Pickups per run")
	centerX := flag.Float64("x", -122.42, "Center longitude")
	centerY := flag.Float64("y", 37.77, "Center latitude")
	spread := flag.Float64("spread", 0.002, "Max degree offset from the center")
	seed := flag.Int64("seed", 0, "RNG seed (0 seeds from the clock)")
	flag.Parse()

	apiKey := os.Getenv("PRIVATE_API_KEY")
	if apiKey == "" {
		log.Fatal("PRIVATE_API_KEY must be set")
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	client := &http.Client{Timeout: 60 * time.Second}
	for i := 0; i < *runs; i++ {
		runID := uuid.NewString()
		batch := map[string][]map[string]any{runID: nil}
		now := time.Now().Unix()
		for j := 0; j < *pickups; j++ {
			x := *centerX + (rng.Float64()*2-1)*(*spread)
			y := *centerY + (rng.Float64()*2-1)*(*spread)
			// The listener's field convention: firebase_run_id carries the
			// pickup document id, firebase_id the run id.
			batch[runID] = append(batch[runID], map[string]any{
				"firebase_run_id": uuid.NewString(),
				"firebase_id":     runID,
				"type":            rubbishTypes[rng.Intn(len(rubbishTypes))],
				"timestamp":       now - int64(*pickups-j),
				"curb":            nil,
				"geometry":        fmt.Sprintf("POINT(%v %v)", x, y),
			})
		}

		body, err := json.Marshal(batch)
		if err != nil {
			log.Fatal(err)
		}

		req, err := http.NewRequest(http.MethodPost, *url, bytes.NewReader(body))
		if err != nil {
			log.Fatal(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-Key", apiKey)

		start := time.Now()
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("run %d: %v", i, err)
		}
		resp.Body.Close()
		fmt.Printf("run %s: %s in %s\n", runID, resp.Status, time.Since(start).Round(time.Millisecond))
	}
}
