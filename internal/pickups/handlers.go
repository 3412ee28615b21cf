package pickups

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/RubbishGeo/geo-backend/internal/db"
	"github.com/RubbishGeo/geo-backend/internal/geo"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// PostPickupsHandler services the listener's batch writes. The body is a
// mapping of run id to that run's pickups:
//
//	{
//	    "<run_id>": [
//	        {
//	            "firebase_run_id": <str; pickup document id>,
//	            "firebase_id": <str; run id>,
//	            "type": <str; from the rubbish type vocabulary>,
//	            "timestamp": <int; UTC UNIX timestamp>,
//	            "curb": <"left" | "right" | "middle" | null>,
//	            "geometry": <str; POINT in WKT format>
//	        }
//	    ]
//	}
//
// Unknown types are coerced to "other" rather than rejected, since the app
// ships new categories ahead of the analytics vocabulary.
func PostPickupsHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20) // 4 MiB
	defer r.Body.Close()

	var batch map[string][]InboundPickup
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json"})
		return
	}
	if len(batch) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty batch mapping"})
		return
	}

	enforceDistance := os.Getenv("RUBBISH_GEO_ENV") != "local"

	for runID, run := range batch {
		for i := range run {
			if !geo.RubbishTypes[run[i].Type] && run[i].Type != "" {
				log.Printf("run %s: pickup %q has custom type %q; replacing with \"other\"",
					runID, run[i].FirebaseRunID, run[i].Type)
				run[i].Type = "other"
			}
		}

		if err := WriteRun(r.Context(), db.DB, runID, run, enforceDistance); err != nil {
			log.Printf("run %s: write did not succeed: %v", runID, err)
			// Coverage and validation defects will never succeed on retry;
			// everything else is worth a redelivery.
			status := http.StatusInternalServerError
			if errors.Is(err, ErrNoCoverage) || errors.Is(err, errBadPayload) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]int{"status": 200})
}
