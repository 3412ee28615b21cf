package blockfaces

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/RubbishGeo/geo-backend/internal/db"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding blockface response: %v", err)
	}
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, errors.New("missing required query param: " + name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("query param " + name + " must be a number")
	}
	return v, nil
}

func queryBool(r *http.Request, name string) bool {
	raw := r.URL.Query().Get(name)
	return raw == "true" || raw == "1"
}

func queryOffset(r *http.Request) int {
	v, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// RadialHandler serves GET /blockfaces/radial?x=&y=&distance=.
func RadialHandler(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	y, err := queryFloat(r, "y")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	distance, err := queryFloat(r, "distance")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := Radial(r.Context(), db.DB, x, y, distance, queryBool(r, "include_na"), queryOffset(r))
	if err != nil {
		log.Printf("Error running radial query: %v", err)
		http.Error(w, "Failed to run radial query", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// SectorHandler serves GET /blockfaces/sector?name=.
func SectorHandler(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("sector_name")
	if name == "" {
		name = r.URL.Query().Get("name")
	}
	if name == "" {
		http.Error(w, "missing required query param: sector_name", http.StatusBadRequest)
		return
	}

	out, err := Sector(r.Context(), db.DB, name, queryBool(r, "include_na"), queryOffset(r))
	if err != nil {
		if errors.Is(err, ErrSectorNotFound) {
			http.Error(w, "No sector named "+name, http.StatusNotFound)
			return
		}
		log.Printf("Error running sector query: %v", err)
		http.Error(w, "Failed to run sector query", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CoordHandler serves GET /blockfaces/coord?x=&y=.
func CoordHandler(w http.ResponseWriter, r *http.Request) {
	x, err := queryFloat(r, "x")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	y, err := queryFloat(r, "y")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out, err := Coord(r.Context(), db.DB, x, y, queryBool(r, "include_na"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNoStatistics):
			http.Error(w, "No statistics near that coordinate", http.StatusNotFound)
		default:
			log.Printf("Error running coord query: %v", err)
			http.Error(w, "Failed to run coord query", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RunHandler serves GET /blockfaces/run?run_id=.
func RunHandler(w http.ResponseWriter, r *http.Request) {
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "missing required query param: run_id", http.StatusBadRequest)
		return
	}

	out, err := Run(r.Context(), db.DB, runID, queryBool(r, "include_na"))
	if err != nil {
		if errors.Is(err, ErrRunNotFound) {
			http.Error(w, "No pickups recorded for run "+runID, http.StatusNotFound)
			return
		}
		log.Printf("Error running run query: %v", err)
		http.Error(w, "Failed to run run query", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
