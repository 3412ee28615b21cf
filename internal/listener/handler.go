// Package listener exposes the run-created trigger endpoint. The event source
// (Eventarc on the mobile app's Firestore) delivers at least once, so the
// handler's contract is: 4xx for payloads that will never succeed, 5xx for
// collaborator failures that a redelivery may fix.
package listener

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/RubbishGeo/geo-backend/internal/reconcile"
)

// Reconciler is the slice of reconcile.Reconciler the handler needs.
type Reconciler interface {
	Reconcile(ctx context.Context, runID string, pickupRefs []string) (reconcile.Batch, error)
}

// RunCreatedEvent is the trigger payload for a completed run. PickupIDs is a
// pointer so that an absent field can be told apart from an empty run: the
// former is a malformed payload, the latter is legitimate.
type RunCreatedEvent struct {
	RunID     string    `json:"run_id"`
	PickupIDs *[]string `json:"pickup_ids"`
}

type Handler struct {
	reconciler Reconciler
	secret     string
}

func NewHandler(reconciler Reconciler, secret string) *Handler {
	return &Handler{reconciler: reconciler, secret: secret}
}

func (h *Handler) RunCreated(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "payload too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}
	defer r.Body.Close()

	eventID := r.Header.Get("X-Rubbish-Event-Id")
	if eventID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	if h.secret == "" {
		http.Error(w, "server misconfigured", http.StatusInternalServerError)
		return
	}
	if !verifySignature(r.Header.Get("X-Rubbish-Signature"), eventID, raw, h.secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	var event RunCreatedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if event.RunID == "" {
		http.Error(w, "missing run_id", http.StatusBadRequest)
		return
	}
	if event.PickupIDs == nil {
		http.Error(w, "missing pickup_ids", http.StatusBadRequest)
		return
	}

	log.Printf("event %s: run %s created with %d pickup refs", eventID, event.RunID, len(*event.PickupIDs))

	batch, err := h.reconciler.Reconcile(r.Context(), event.RunID, *event.PickupIDs)
	if err != nil {
		// 502 so the event source redelivers; the private API upserts
		// idempotently by run id.
		log.Printf("event %s: run %s failed: %v", eventID, event.RunID, err)
		http.Error(w, "reconcile failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{"ok": true, "pickups": len(batch.Pickups)})
}

func verifySignature(sig, eventID string, raw []byte, secret string) bool {
	if !strings.HasPrefix(sig, "sha256=") {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(raw)
	mac.Write([]byte(eventID))
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(expected))
}

// SecretFromEnv reads the shared webhook secret the event source signs with.
func SecretFromEnv() string {
	return os.Getenv("LISTENER_WEBHOOK_SECRET")
}
