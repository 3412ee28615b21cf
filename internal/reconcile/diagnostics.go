package reconcile

import (
	"log"
	"strings"
)

// Diagnostics is the side channel for per-record defects and batch outcomes.
// Implementations must be safe for concurrent use across invocations.
type Diagnostics interface {
	// RefNotFound reports a pickup reference that did not resolve to a record.
	RefNotFound(runID, ref string)
	// RecordInvalid reports a resolved record dropped for missing required
	// fields. pickupID may be empty when the record lacks an id.
	RecordInvalid(runID, pickupID string, missing []string)
	// BatchSent reports a delivered batch with its drop counts.
	BatchSent(runID string, sent, notFound, invalid int)
}

// LogDiagnostics writes diagnostic events to the standard logger.
type LogDiagnostics struct{}

func (LogDiagnostics) RefNotFound(runID, ref string) {
	log.Printf("run %s: pickup ref %q not found, dropping", runID, ref)
}

func (LogDiagnostics) RecordInvalid(runID, pickupID string, missing []string) {
	log.Printf("run %s: pickup %q missing fields [%s], dropping",
		runID, pickupID, strings.Join(missing, ", "))
}

func (LogDiagnostics) BatchSent(runID string, sent, notFound, invalid int) {
	log.Printf("run %s: sent batch with %d pickups (%d not found, %d invalid)",
		runID, sent, notFound, invalid)
}
