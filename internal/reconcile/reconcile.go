// Package reconcile turns a completed run's list of pickup document references
// into a single validated batch for the analytics database. Referenced documents
// live in a schema-on-write store, so any of them may be missing or malformed;
// bad records are dropped one at a time and never block the rest of the batch.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrNotFound is returned by a RecordStore when a pickup reference does not
// resolve to a document. It is distinct from a transport failure: not-found is
// a per-record condition, transport failure fails the whole invocation.
var ErrNotFound = errors.New("pickup record not found")

// Record is a resolved pickup document as a field mapping. A field counts as
// present only when its key exists and its value is non-nil; zero values
// (including coordinate 0) are present.
type Record map[string]any

// RecordStore resolves pickup references by point lookup.
type RecordStore interface {
	GetPickup(ctx context.Context, id string) (Record, error)
}

// BatchSink accepts one outbound batch per run. The sink is expected to apply
// batches idempotently keyed by run id; the reconciler never retries.
type BatchSink interface {
	Send(ctx context.Context, batch Batch) error
}

// Field names expected on a pickup record.
const (
	fieldPickupID   = "pickup_id"
	fieldCategory   = "category"
	fieldCapturedAt = "captured_at"
	fieldLongitude  = "longitude"
	fieldLatitude   = "latitude"
	fieldCurbSide   = "curb_side"
	// Records written before curb tracking existed carry the value under
	// this key instead of curb_side.
	fieldCurbLegacy = "curb"
)

// requiredFields must all be present for a record to make it into the batch.
// Curb is deliberately absent: it defaults to null, never fails validation.
var requiredFields = []string{
	fieldPickupID, fieldCategory, fieldCapturedAt, fieldLongitude, fieldLatitude,
}

// defaultLookupLimit bounds the concurrent fan-out against the record store.
// Runs are small (tens of pickups), so this is plenty.
const defaultLookupLimit = 8

// Reconciler resolves, validates, and reshapes one run per invocation. It holds
// no mutable state, so a single instance is safe for concurrent invocations.
type Reconciler struct {
	store RecordStore
	sink  BatchSink
	diag  Diagnostics
	limit int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDiagnostics replaces the default log-backed diagnostics channel.
func WithDiagnostics(d Diagnostics) Option {
	return func(r *Reconciler) { r.diag = d }
}

// WithLookupLimit overrides the concurrent lookup bound.
func WithLookupLimit(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.limit = n
		}
	}
}

func New(store RecordStore, sink BatchSink, opts ...Option) *Reconciler {
	r := &Reconciler{
		store: store,
		sink:  sink,
		diag:  LogDiagnostics{},
		limit: defaultLookupLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type lookup struct {
	rec Record
	err error
}

// Reconcile resolves every reference in pickupRefs, drops missing and invalid
// records, and hands the surviving pickups to the sink as a single batch keyed
// by runID. An empty batch is still sent: a run with zero valid pickups is a
// legitimate outcome, not an error.
//
// Lookups run concurrently and all of them settle before anything else
// happens; one failing reference never cancels the others. A transport-level
// store failure or a sink rejection fails the invocation as a whole, and the
// caller is expected to rely on trigger-source redelivery.
func (r *Reconciler) Reconcile(ctx context.Context, runID string, pickupRefs []string) (Batch, error) {
	if runID == "" {
		return Batch{}, errors.New("run id is required")
	}

	results := make([]lookup, len(pickupRefs))
	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, ref := range pickupRefs {
		g.Go(func() error {
			rec, err := r.store.GetPickup(ctx, ref)
			results[i] = lookup{rec: rec, err: err}
			return nil
		})
	}
	// Lookup funcs never return errors; the group is used as a bounded join.
	_ = g.Wait()

	// Surface store failures only after every lookup has settled, and do not
	// attempt partial output: redelivery will retry the whole run.
	for i, ref := range pickupRefs {
		if err := results[i].err; err != nil && !errors.Is(err, ErrNotFound) {
			return Batch{}, fmt.Errorf("run %s: resolving pickup %q: %w", runID, ref, err)
		}
	}

	pickups := make([]Pickup, 0, len(pickupRefs))
	var notFound, invalid int
	for i, ref := range pickupRefs {
		res := results[i]
		if errors.Is(res.err, ErrNotFound) {
			notFound++
			r.diag.RefNotFound(runID, ref)
			continue
		}
		pickup, missing := reshape(runID, res.rec)
		if len(missing) > 0 {
			invalid++
			r.diag.RecordInvalid(runID, stringField(res.rec, fieldPickupID), missing)
			continue
		}
		pickups = append(pickups, pickup)
	}

	batch := Batch{RunID: runID, Pickups: pickups}
	if err := r.sink.Send(ctx, batch); err != nil {
		return Batch{}, fmt.Errorf("run %s: sending batch: %w", runID, err)
	}
	r.diag.BatchSent(runID, len(pickups), notFound, invalid)
	return batch, nil
}

// reshape maps a resolved record onto the outbound shape. It returns the names
// of any missing required fields; a non-empty missing list means the record is
// dropped. Presence is a nil check, never truthiness: a 0 coordinate or a 0
// timestamp is a legal value.
func reshape(runID string, rec Record) (Pickup, []string) {
	var missing []string

	pickupID, ok := getString(rec, fieldPickupID)
	if !ok {
		missing = append(missing, fieldPickupID)
	}
	category, ok := getString(rec, fieldCategory)
	if !ok {
		missing = append(missing, fieldCategory)
	}
	capturedAt, ok := getInt(rec, fieldCapturedAt)
	if !ok {
		missing = append(missing, fieldCapturedAt)
	}
	lon, ok := getFloat(rec, fieldLongitude)
	if !ok {
		missing = append(missing, fieldLongitude)
	}
	lat, ok := getFloat(rec, fieldLatitude)
	if !ok {
		missing = append(missing, fieldLatitude)
	}
	if len(missing) > 0 {
		return Pickup{}, missing
	}

	var curb *string
	if side, ok := getString(rec, fieldCurbSide); ok {
		curb = &side
	} else if side, ok := getString(rec, fieldCurbLegacy); ok {
		curb = &side
	}

	return Pickup{
		FirebaseRunID: pickupID,
		FirebaseID:    runID,
		Type:          category,
		Timestamp:     capturedAt,
		Curb:          curb,
		Geometry:      pointWKT(lon, lat),
	}, nil
}

func stringField(rec Record, key string) string {
	s, _ := getString(rec, key)
	return s
}
