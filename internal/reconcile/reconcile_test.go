package reconcile_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/RubbishGeo/geo-backend/internal/reconcile"
)

// mockStore implements reconcile.RecordStore from an in-memory map. References
// absent from records resolve as not found; references in failures return a
// transport error.
type mockStore struct {
	mu       sync.Mutex
	records  map[string]reconcile.Record
	failures map[string]error
	calls    []string
}

func (m *mockStore) GetPickup(ctx context.Context, id string) (reconcile.Record, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.mu.Unlock()

	if err, ok := m.failures[id]; ok {
		return nil, err
	}
	rec, ok := m.records[id]
	if !ok {
		return nil, reconcile.ErrNotFound
	}
	return rec, nil
}

// mockSink records every batch it receives.
type mockSink struct {
	batches []reconcile.Batch
	err     error
}

func (m *mockSink) Send(ctx context.Context, batch reconcile.Batch) error {
	if m.err != nil {
		return m.err
	}
	m.batches = append(m.batches, batch)
	return nil
}

// recordingDiag captures diagnostic events for assertions.
type recordingDiag struct {
	mu       sync.Mutex
	notFound []string
	invalid  map[string][]string // pickup id -> missing fields
}

func (d *recordingDiag) RefNotFound(runID, ref string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notFound = append(d.notFound, ref)
}

func (d *recordingDiag) RecordInvalid(runID, pickupID string, missing []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.invalid == nil {
		d.invalid = map[string][]string{}
	}
	d.invalid[pickupID] = missing
}

func (d *recordingDiag) BatchSent(runID string, sent, notFound, invalid int) {}

func validRecord(id string) reconcile.Record {
	return reconcile.Record{
		"pickup_id":   id,
		"category":    "plastic",
		"captured_at": int64(1000),
		"longitude":   1.0,
		"latitude":    2.0,
		"curb_side":   "left",
	}
}

func newReconciler(store *mockStore, sink *mockSink, diag *recordingDiag) *reconcile.Reconciler {
	return reconcile.New(store, sink, reconcile.WithDiagnostics(diag))
}

// TestReconcile_Scenario runs the canonical three-ref scenario: one valid
// record with curb, one missing reference, one valid record without curb.
func TestReconcile_Scenario(t *testing.T) {
	store := &mockStore{records: map[string]reconcile.Record{
		"a": {
			"pickup_id": "a", "category": "glass", "captured_at": int64(1000),
			"longitude": 1.5, "latitude": 2.5, "curb_side": "left",
		},
		"c": {
			"pickup_id": "c", "category": "plastic", "captured_at": int64(2000),
			"longitude": 3.0, "latitude": 4.0,
		},
	}}
	sink := &mockSink{}
	diag := &recordingDiag{}

	batch, err := newReconciler(store, sink, diag).Reconcile(context.Background(), "r1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"r1":[` +
		`{"firebase_run_id":"a","firebase_id":"r1","type":"glass","timestamp":1000,"curb":"left","geometry":"POINT(1.5 2.5)"},` +
		`{"firebase_run_id":"c","firebase_id":"r1","type":"plastic","timestamp":2000,"curb":null,"geometry":"POINT(3 4)"}]}`
	if string(got) != want {
		t.Errorf("batch JSON mismatch:\n got: %s\nwant: %s", got, want)
	}

	if len(sink.batches) != 1 {
		t.Fatalf("expected 1 batch sent, got %d", len(sink.batches))
	}
	if len(diag.notFound) != 1 || diag.notFound[0] != "b" {
		t.Errorf("expected not-found diagnostic for b, got %v", diag.notFound)
	}
}

// TestReconcile_EmptyRefs verifies the empty batch still reaches the sink and
// serializes as an empty array under the run id.
func TestReconcile_EmptyRefs(t *testing.T) {
	store := &mockStore{}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.batches) != 1 {
		t.Fatalf("empty batch must still be sent, got %d sends", len(sink.batches))
	}

	got, _ := json.Marshal(batch)
	if string(got) != `{"r1":[]}` {
		t.Errorf("expected {\"r1\":[]}, got %s", got)
	}
}

// TestReconcile_AllMissing behaves like the empty case: every ref drops, the
// empty batch is still delivered.
func TestReconcile_AllMissing(t *testing.T) {
	store := &mockStore{}
	sink := &mockSink{}
	diag := &recordingDiag{}

	batch, err := newReconciler(store, sink, diag).Reconcile(context.Background(), "r1", []string{"x", "y"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Pickups) != 0 {
		t.Errorf("expected no pickups, got %d", len(batch.Pickups))
	}
	if len(sink.batches) != 1 {
		t.Errorf("expected batch sent despite all refs missing")
	}
	if len(diag.notFound) != 2 {
		t.Errorf("expected 2 not-found diagnostics, got %d", len(diag.notFound))
	}
}

// TestReconcile_ZeroCoordinates verifies that longitude/latitude of 0 are
// treated as present values, not missing fields.
func TestReconcile_ZeroCoordinates(t *testing.T) {
	rec := validRecord("p")
	rec["longitude"] = 0.0
	rec["latitude"] = 0.0
	store := &mockStore{records: map[string]reconcile.Record{"p": rec}}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Pickups) != 1 {
		t.Fatalf("pickup at (0, 0) must not be dropped")
	}
	if batch.Pickups[0].Geometry != "POINT(0 0)" {
		t.Errorf("expected POINT(0 0), got %q", batch.Pickups[0].Geometry)
	}
}

// TestReconcile_MissingCategory drops the record and names the missing field.
func TestReconcile_MissingCategory(t *testing.T) {
	rec := validRecord("p")
	delete(rec, "category")
	store := &mockStore{records: map[string]reconcile.Record{"p": rec}}
	sink := &mockSink{}
	diag := &recordingDiag{}

	batch, err := newReconciler(store, sink, diag).Reconcile(context.Background(), "r1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Pickups) != 0 {
		t.Fatalf("record missing category must be dropped")
	}
	missing, ok := diag.invalid["p"]
	if !ok {
		t.Fatalf("expected invalid diagnostic for p, got %v", diag.invalid)
	}
	if len(missing) != 1 || missing[0] != "category" {
		t.Errorf("expected missing [category], got %v", missing)
	}
}

// TestReconcile_NilFieldCountsAsMissing verifies explicit nulls are treated
// the same as absent keys.
func TestReconcile_NilFieldCountsAsMissing(t *testing.T) {
	rec := validRecord("p")
	rec["latitude"] = nil
	store := &mockStore{records: map[string]reconcile.Record{"p": rec}}
	sink := &mockSink{}
	diag := &recordingDiag{}

	if _, err := newReconciler(store, sink, diag).Reconcile(context.Background(), "r1", []string{"p"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing := diag.invalid["p"]; len(missing) != 1 || missing[0] != "latitude" {
		t.Errorf("expected missing [latitude], got %v", missing)
	}
}

// TestReconcile_LegacyCurbKey verifies the legacy key name is consulted when
// curb_side is absent.
func TestReconcile_LegacyCurbKey(t *testing.T) {
	rec := validRecord("p")
	delete(rec, "curb_side")
	rec["curb"] = "right"
	store := &mockStore{records: map[string]reconcile.Record{"p": rec}}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Pickups[0].Curb == nil || *batch.Pickups[0].Curb != "right" {
		t.Errorf("expected curb right from legacy key, got %v", batch.Pickups[0].Curb)
	}
}

// TestReconcile_MissingCurbIsNull verifies a record without either curb key is
// valid and serializes curb as null.
func TestReconcile_MissingCurbIsNull(t *testing.T) {
	rec := validRecord("p")
	delete(rec, "curb_side")
	store := &mockStore{records: map[string]reconcile.Record{"p": rec}}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Pickups) != 1 {
		t.Fatalf("record missing only curb must be kept")
	}
	if batch.Pickups[0].Curb != nil {
		t.Errorf("expected nil curb, got %v", *batch.Pickups[0].Curb)
	}
	raw, _ := json.Marshal(batch.Pickups[0])
	if !bytes.Contains(raw, []byte(`"curb":null`)) {
		t.Errorf("expected curb:null in JSON, got %s", raw)
	}
}

// TestReconcile_DuplicateRefs verifies duplicates are preserved, not deduped.
func TestReconcile_DuplicateRefs(t *testing.T) {
	store := &mockStore{records: map[string]reconcile.Record{"p": validRecord("p")}}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"p", "p", "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Pickups) != 3 {
		t.Errorf("expected 3 pickups for duplicated ref, got %d", len(batch.Pickups))
	}
}

// TestReconcile_OrderPreserved verifies output order follows reference order
// even though lookups run concurrently.
func TestReconcile_OrderPreserved(t *testing.T) {
	records := map[string]reconcile.Record{}
	var refs []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("p%02d", i)
		records[id] = validRecord(id)
		refs = append(refs, id)
	}
	store := &mockStore{records: records}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", refs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Pickups) != len(refs) {
		t.Fatalf("expected %d pickups, got %d", len(refs), len(batch.Pickups))
	}
	for i, p := range batch.Pickups {
		if p.FirebaseRunID != refs[i] {
			t.Fatalf("order broken at %d: got %s, want %s", i, p.FirebaseRunID, refs[i])
		}
	}
}

// TestReconcile_Idempotent verifies two invocations over an unchanged store
// produce byte-identical batches.
func TestReconcile_Idempotent(t *testing.T) {
	store := &mockStore{records: map[string]reconcile.Record{
		"a": validRecord("a"),
		"c": validRecord("c"),
	}}
	sink := &mockSink{}
	r := newReconciler(store, sink, &recordingDiag{})

	first, err := r.Reconcile(context.Background(), "r1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("first invocation: %v", err)
	}
	second, err := r.Reconcile(context.Background(), "r1", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("second invocation: %v", err)
	}

	fj, _ := json.Marshal(first)
	sj, _ := json.Marshal(second)
	if !bytes.Equal(fj, sj) {
		t.Errorf("batches differ:\n%s\n%s", fj, sj)
	}
}

// TestReconcile_StoreFailureIsFatal verifies a transport-level lookup failure
// fails the invocation without partial output, while still letting the other
// lookups settle.
func TestReconcile_StoreFailureIsFatal(t *testing.T) {
	store := &mockStore{
		records:  map[string]reconcile.Record{"a": validRecord("a"), "c": validRecord("c")},
		failures: map[string]error{"b": errors.New("connection refused")},
	}
	sink := &mockSink{}

	_, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error when a lookup fails at transport level")
	}
	if len(sink.batches) != 0 {
		t.Errorf("no batch may be sent on store failure, got %d", len(sink.batches))
	}
	if len(store.calls) != 3 {
		t.Errorf("all lookups must settle even when one fails, got %d calls", len(store.calls))
	}
}

// TestReconcile_SinkFailurePropagates verifies a sink rejection surfaces as
// the invocation's error.
func TestReconcile_SinkFailurePropagates(t *testing.T) {
	store := &mockStore{records: map[string]reconcile.Record{"a": validRecord("a")}}
	sink := &mockSink{err: errors.New("503 from sink")}

	_, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"a"})
	if err == nil {
		t.Fatal("expected sink error to propagate")
	}
}

// TestReconcile_MissingRunID rejects a malformed invocation before any lookup.
func TestReconcile_MissingRunID(t *testing.T) {
	store := &mockStore{}
	sink := &mockSink{}

	if _, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "", []string{"a"}); err == nil {
		t.Fatal("expected error for empty run id")
	}
	if len(store.calls) != 0 {
		t.Errorf("no lookups expected for malformed invocation, got %d", len(store.calls))
	}
}

// TestReconcile_IntegerCoordinates verifies whole-number coordinates render
// without a trailing fraction, matching downstream WKT parsing expectations.
func TestReconcile_IntegerCoordinates(t *testing.T) {
	rec := validRecord("p")
	rec["longitude"] = int64(3)
	rec["latitude"] = 4.0
	store := &mockStore{records: map[string]reconcile.Record{"p": rec}}
	sink := &mockSink{}

	batch, err := newReconciler(store, sink, &recordingDiag{}).Reconcile(context.Background(), "r1", []string{"p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Pickups[0].Geometry != "POINT(3 4)" {
		t.Errorf("expected POINT(3 4), got %q", batch.Pickups[0].Geometry)
	}
}
