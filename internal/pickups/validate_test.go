package pickups

import (
	"strings"
	"testing"
	"time"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

func int64p(v int64) *int64    { return &v }
func strp(s string) *string    { return &s }
func testNow() time.Time       { return time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC) }

func validInbound() InboundPickup {
	return InboundPickup{
		FirebaseRunID: "doc-1",
		FirebaseID:    "run-1",
		Type:          "glass",
		Timestamp:     int64p(testNow().Add(-time.Hour).Unix()),
		Curb:          strp("left"),
		Geometry:      "POINT(-122.42 37.77)",
	}
}

func TestNormalize_Valid(t *testing.T) {
	pt, err := normalize(validInbound(), testNow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pt.docID != "doc-1" || pt.pickupTyp != "glass" {
		t.Errorf("unexpected working form: %+v", pt)
	}
	if pt.point.X != -122.42 || pt.point.Y != 37.77 {
		t.Errorf("unexpected point: %+v", pt.point)
	}
	if pt.curb == nil || *pt.curb != geo.CurbLeft {
		t.Errorf("expected curb left, got %v", pt.curb)
	}
}

func TestNormalize_NullCurbIsValid(t *testing.T) {
	in := validInbound()
	in.Curb = nil
	pt, err := normalize(in, testNow())
	if err != nil {
		t.Fatalf("null curb must validate: %v", err)
	}
	if pt.curb != nil {
		t.Errorf("expected nil curb, got %v", *pt.curb)
	}
}

func TestNormalize_MissingTimestamp(t *testing.T) {
	in := validInbound()
	in.Timestamp = nil
	if _, err := normalize(in, testNow()); err == nil {
		t.Fatal("expected error for missing timestamp")
	}
}

func TestNormalize_FutureTimestamp(t *testing.T) {
	in := validInbound()
	in.Timestamp = int64p(testNow().Add(time.Hour).Unix())
	_, err := normalize(in, testNow())
	if err == nil {
		t.Fatal("expected error for future timestamp")
	}
	if !strings.Contains(err.Error(), "future") {
		t.Errorf("error should explain the future timestamp, got %v", err)
	}
}

// TestNormalize_ClockSkewGrace allows timestamps slightly ahead of the server
// clock.
func TestNormalize_ClockSkewGrace(t *testing.T) {
	in := validInbound()
	in.Timestamp = int64p(testNow().Add(2 * time.Minute).Unix())
	if _, err := normalize(in, testNow()); err != nil {
		t.Fatalf("timestamps within skew grace must pass: %v", err)
	}
}

func TestNormalize_InvalidCurb(t *testing.T) {
	in := validInbound()
	in.Curb = strp("sidewalk")
	if _, err := normalize(in, testNow()); err == nil {
		t.Fatal("expected error for invalid curb value")
	}
}

func TestNormalize_UnknownType(t *testing.T) {
	in := validInbound()
	in.Type = "electronics"
	if _, err := normalize(in, testNow()); err == nil {
		t.Fatal("expected error for unknown type (coercion happens in the handler)")
	}
}

func TestNormalize_BadGeometry(t *testing.T) {
	for _, g := range []string{"", "LINESTRING(0 0, 1 1)", "POINT(1)", "not wkt"} {
		in := validInbound()
		in.Geometry = g
		if _, err := normalize(in, testNow()); err == nil {
			t.Errorf("expected error for geometry %q", g)
		}
	}
}

// TestNormalize_ZeroCoordinates verifies (0, 0) is a legal location.
func TestNormalize_ZeroCoordinates(t *testing.T) {
	in := validInbound()
	in.Geometry = "POINT(0 0)"
	pt, err := normalize(in, testNow())
	if err != nil {
		t.Fatalf("(0, 0) must validate: %v", err)
	}
	if pt.point.X != 0 || pt.point.Y != 0 {
		t.Errorf("unexpected point: %+v", pt.point)
	}
}
