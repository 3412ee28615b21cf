package geo_test

import (
	"math"
	"testing"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestParsePointWKT(t *testing.T) {
	cases := []struct {
		in      string
		x, y    float64
		wantErr bool
	}{
		{in: "POINT(1.5 2.5)", x: 1.5, y: 2.5},
		{in: "POINT(3 4)", x: 3, y: 4},
		{in: "SRID=4326;POINT(-122.42 37.77)", x: -122.42, y: 37.77},
		{in: "POINT(0 0)", x: 0, y: 0},
		{in: "LINESTRING(0 0, 1 1)", wantErr: true},
		{in: "POINT(1)", wantErr: true},
		{in: "POINT(a b)", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, c := range cases {
		p, err := geo.ParsePointWKT(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParsePointWKT(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePointWKT(%q): %v", c.in, err)
			continue
		}
		if p.X != c.x || p.Y != c.y {
			t.Errorf("ParsePointWKT(%q) = (%v, %v), want (%v, %v)", c.in, p.X, p.Y, c.x, c.y)
		}
	}
}

func TestParseLineStringWKT(t *testing.T) {
	line, err := geo.ParseLineStringWKT("LINESTRING(0 0, 1 0, 1 1)")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(line) != 3 {
		t.Fatalf("expected 3 points, got %d", len(line))
	}
	if line[2] != (geo.Point{X: 1, Y: 1}) {
		t.Errorf("unexpected last point: %+v", line[2])
	}

	if _, err := geo.ParseLineStringWKT("LINESTRING(0 0)"); err == nil {
		t.Error("expected error for single-point linestring")
	}
}

func TestPointWKTRoundTrip(t *testing.T) {
	p := geo.Point{X: 3, Y: 4}
	if p.WKT() != "POINT(3 4)" {
		t.Errorf("whole numbers must render without fraction, got %q", p.WKT())
	}
	if p.EWKT() != "SRID=4326;POINT(3 4)" {
		t.Errorf("unexpected EWKT %q", p.EWKT())
	}
}

func TestLineStringWKTRoundTrip(t *testing.T) {
	line := geo.LineString{{X: -122.42, Y: 37.77}, {X: -122.41, Y: 37.77}, {X: -122.41, Y: 37.78}}
	want := "LINESTRING(-122.42 37.77,-122.41 37.77,-122.41 37.78)"
	if line.WKT() != want {
		t.Errorf("WKT() = %q, want %q", line.WKT(), want)
	}
	if line.EWKT() != "SRID=4326;"+want {
		t.Errorf("unexpected EWKT %q", line.EWKT())
	}

	parsed, err := geo.ParseLineStringWKT(line.EWKT())
	if err != nil {
		t.Fatalf("reparsing rendered EWKT: %v", err)
	}
	if len(parsed) != len(line) {
		t.Fatalf("round trip changed point count: %d != %d", len(parsed), len(line))
	}
	for i := range line {
		if !almostEqual(parsed[i].X, line[i].X) || !almostEqual(parsed[i].Y, line[i].Y) {
			t.Errorf("point %d changed in round trip: %+v != %+v", i, parsed[i], line[i])
		}
	}
}

func TestProjectInterpolate(t *testing.T) {
	line := geo.LineString{{X: 0, Y: 0}, {X: 10, Y: 0}}

	if lr := line.Project(geo.Point{X: 5, Y: 3}); !almostEqual(lr, 0.5) {
		t.Errorf("expected lr 0.5, got %v", lr)
	}
	if lr := line.Project(geo.Point{X: -5, Y: 0}); !almostEqual(lr, 0) {
		t.Errorf("projection must clamp to start, got %v", lr)
	}
	if lr := line.Project(geo.Point{X: 15, Y: 1}); !almostEqual(lr, 1) {
		t.Errorf("projection must clamp to end, got %v", lr)
	}

	p := line.Interpolate(0.25)
	if !almostEqual(p.X, 2.5) || !almostEqual(p.Y, 0) {
		t.Errorf("expected (2.5, 0), got %+v", p)
	}
}

func TestProjectMultiSegment(t *testing.T) {
	// L-shaped street: two equal-length segments.
	line := geo.LineString{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}

	if lr := line.Project(geo.Point{X: 10.5, Y: 5}); !almostEqual(lr, 0.75) {
		t.Errorf("expected lr 0.75 on second segment, got %v", lr)
	}

	p := line.Interpolate(0.75)
	if !almostEqual(p.X, 10) || !almostEqual(p.Y, 5) {
		t.Errorf("expected (10, 5), got %+v", p)
	}
}

func TestDistanceTo(t *testing.T) {
	line := geo.LineString{{X: 0, Y: 0}, {X: 10, Y: 0}}
	if d := line.DistanceTo(geo.Point{X: 5, Y: 3}); !almostEqual(d, 3) {
		t.Errorf("expected distance 3, got %v", d)
	}
	if d := line.DistanceTo(geo.Point{X: 13, Y: 4}); !almostEqual(d, 5) {
		t.Errorf("expected distance 5 past the endpoint, got %v", d)
	}
}

// TestSideOfCenterline pins the orientation rule: the line is walked south to
// north regardless of winding, and west of a northbound street is left.
func TestSideOfCenterline(t *testing.T) {
	northbound := geo.LineString{{X: 0, Y: 0}, {X: 0, Y: 10}}
	if side := geo.SideOfCenterline(geo.Point{X: -1, Y: 5}, northbound); side != geo.CurbLeft {
		t.Errorf("west of a northbound street must be left, got %s", side)
	}
	if side := geo.SideOfCenterline(geo.Point{X: 1, Y: 5}, northbound); side != geo.CurbRight {
		t.Errorf("east of a northbound street must be right, got %s", side)
	}

	// Same street with reversed winding must give the same answer.
	southbound := geo.LineString{{X: 0, Y: 10}, {X: 0, Y: 0}}
	if side := geo.SideOfCenterline(geo.Point{X: -1, Y: 5}, southbound); side != geo.CurbLeft {
		t.Errorf("winding direction must not affect the side, got %s", side)
	}

	// A point exactly on the line counts as left.
	if side := geo.SideOfCenterline(geo.Point{X: 0, Y: 5}, northbound); side != geo.CurbLeft {
		t.Errorf("on-line point must be left, got %s", side)
	}
}
