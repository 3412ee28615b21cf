package pickups

import (
	"testing"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

// northboundGroup builds a match group on a south-to-north street at x=0.
// Points west of it are on the left curb, east on the right.
func northboundGroup(points ...*pickupPoint) map[int]*matchGroup {
	g := &matchGroup{
		centerline: &geo.Centerline{ID: 1, LengthInMeters: 100},
		line:       geo.LineString{{X: 0, Y: 0}, {X: 0, Y: 10}},
	}
	for _, pt := range points {
		g.add(pt, g.line.Project(pt.point))
	}
	return map[int]*matchGroup{1: g}
}

func pt(x, y float64, curb *string) *pickupPoint {
	return &pickupPoint{point: geo.Point{X: x, Y: y}, curb: curb}
}

func curbsOf(g *matchGroup) []string {
	out := make([]string, len(g.points))
	for i, p := range g.points {
		if p.curb == nil {
			out[i] = "<nil>"
		} else {
			out[i] = *p.curb
		}
	}
	return out
}

// TestInferCurbs_AllSetUntouched verifies user-set curbs are never modified
// when every point has one.
func TestInferCurbs_AllSetUntouched(t *testing.T) {
	groups := northboundGroup(
		pt(1, 1, strp(geo.CurbLeft)), // geometrically right, user says left
		pt(1, 5, strp(geo.CurbLeft)),
		pt(1, 9, strp(geo.CurbLeft)),
	)
	inferCurbs(groups)
	for i, c := range curbsOf(groups[1]) {
		if c != geo.CurbLeft {
			t.Errorf("point %d: user-set curb overridden to %s", i, c)
		}
	}
}

// TestInferCurbs_OneSidedRun verifies a tight one-sided scatter assigns the
// majority side everywhere.
func TestInferCurbs_OneSidedRun(t *testing.T) {
	groups := northboundGroup(
		pt(-1, 1, nil),
		pt(-1, 3, nil),
		pt(-1, 5, nil),
		pt(-1, 7, nil),
		pt(-1, 9, nil),
	)
	inferCurbs(groups)
	for i, c := range curbsOf(groups[1]) {
		if c != geo.CurbLeft {
			t.Errorf("point %d: expected left, got %s", i, c)
		}
	}
}

// TestInferCurbs_BothSides verifies a genuine split fills missing curbs from
// geometry and keeps the user-set ones.
func TestInferCurbs_BothSides(t *testing.T) {
	groups := northboundGroup(
		pt(-1, 1, nil),
		pt(-1, 5, strp(geo.CurbMiddle)), // user says middle, keep it
		pt(1, 3, nil),
		pt(1, 7, nil),
		pt(-1, 9, nil),
	)
	inferCurbs(groups)
	got := curbsOf(groups[1])
	want := []string{geo.CurbLeft, geo.CurbMiddle, geo.CurbRight, geo.CurbRight, geo.CurbLeft}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestInferCurbs_TwoPoints verifies the small-n rule: trust the first set
// curb, or fall back to geometry when none is set.
func TestInferCurbs_TwoPoints(t *testing.T) {
	groups := northboundGroup(
		pt(1, 2, nil),
		pt(1, 8, strp(geo.CurbLeft)),
	)
	inferCurbs(groups)
	for i, c := range curbsOf(groups[1]) {
		if c != geo.CurbLeft {
			t.Errorf("point %d: expected the set curb to win, got %s", i, c)
		}
	}

	groups = northboundGroup(pt(1, 5, nil))
	inferCurbs(groups)
	if c := curbsOf(groups[1])[0]; c != geo.CurbRight {
		t.Errorf("lone unset point must take its geometric side, got %s", c)
	}
}
