package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a WGS84 coordinate, x = longitude, y = latitude.
type Point struct {
	X float64
	Y float64
}

// LineString is an ordered polyline of at least two points.
type LineString []Point

// ParsePointWKT parses "POINT(x y)", tolerating an EWKT "SRID=n;" prefix.
func ParsePointWKT(s string) (Point, error) {
	body, err := wktBody(s, "POINT")
	if err != nil {
		return Point{}, err
	}
	fields := strings.Fields(body)
	if len(fields) != 2 {
		return Point{}, fmt.Errorf("malformed point %q", s)
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Point{}, fmt.Errorf("malformed point %q: %w", s, err)
	}
	return Point{X: x, Y: y}, nil
}

// ParseLineStringWKT parses "LINESTRING(x y, x y, ...)".
func ParseLineStringWKT(s string) (LineString, error) {
	body, err := wktBody(s, "LINESTRING")
	if err != nil {
		return nil, err
	}
	parts := strings.Split(body, ",")
	if len(parts) < 2 {
		return nil, fmt.Errorf("linestring %q has fewer than two points", s)
	}
	line := make(LineString, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed linestring coordinate %q", part)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed linestring %q: %w", s, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("malformed linestring %q: %w", s, err)
		}
		line = append(line, Point{X: x, Y: y})
	}
	return line, nil
}

func wktBody(s, kind string) (string, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ';'); i >= 0 && strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		s = s[i+1:]
	}
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, kind) {
		return "", fmt.Errorf("expected %s geometry, got %q", kind, s)
	}
	open := strings.IndexByte(s, '(')
	close := strings.LastIndexByte(s, ')')
	if open < 0 || close < open {
		return "", fmt.Errorf("malformed %s %q", kind, s)
	}
	return s[open+1 : close], nil
}

// EWKT renders the point with the SRID prefix PostGIS expects on insert.
func (p Point) EWKT() string {
	return "SRID=4326;" + p.WKT()
}

func (p Point) WKT() string {
	return "POINT(" + formatCoord(p.X) + " " + formatCoord(p.Y) + ")"
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// EWKT renders the polyline with the SRID prefix PostGIS expects on insert.
func (l LineString) EWKT() string {
	return "SRID=4326;" + l.WKT()
}

func (l LineString) WKT() string {
	var sb strings.Builder
	sb.WriteString("LINESTRING(")
	for i, p := range l {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(formatCoord(p.X))
		sb.WriteString(" ")
		sb.WriteString(formatCoord(p.Y))
	}
	sb.WriteString(")")
	return sb.String()
}

func (p Point) distanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Length is the planar length of the polyline in coordinate units.
func (l LineString) Length() float64 {
	var total float64
	for i := 1; i < len(l); i++ {
		total += l[i-1].distanceTo(l[i])
	}
	return total
}

// Project returns the normalized linear reference (0..1) of the point of the
// polyline closest to p. Planar approximation, which is what the snapping
// heuristics were tuned against.
func (l LineString) Project(p Point) float64 {
	if len(l) < 2 {
		return 0
	}
	total := l.Length()
	if total == 0 {
		return 0
	}

	best := math.MaxFloat64
	var bestAlong float64
	var walked float64
	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		segLen := a.distanceTo(b)
		t := segmentParam(p, a, b)
		closest := Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
		d := p.distanceTo(closest)
		if d < best {
			best = d
			bestAlong = walked + t*segLen
		}
		walked += segLen
	}
	return bestAlong / total
}

// Interpolate returns the point at normalized linear reference t, clamped to
// the polyline's extent.
func (l LineString) Interpolate(t float64) Point {
	if len(l) == 0 {
		return Point{}
	}
	if len(l) == 1 || t <= 0 {
		return l[0]
	}
	if t >= 1 {
		return l[len(l)-1]
	}
	target := t * l.Length()
	var walked float64
	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		segLen := a.distanceTo(b)
		if walked+segLen >= target && segLen > 0 {
			u := (target - walked) / segLen
			return Point{X: a.X + u*(b.X-a.X), Y: a.Y + u*(b.Y-a.Y)}
		}
		walked += segLen
	}
	return l[len(l)-1]
}

// DistanceTo is the planar distance from p to the nearest point of the
// polyline.
func (l LineString) DistanceTo(p Point) float64 {
	best := math.MaxFloat64
	for i := 1; i < len(l); i++ {
		a, b := l[i-1], l[i]
		t := segmentParam(p, a, b)
		closest := Point{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)}
		if d := p.distanceTo(closest); d < best {
			best = d
		}
	}
	return best
}

// segmentParam is the clamped projection parameter of p onto segment ab.
func segmentParam(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	den := dx*dx + dy*dy
	if den == 0 {
		return 0
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / den
	return math.Max(0, math.Min(1, t))
}

// SideOfCenterline reports which curb of the centerline the point lies on.
//
// Centerline cardinality ignores winding direction: the start is the
// southernmost endpoint (ties broken westward), the end the northernmost
// (ties broken eastward). The side is the sign of the cross product against a
// short segment of the line around the point's linear reference; points on
// the line exactly count as left.
func SideOfCenterline(p Point, line LineString) string {
	start, stop := line[0], line[len(line)-1]
	if start.Y > stop.Y || (start.Y == stop.Y && start.X > stop.X) {
		reversed := make(LineString, len(line))
		for i, pt := range line {
			reversed[len(line)-1-i] = pt
		}
		line = reversed
	}

	lr := line.Project(p)
	a := line.Interpolate(lr - 0.01)
	b := line.Interpolate(lr + 0.01)
	d := (p.X-a.X)*(b.Y-a.Y) - (p.Y-a.Y)*(b.X-a.X)
	if d <= 0 {
		return CurbLeft
	}
	return CurbRight
}
