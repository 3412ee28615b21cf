// Package zones manages the street grid: importing centerlines for a zone,
// versioning grid generations, and maintaining the named query sectors.
package zones

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   featureGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type featureGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// centerlineFeature is one street segment parsed out of a grid export.
type centerlineFeature struct {
	Osmid          int64
	Name           string
	Line           geo.LineString
	LengthInMeters float64
}

const earthRadiusMeters = 6371000

// haversineMeters is the ground distance between two lon/lat points. Grid
// exports do not always carry a length property, so we compute our own.
func haversineMeters(a, b geo.Point) float64 {
	lat1 := a.Y * math.Pi / 180
	lat2 := b.Y * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.X - a.X) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func lineLengthMeters(line geo.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += haversineMeters(line[i-1], line[i])
	}
	return total
}

func parseLineCoords(raw json.RawMessage) (geo.LineString, error) {
	var coords [][]float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, fmt.Errorf("zones: parsing linestring coordinates: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("zones: linestring needs at least 2 coordinates, got %d", len(coords))
	}
	line := make(geo.LineString, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("zones: coordinate %d has %d components", i, len(c))
		}
		line[i] = geo.Point{X: c[0], Y: c[1]}
	}
	return line, nil
}

// parseCenterlines reads a GeoJSON FeatureCollection of LineString features
// with osmid and name properties. Street names are NFC-normalized so repeated
// imports of the same grid compare equal regardless of the exporter's
// Unicode form.
func parseCenterlines(raw []byte) ([]centerlineFeature, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("zones: parsing feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("zones: expected a FeatureCollection, got %q", fc.Type)
	}

	out := make([]centerlineFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry.Type != "LineString" {
			return nil, fmt.Errorf("zones: feature %d: expected LineString geometry, got %q", i, f.Geometry.Type)
		}
		line, err := parseLineCoords(f.Geometry.Coordinates)
		if err != nil {
			return nil, fmt.Errorf("zones: feature %d: %w", i, err)
		}

		osmid, ok := featureInt64(f.Properties, "osmid")
		if !ok {
			return nil, fmt.Errorf("zones: feature %d: missing osmid property", i)
		}
		name, _ := f.Properties["name"].(string)
		name = norm.NFC.String(strings.TrimSpace(name))
		if name == "" {
			name = "unknown"
		}

		length, ok := featureFloat(f.Properties, "length_in_meters")
		if !ok || length <= 0 {
			length = lineLengthMeters(line)
		}

		out = append(out, centerlineFeature{
			Osmid:          osmid,
			Name:           name,
			Line:           line,
			LengthInMeters: length,
		})
	}
	return out, nil
}

// parseSectorPolygon reads a single Polygon out of a GeoJSON file, accepting
// either a bare geometry, a Feature, or a one-feature FeatureCollection.
func parseSectorPolygon(raw []byte) (string, error) {
	var g featureGeometry
	if err := json.Unmarshal(raw, &g); err == nil && g.Type == "Polygon" {
		return polygonEWKT(g.Coordinates)
	}

	var f feature
	if err := json.Unmarshal(raw, &f); err == nil && f.Geometry.Type == "Polygon" {
		return polygonEWKT(f.Geometry.Coordinates)
	}

	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err == nil && len(fc.Features) == 1 &&
		fc.Features[0].Geometry.Type == "Polygon" {
		return polygonEWKT(fc.Features[0].Geometry.Coordinates)
	}

	return "", fmt.Errorf("zones: sector file must contain exactly one Polygon")
}

func polygonEWKT(raw json.RawMessage) (string, error) {
	var rings [][][]float64
	if err := json.Unmarshal(raw, &rings); err != nil {
		return "", fmt.Errorf("zones: parsing polygon coordinates: %w", err)
	}
	if len(rings) == 0 || len(rings[0]) < 4 {
		return "", fmt.Errorf("zones: polygon needs a closed outer ring")
	}

	var sb strings.Builder
	sb.WriteString("SRID=4326;POLYGON(")
	for ri, ring := range rings {
		if ri > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(")
		for ci, c := range ring {
			if len(c) < 2 {
				return "", fmt.Errorf("zones: ring %d coordinate %d has %d components", ri, ci, len(c))
			}
			if ci > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, "%v %v", c[0], c[1])
		}
		sb.WriteString(")")
	}
	sb.WriteString(")")
	return sb.String(), nil
}

func featureInt64(props map[string]any, key string) (int64, bool) {
	switch v := props[key].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

func featureFloat(props map[string]any, key string) (float64, bool) {
	switch v := props[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}
