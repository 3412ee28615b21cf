package reconcile

import (
	"encoding/json"
	"strconv"
)

// Pickup is the transport-ready form of a resolved pickup record, field names
// matching what the analytics API expects.
type Pickup struct {
	FirebaseRunID string  `json:"firebase_run_id"`
	FirebaseID    string  `json:"firebase_id"`
	Type          string  `json:"type"`
	Timestamp     int64   `json:"timestamp"`
	Curb          *string `json:"curb"`
	Geometry      string  `json:"geometry"`
}

// Batch is the single outbound write for one run.
type Batch struct {
	RunID   string
	Pickups []Pickup
}

// MarshalJSON serializes the batch as a single-key mapping keyed by the actual
// run id value. An empty run serializes as an empty array, not null, because a
// run with zero valid pickups is still delivered.
func (b Batch) MarshalJSON() ([]byte, error) {
	pickups := b.Pickups
	if pickups == nil {
		pickups = []Pickup{}
	}
	return json.Marshal(map[string][]Pickup{b.RunID: pickups})
}

// pointWKT renders a WKT point with longitude first. Downstream geometry
// parsing depends on this axis order.
func pointWKT(lon, lat float64) string {
	return "POINT(" +
		strconv.FormatFloat(lon, 'f', -1, 64) + " " +
		strconv.FormatFloat(lat, 'f', -1, 64) + ")"
}

// getString reports a field as present only if the key exists, the value is
// non-nil, and it is a string.
func getString(rec Record, key string) (string, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// getFloat accepts the numeric representations a JSON or Firestore decode can
// produce for a coordinate.
func getFloat(rec Record, key string) (float64, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func getInt(rec Record, key string) (int64, bool) {
	f, ok := getFloat(rec, key)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
