package pickups

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

var validate = validator.New()

// errBadPayload marks defects in the posted batch itself, as opposed to
// failures talking to the database. Handlers map it to a 400.
var errBadPayload = errors.New("invalid pickup payload")

// InboundPickup is one element of the batch body posted by the listener.
//
// Field naming follows the listener's convention: firebase_run_id carries the
// pickup document id and firebase_id carries the run id. The batch key is the
// authoritative run id; per-pickup firebase_id is accepted but not trusted.
// Timestamp is a pointer so that an absent field is distinguishable from the
// epoch.
type InboundPickup struct {
	FirebaseRunID string  `json:"firebase_run_id" validate:"required"`
	FirebaseID    string  `json:"firebase_id" validate:"required"`
	Type          string  `json:"type" validate:"required"`
	Timestamp     *int64  `json:"timestamp" validate:"required"`
	Curb          *string `json:"curb"`
	Geometry      string  `json:"geometry" validate:"required"`
}

// clockSkewGrace pads the future-timestamp check in case of device clock skew.
const clockSkewGrace = 5 * time.Minute

// pickupPoint is a validated pickup in its working form.
type pickupPoint struct {
	docID     string
	pickupTyp string
	takenAt   time.Time
	point     geo.Point
	curb      *string // nil until set by the user or inferred
	lr        float64 // normalized linear reference, set during matching
}

// normalize validates one inbound pickup and converts it to working form.
func normalize(in InboundPickup, now time.Time) (*pickupPoint, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: pickup %q: %v", errBadPayload, in.FirebaseRunID, err)
	}

	point, err := geo.ParsePointWKT(in.Geometry)
	if err != nil {
		return nil, fmt.Errorf("%w: pickup %q: %v", errBadPayload, in.FirebaseRunID, err)
	}

	takenAt := time.Unix(*in.Timestamp, 0).UTC()
	if takenAt.After(now.Add(clockSkewGrace)) {
		return nil, fmt.Errorf(
			"%w: pickup %q: timestamp %d is in the future; is it really a UTC UNIX timestamp?",
			errBadPayload, in.FirebaseRunID, *in.Timestamp)
	}

	if in.Curb != nil && !geo.ValidCurb(*in.Curb) {
		return nil, fmt.Errorf("%w: pickup %q: invalid curb %q (must be left, right, middle, or null)",
			errBadPayload, in.FirebaseRunID, *in.Curb)
	}

	if !geo.RubbishTypes[in.Type] {
		return nil, fmt.Errorf("%w: pickup %q: unknown type %q", errBadPayload, in.FirebaseRunID, in.Type)
	}

	return &pickupPoint{
		docID:     in.FirebaseRunID,
		pickupTyp: in.Type,
		takenAt:   takenAt,
		point:     point,
		curb:      in.Curb,
	}, nil
}
