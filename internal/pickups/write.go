// Package pickups hosts the private API's write path: snapping a run's
// pickups onto the street grid and folding them into blockface statistics.
package pickups

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/RubbishGeo/geo-backend/internal/geo"
)

// ErrNoCoverage means no centerline was at least half covered by the run's
// pickups. Every run must cover at least one street; anything less is GPS
// noise we refuse to turn into statistics.
var ErrNoCoverage = errors.New("run does not cover at least one centerline")

// minCoverage is the linear-reference span a centerline assignment must reach
// to be kept. Below it, the points are rematched to their next-nearest
// centerline.
const minCoverage = 0.5

// maxMatchRank caps the rematch iterations. GPS noise bad enough to exhaust
// this means the run is unusable.
const maxMatchRank = 100

// matchGroup is one centerline's assigned points with their linear-reference
// span.
type matchGroup struct {
	centerline *geo.Centerline
	line       geo.LineString
	minLR      float64
	maxLR      float64
	points     []*pickupPoint
}

func (g *matchGroup) add(pt *pickupPoint, lr float64) {
	if len(g.points) == 0 {
		g.minLR, g.maxLR = lr, lr
	} else {
		if lr < g.minLR {
			g.minLR = lr
		}
		if lr > g.maxLR {
			g.maxLR = lr
		}
	}
	pt.lr = lr
	g.points = append(g.points, pt)
}

func (g *matchGroup) coverage() float64 { return g.maxLR - g.minLR }

// WriteRun validates, snaps, and persists one run's pickups, then updates the
// touched blockface statistics. Re-delivery of a run that is already in the
// database is a no-op, which is what makes the at-least-once trigger pipeline
// safe.
func WriteRun(ctx context.Context, d *gorm.DB, runID string, pickups []InboundPickup, enforceDistance bool) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	if len(pickups) == 0 {
		log.Printf("run %s: empty batch, nothing to write", runID)
		return nil
	}

	now := time.Now().UTC()
	points := make([]*pickupPoint, 0, len(pickups))
	for _, in := range pickups {
		pt, err := normalize(in, now)
		if err != nil {
			return err
		}
		points = append(points, pt)
	}

	var existing int64
	if err := d.WithContext(ctx).Model(&geo.Pickup{}).
		Where("firebase_run_id = ?", runID).Count(&existing).Error; err != nil {
		return fmt.Errorf("run %s: checking for prior write: %w", runID, err)
	}
	if existing > 0 {
		log.Printf("run %s: already written (%d pickups), skipping re-delivery", runID, existing)
		return nil
	}

	groups, err := matchCenterlines(ctx, d, runID, points, enforceDistance)
	if err != nil {
		return err
	}

	inferCurbs(groups)

	return d.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return persistRun(tx, runID, groups)
	})
}

// matchCenterlines assigns each point to a centerline with the iterative
// greedy algorithm: match everything to its nearest centerline, throw out any
// centerline whose assignment spans less than half its length, and rematch
// the rejected points against their next-nearest choice until the constraint
// holds everywhere.
//
// Pickup locations are noisy, so plain nearest-point matching would assign
// points to streets the run never touched. The coverage constraint is what
// keeps a stray point from inventing a blockface.
func matchCenterlines(ctx context.Context, d *gorm.DB, runID string, points []*pickupPoint, enforceDistance bool) (map[int]*matchGroup, error) {
	groups := map[int]*matchGroup{}
	work := points
	for rank := 0; len(work) > 0; rank++ {
		if rank > maxMatchRank {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNoCoverage)
		}

		for _, pt := range work {
			cl, line, err := geo.NearestCenterline(ctx, d, pt.point, rank, enforceDistance)
			if errors.Is(err, geo.ErrTooFar) || errors.Is(err, geo.ErrRankExceeded) {
				log.Printf("run %s: pickup %q discarded: %v", runID, pt.docID, err)
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("run %s: matching pickup %q: %w", runID, pt.docID, err)
			}
			g, ok := groups[cl.ID]
			if !ok {
				g = &matchGroup{centerline: cl, line: line}
				groups[cl.ID] = g
			}
			g.add(pt, line.Project(pt.point))
		}

		work = nil
		for id, g := range groups {
			if g.coverage() < minCoverage {
				work = append(work, g.points...)
				delete(groups, id)
			}
		}

		// If no centerline reaches coverage on this pass, none ever will:
		// rematching only moves points farther away.
		if len(groups) == 0 {
			return nil, fmt.Errorf("run %s: %w", runID, ErrNoCoverage)
		}
	}
	return groups, nil
}

// persistRun inserts the snapped pickups and folds each touched blockface
// into its running statistic inside the caller's transaction.
func persistRun(tx *gorm.DB, runID string, groups map[int]*matchGroup) error {
	type blockfaceKey struct {
		centerlineID int
		curb         string
	}
	type blockfaceAgg struct {
		length float64
		minLR  float64
		maxLR  float64
		count  int
	}
	blockfaces := map[blockfaceKey]*blockfaceAgg{}

	for _, g := range groups {
		for _, pt := range g.points {
			snapped := g.line.Interpolate(pt.lr)
			curb := geo.CurbLeft
			if pt.curb != nil {
				curb = *pt.curb
			}

			if err := tx.Exec(`
				INSERT INTO rubbish.pickups
					(firebase_id, firebase_run_id, centerline_id, type, timestamp,
					 geometry, snapped_geometry, linear_reference, curb)
				VALUES (?, ?, ?, ?, ?, ST_GeomFromEWKT(?), ST_GeomFromEWKT(?), ?, ?)
			`, pt.docID, runID, g.centerline.ID, pt.pickupTyp, pt.takenAt,
				pt.point.EWKT(), snapped.EWKT(), pt.lr, curb).Error; err != nil {
				return fmt.Errorf("run %s: inserting pickup %q: %w", runID, pt.docID, err)
			}

			key := blockfaceKey{centerlineID: g.centerline.ID, curb: curb}
			agg, ok := blockfaces[key]
			if !ok {
				agg = &blockfaceAgg{length: g.centerline.LengthInMeters, minLR: pt.lr, maxLR: pt.lr}
				blockfaces[key] = agg
			}
			if pt.lr < agg.minLR {
				agg.minLR = pt.lr
			}
			if pt.lr > agg.maxLR {
				agg.maxLR = pt.lr
			}
			agg.count++
		}
	}

	for key, agg := range blockfaces {
		coverage := agg.maxLR - agg.minLR
		if coverage <= 0 {
			// A single snapped point has no extent; density over it is
			// undefined, so the statistic stays untouched.
			log.Printf("run %s: blockface (%d, %s) has zero coverage, skipping statistic",
				runID, key.centerlineID, key.curb)
			continue
		}
		density := (float64(agg.count) / coverage) / agg.length

		if err := tx.Exec(`
			INSERT INTO rubbish.blockface_statistics
				(centerline_id, curb, rubbish_per_meter, num_runs)
			VALUES (?, ?, ?, 1)
			ON CONFLICT (centerline_id, curb) DO UPDATE SET
				rubbish_per_meter =
					(rubbish.blockface_statistics.rubbish_per_meter
						* rubbish.blockface_statistics.num_runs
						+ EXCLUDED.rubbish_per_meter)
					/ (rubbish.blockface_statistics.num_runs + 1),
				num_runs = rubbish.blockface_statistics.num_runs + 1
		`, key.centerlineID, key.curb, density).Error; err != nil {
			return fmt.Errorf("run %s: upserting blockface (%d, %s): %w",
				runID, key.centerlineID, key.curb, err)
		}
	}

	return nil
}
