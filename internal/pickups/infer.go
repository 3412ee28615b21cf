package pickups

import (
	"github.com/RubbishGeo/geo-backend/internal/geo"
)

// bimodalThreshold is the minority-side fraction above which a centerline's
// points are treated as spanning both curbs. Below it, the spread is assumed
// to be GPS noise around a single curb.
const bimodalThreshold = 0.2

// inferCurbs fills in missing curb values, one centerline at a time.
//
// If every point on a centerline has a curb set, the user followed procedure
// and nothing is touched. Otherwise the geometric side of each point decides:
// with points overwhelmingly on one side, the street was walked once and the
// majority side is assigned to every point; with a real split, points were
// collected on both curbs, so user-set values are kept and only missing ones
// take their geometric side. GPS accuracy (~8 m at 2 sigma) makes this
// hand-wavy on narrow streets, which is why the app nags users to set the
// curb themselves.
func inferCurbs(groups map[int]*matchGroup) {
	for _, g := range groups {
		needsInference := false
		for _, pt := range g.points {
			if pt.curb == nil {
				needsInference = true
				break
			}
		}
		if !needsInference {
			continue
		}

		sides := make([]string, len(g.points))
		var left, right int
		for i, pt := range g.points {
			sides[i] = geo.SideOfCenterline(pt.point, g.line)
			if sides[i] == geo.CurbLeft {
				left++
			} else {
				right++
			}
		}

		// With one or two points there is no distribution to reason about:
		// trust whichever curb the user set, otherwise take each point's side.
		if len(g.points) < 3 {
			if set := firstSetCurb(g.points); set != "" {
				for _, pt := range g.points {
					curb := set
					pt.curb = &curb
				}
			} else {
				for i, pt := range g.points {
					pt.curb = &sides[i]
				}
			}
			continue
		}

		minority := left
		majority := geo.CurbRight
		if right < left {
			minority = right
			majority = geo.CurbLeft
		}

		if float64(minority)/float64(len(g.points)) < bimodalThreshold {
			// One-sided run: the scatter is noise, assign the majority curb
			// everywhere.
			for _, pt := range g.points {
				curb := majority
				pt.curb = &curb
			}
		} else {
			// Both sides were run: keep user-set values, fill the rest from
			// geometry.
			for i, pt := range g.points {
				if pt.curb == nil {
					pt.curb = &sides[i]
				}
			}
		}
	}
}

func firstSetCurb(points []*pickupPoint) string {
	for _, pt := range points {
		if pt.curb != nil {
			return *pt.curb
		}
	}
	return ""
}
