// Package geo holds the proximity rule used to match a coordinate against
// stored reservations.  The match is an axis-aligned box in degrees, not a
// geodesic radius: about 22 m at the equator, narrower in longitude towards
// the poles.
package geo

import "github.com/paulmach/orb"

// Tolerance is the half-width of the proximity box in degrees, applied to
// longitude and latitude independently.
const Tolerance = 0.0002

// ProximityBound returns the box of points that count as "near" the given
// coordinate.  Both edges are inclusive.
func ProximityBound(longitude, latitude float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{longitude - Tolerance, latitude - Tolerance},
		Max: orb.Point{longitude + Tolerance, latitude + Tolerance},
	}
}
