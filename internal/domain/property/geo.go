package property

import (
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/propsignal/propsignal/pkg/types/common"
)

// earthRadiusMiles is the mean Earth radius used to convert great-circle
// angles to surface distance.
const earthRadiusMiles = 3958.7613

// marketCellLevel is the S2 cell level used to bucket listings into market
// areas for cache keys.  Level 12 cells are roughly 3–4 km across at mid
// latitudes, about the size of a neighborhood cluster.
const marketCellLevel = 12

// DistanceMiles returns the great-circle distance between two coordinates
// in statute miles.
func DistanceMiles(a, b common.LatLng) float64 {
	if a.IsZero() || b.IsZero() {
		return 0
	}
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return la.Distance(lb).Radians() * earthRadiusMiles
}

// MarketCell returns the S2 cell token identifying the market-area bucket a
// coordinate falls into.  Listings sharing a token are near each other; the
// token is stable and safe to use in cache keys.
func MarketCell(c common.LatLng) string {
	if c.IsZero() {
		return ""
	}
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(c.Lat, c.Lng)).Parent(marketCellLevel).ToToken()
}

// BoundingBox returns a latitude/longitude rectangle that fully contains a
// circle of the given radius around center.  Repositories use it as a cheap
// SQL prefilter before the exact per-candidate distance check.
func BoundingBox(center common.LatLng, radiusMiles float64) (latMin, latMax, lngMin, lngMax float64) {
	ll := s2.LatLngFromDegrees(center.Lat, center.Lng)
	region := s2.CapFromCenterAngle(s2.PointFromLatLng(ll), s1.Angle(radiusMiles/earthRadiusMiles))
	rect := region.RectBound()
	lo, hi := rect.Lo(), rect.Hi()
	return lo.Lat.Degrees(), hi.Lat.Degrees(), lo.Lng.Degrees(), hi.Lng.Degrees()
}
