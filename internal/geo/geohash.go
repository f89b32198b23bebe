package geo

import (
	"github.com/mmcloughlin/geohash"
)

const (
	defaultPrecision = 6
	maxPrecision     = 12
)

// Encode converts a coordinate to a geohash string with the given precision.
// Precision 6 is roughly 1.2 km cells, precision 7 roughly 150 m cells.
// Out-of-range precisions fall back to the default or are capped.
func Encode(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = defaultPrecision
	}
	if precision > maxPrecision {
		precision = maxPrecision
	}
	return geohash.EncodeWithPrecision(lat, lon, uint(precision))
}

// Decode returns the center of the cell a geohash names.
func Decode(hash string) (lat, lon float64) {
	return geohash.DecodeCenter(hash)
}

// AllNeighbors returns the center cell followed by its 8 neighbors, the 3x3
// grid scanned by proximity searches.
func AllNeighbors(hash string) []string {
	return append([]string{hash}, geohash.Neighbors(hash)...)
}
