package geospatial

import (
	"math"
	"strconv"
)

const earthRadiusMeters = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// DistanceMeters is Haversine truncated to whole meters.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) int {
	return int(Haversine(lat1, lon1, lat2, lon2))
}

// RoundTo rounds v to the given number of decimal places using the exact
// decimal expansion of v, so 44.83765 and friends round the same way every time.
func RoundTo(v float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// BandKm returns the smallest multiple of stepKm that is >= km.
func BandKm(km float64, stepKm int) int {
	if stepKm <= 0 {
		stepKm = 10
	}
	band := int(km/float64(stepKm)) * stepKm
	if float64(band) < km {
		band += stepKm
	}
	return band
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
