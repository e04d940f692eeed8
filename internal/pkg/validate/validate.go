package validate

import "strings"

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// Latitude and Longitude bound claimed coordinates before they reach the
// geofence math.
func Latitude(v float64) bool {
	return v >= -90 && v <= 90
}

func Longitude(v float64) bool {
	return v >= -180 && v <= 180
}
