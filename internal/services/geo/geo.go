package geo

import (
	"fmt"
	"math"

	"github.com/swayam1998/geoquests/internal/domain/model"
)

const (
	earthRadiusM = 6371000.0

	// Device fixes reported with accuracy at or above this are unusable for
	// geofence decisions regardless of the computed distance.
	maxUsableAccuracyM = 100.0
)

type Result struct {
	Verified       bool
	DistanceMeters float64
	Reason         string

	// AccuracyRejected marks a fix thrown out for poor reported accuracy
	// before the geofence radius was considered.
	AccuracyRejected bool
}

// Distance returns the haversine great-circle distance in meters between two
// coordinates given in degrees.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(v float64) float64 { return v * math.Pi / 180 }

	phi1 := toRad(lat1)
	phi2 := toRad(lat2)
	dPhi := toRad(lat2 - lat1)
	dLambda := toRad(lng2 - lng1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// VerifyLocation checks the claimed fix against the quest geofence. The
// computed distance is always reported, even when the fix is rejected for
// poor accuracy before the radius is considered.
func VerifyLocation(claimed model.Location, questLat, questLng float64, radiusMeters int) Result {
	distance := Distance(claimed.Lat, claimed.Lng, questLat, questLng)

	if claimed.AccuracyM != nil && *claimed.AccuracyM >= maxUsableAccuracyM {
		return Result{
			Verified:         false,
			DistanceMeters:   distance,
			Reason:           fmt.Sprintf("GPS accuracy too low (%.1fm). Move to an open area for better signal.", *claimed.AccuracyM),
			AccuracyRejected: true,
		}
	}

	if distance > float64(radiusMeters) {
		return Result{
			Verified:       false,
			DistanceMeters: distance,
			Reason:         fmt.Sprintf("You are %.0fm away from the quest location. Get within %dm to complete it.", distance, radiusMeters),
		}
	}

	return Result{
		Verified:       true,
		DistanceMeters: distance,
		Reason:         "Location verified successfully",
	}
}
