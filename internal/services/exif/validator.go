package exif

import (
	"fmt"

	"github.com/swayam1998/geoquests/internal/domain/model"
	"github.com/swayam1998/geoquests/internal/services/geo"
)

// DefaultToleranceMeters is the maximum allowed gap between embedded and
// claimed coordinates before the mismatch becomes a blocking finding.
const DefaultToleranceMeters = 50.0

type Validation struct {
	Matches        bool
	DistanceMeters *float64
	Reason         string
}

// ValidateLocation compares embedded GPS coordinates with the claimed fix.
// Absent GPS tags yield a match with a warning-only reason: plenty of real
// cameras and messengers strip location data.
func ValidateLocation(meta Metadata, claimed model.Location, toleranceMeters float64) Validation {
	if !meta.HasGPS {
		return Validation{
			Matches: true,
			Reason:  "No GPS data in EXIF (warning only)",
		}
	}

	if toleranceMeters <= 0 {
		toleranceMeters = DefaultToleranceMeters
	}

	distance := geo.Distance(meta.Lat, meta.Lng, claimed.Lat, claimed.Lng)
	if distance > toleranceMeters {
		return Validation{
			Matches:        false,
			DistanceMeters: &distance,
			Reason:         fmt.Sprintf("EXIF GPS location (%.0fm away) doesn't match submitted location", distance),
		}
	}

	return Validation{
		Matches:        true,
		DistanceMeters: &distance,
		Reason:         "EXIF GPS location matches submitted location",
	}
}
