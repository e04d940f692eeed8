package model

// Location is an explorer-reported GPS fix. AccuracyM is the horizontal
// accuracy in meters as reported by the device, absent for manual uploads.
type Location struct {
	Lat       float64
	Lng       float64
	AccuracyM *float64
}
