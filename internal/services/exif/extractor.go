// Package exif reads embedded image metadata and cross-checks embedded GPS
// coordinates against the location an explorer claimed. Everything here fails
// open: missing or corrupt metadata produces an empty Metadata, never an
// error, so a camera that strips EXIF cannot block a submission on its own.
package exif

import (
	"bytes"
	"time"

	exifparser "github.com/rwcarlsen/goexif/exif"
)

type Metadata struct {
	HasExif     bool
	HasGPS      bool
	Lat         float64
	Lng         float64
	Timestamp   *time.Time
	CameraModel string
}

// Extract parses EXIF tags out of raw image bytes. The goexif decoder can
// panic on malformed TIFF structures, so the whole pass is recovered.
func Extract(data []byte) (meta Metadata) {
	defer func() {
		if r := recover(); r != nil {
			meta = Metadata{}
		}
	}()

	parsed, err := exifparser.Decode(bytes.NewReader(data))
	if err != nil || parsed == nil {
		return Metadata{}
	}

	meta.HasExif = true

	if lat, lng, err := parsed.LatLong(); err == nil {
		meta.HasGPS = true
		meta.Lat = lat
		meta.Lng = lng
	}

	if ts, err := parsed.DateTime(); err == nil {
		meta.Timestamp = &ts
	}

	meta.CameraModel = stringTag(parsed, exifparser.Model)
	if meta.CameraModel == "" {
		meta.CameraModel = stringTag(parsed, exifparser.LensModel)
	}

	return meta
}

func stringTag(parsed *exifparser.Exif, name exifparser.FieldName) string {
	tag, err := parsed.Get(name)
	if err != nil || tag == nil {
		return ""
	}
	value, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return value
}
