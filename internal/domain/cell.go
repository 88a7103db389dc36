package domain

import (
	"strconv"
	"time"
)

// StormCell is one tracked storm at one scan time, as reported by the cell
// tracker. The UID is stable across consecutive scans for the same storm.
// Read-only downstream of the tracker.
type StormCell struct {
	UID      string
	ScanTime time.Time

	// Lat and Lon locate the reflectivity-weighted centroid.
	Lat, Lon float64

	// GridX and GridY are the centroid's grid indices.
	GridX, GridY int

	// Area is the cell footprint in km².
	Area float64

	// Volume is the volume above the detection threshold in km³.
	Volume float64

	// MaxRefl is the cell's maximum reflectivity in dBZ; MaxReflAlt is the
	// altitude of that maximum in meters.
	MaxRefl    float64
	MaxReflAlt float64
}

// OutputRecord is one row of the final dataset. Created once per qualifying
// StormCell and never mutated afterwards.
type OutputRecord struct {
	ScanTime time.Time

	Lat, Lon float64
	Area     float64 // km²
	Volume   float64 // km³

	MaxVIL     float64 // kg/m²
	MaxRefl    float64 // dBZ
	MaxReflAlt float64 // m

	// Echo-top heights in meters at 18.5, 50, and 60 dBZ; 0 when no pixel in
	// the cell window reaches the threshold at any level.
	EchoTop18, EchoTop50, EchoTop60 float64

	// Severity flags per search radius: 1 = report within the forward window,
	// -1 = report only within the backward window, 0 = no nearby report.
	Severe5km, Severe10km, Severe15km int
}

// datetimeLayout formats scan times in the dataset, e.g. "22:41 UTC 2021-07-09".
const datetimeLayout = "15:04 UTC 2006-01-02"

// OutputHeader returns the dataset CSV header.
func OutputHeader() []string {
	return []string{
		"Datetime", "lat", "lon", "area", "vol",
		"max_vil", "max_refl", "max_alt",
		"max_et18", "max_et50", "max_et60",
		"severe_5km", "severe_10km", "severe_15km",
	}
}

// CSVRow serializes the record in OutputHeader column order.
func (r OutputRecord) CSVRow() []string {
	return []string{
		r.ScanTime.UTC().Format(datetimeLayout),
		formatFloat(r.Lat),
		formatFloat(r.Lon),
		formatFloat(r.Area),
		formatFloat(r.Volume),
		formatFloat(r.MaxVIL),
		formatFloat(r.MaxRefl),
		formatFloat(r.MaxReflAlt),
		formatFloat(r.EchoTop18),
		formatFloat(r.EchoTop50),
		formatFloat(r.EchoTop60),
		strconv.Itoa(r.Severe5km),
		strconv.Itoa(r.Severe10km),
		strconv.Itoa(r.Severe15km),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
