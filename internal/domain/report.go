package domain

import "time"

// StormReport is one ground severe-weather report. Loaded once at startup and
// immutable afterwards.
type StormReport struct {
	// Time is the report's observation time in UTC.
	Time time.Time

	// X and Y are the report's planar coordinates in meters.
	X, Y float64

	Lat, Lon  float64
	Magnitude float64
}

// TimeWindow is an interval of offsets relative to a scan time. Start is
// always inclusive; End is inclusive only when IncludeEnd is set. The forward
// and backward matching windows are disjoint by construction: forward covers
// [0, +d] and backward [-d, 0).
type TimeWindow struct {
	Start, End time.Duration
	IncludeEnd bool
}

// ForwardWindow returns the window [0, d] relative to the scan time.
func ForwardWindow(d time.Duration) TimeWindow {
	return TimeWindow{Start: 0, End: d, IncludeEnd: true}
}

// BackwardWindow returns the window [-d, 0) relative to the scan time.
func BackwardWindow(d time.Duration) TimeWindow {
	return TimeWindow{Start: -d, End: 0, IncludeEnd: false}
}

// Contains reports whether report time t falls inside the window anchored at
// scan time.
func (w TimeWindow) Contains(scan, t time.Time) bool {
	d := t.Sub(scan)
	if d < w.Start {
		return false
	}
	if w.IncludeEnd {
		return d <= w.End
	}
	return d < w.End
}
