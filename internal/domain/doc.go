// Package domain models storm cell objects derived from weather radar volume
// scans, and the ground storm reports they are matched against.
//
// # Data Flow
//
// One radar volume scan becomes one [RadarGrid]: a regular 3-D reflectivity
// grid (height, y, x) centered on the radar site. A cell tracker identifies
// contiguous high-reflectivity regions in each grid and emits one [StormCell]
// per region per scan. Each qualifying cell is matched against nearby
// [StormReport] records and becomes one [OutputRecord] row in the final
// dataset.
//
// # Radar Conventions
//
// Reflectivity is in dBZ, a logarithmic unit; NaN marks grid voxels with no
// radar coverage (outside every gate's radius of influence). Conversions to
// linear units use Z = 10^(dBZ/10).
//
// Vertically Integrated Liquid (VIL) estimates the liquid water content of an
// atmospheric column from reflectivity:
//
//	VIL = 3.44e-6 * Δh * Σ_levels Z^(4/7)   [kg/m²]
//
// where Δh is the vertical level spacing in meters (Greene & Clark 1972).
//
// An echo top is the greatest height at which reflectivity meets or exceeds a
// threshold. Thresholds used here: 18.5 dBZ (conventional echo top), 50 and
// 60 dBZ (severe hail indicators).
//
// # Report Matching
//
// Ground reports carry a UTC timestamp and planar (meters) coordinates. A cell
// is matched against reports at fixed search radii inside two time windows
// relative to the scan time: a forward window (report shortly after the scan,
// storm about to verify) and a backward window (report shortly before the
// scan). The resulting severity flag is ternary: 1 for a forward match, -1
// for a backward-only match, 0 for no match in either window.
package domain
