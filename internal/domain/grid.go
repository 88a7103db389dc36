package domain

import (
	"time"

	"github.com/ctessum/sparse"
)

// RadarGrid is a regular 3-D reflectivity grid built from one volume scan.
// Refl has shape [levels][ny][nx] in dBZ with NaN marking voxels outside
// radar coverage. The grid is centered on the radar site: x and y run from
// -Extent to +Extent meters, z from 0 to TopLevel meters. Immutable once built.
type RadarGrid struct {
	Refl *sparse.DenseArray

	// Dz, Dy, Dx are the grid spacings in meters.
	Dz, Dy, Dx float64

	// TopLevel is the height of the highest vertical level in meters.
	TopLevel float64

	// Extent is the horizontal half-width of the grid in meters.
	Extent float64

	// OriginLat and OriginLon locate the radar site (grid center).
	OriginLat, OriginLon float64

	SiteID   string
	ScanTime time.Time
}

// Levels returns the number of vertical levels.
func (g *RadarGrid) Levels() int {
	return g.Refl.Shape[0]
}

// LevelHeight returns the height in meters of vertical level k. Levels are
// evenly spaced from 0 to TopLevel.
func (g *RadarGrid) LevelHeight(k int) float64 {
	nz := g.Levels()
	if nz < 2 {
		return 0
	}
	return float64(k) * g.TopLevel / float64(nz-1)
}

// Window extracts the full-height reflectivity sub-grid spanning ±half cells
// around pixel (gx, gy), clamped to the grid edges.
func (g *RadarGrid) Window(gx, gy, half int) *sparse.DenseArray {
	nz, ny, nx := g.Refl.Shape[0], g.Refl.Shape[1], g.Refl.Shape[2]

	y0, y1 := clampRange(gy-half, gy+half, ny)
	x0, x1 := clampRange(gx-half, gx+half, nx)

	w := sparse.ZerosDense(nz, y1-y0+1, x1-x0+1)
	for k := 0; k < nz; k++ {
		for j := y0; j <= y1; j++ {
			for i := x0; i <= x1; i++ {
				w.Set(g.Refl.Get(k, j, i), k, j-y0, i-x0)
			}
		}
	}
	return w
}

func clampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}
