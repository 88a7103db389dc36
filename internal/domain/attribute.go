package domain

import (
	"errors"
	"math"

	"github.com/ctessum/sparse"
)

// ErrNoEcho is returned by MaxEchoTop when no pixel in the window meets the
// reflectivity threshold at any level.
var ErrNoEcho = errors.New("no level meets echo-top threshold")

// vilCoefficient converts Σ Z^(4/7) (Z in mm⁶/m³) times layer thickness in
// meters to liquid water content in kg/m² (Greene & Clark 1972).
const vilCoefficient = 3.44e-6

// MaxVIL computes vertically integrated liquid per horizontal pixel of the
// reflectivity window (shape [levels][y][x], dBZ) and returns the maximum
// over the window. topLevel is the height of the highest level in meters;
// layer thickness is topLevel/(levels-1). NaN voxels are excluded from the
// column sum, not treated as zero. Returns NaN when no pixel has any valid
// level.
func MaxVIL(window *sparse.DenseArray, topLevel float64) float64 {
	nz, ny, nx := window.Shape[0], window.Shape[1], window.Shape[2]
	dh := topLevel / float64(nz-1)

	maxVIL := math.NaN()
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			sum := 0.0
			valid := false
			for k := 0; k < nz; k++ {
				dbz := window.Get(k, j, i)
				if math.IsNaN(dbz) {
					continue
				}
				z := math.Pow(10, dbz/10)
				sum += math.Pow(z, 4.0/7.0)
				valid = true
			}
			if !valid {
				continue
			}
			vil := vilCoefficient * dh * sum
			if math.IsNaN(maxVIL) || vil > maxVIL {
				maxVIL = vil
			}
		}
	}
	return maxVIL
}

// MaxEchoTop returns the maximum over the window of the per-pixel echo top:
// the greatest level height at which reflectivity is valid and meets or
// exceeds threshold. Level heights are evenly spaced from 0 to topLevel.
// Returns ErrNoEcho when the threshold is never met.
func MaxEchoTop(window *sparse.DenseArray, threshold, topLevel float64) (float64, error) {
	nz, ny, nx := window.Shape[0], window.Shape[1], window.Shape[2]

	heights := make([]float64, nz)
	for k := range heights {
		heights[k] = float64(k) * topLevel / float64(nz-1)
	}

	top := math.NaN()
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			// Scan downward; the first qualifying level is the pixel's echo top.
			for k := nz - 1; k >= 0; k-- {
				dbz := window.Get(k, j, i)
				if math.IsNaN(dbz) || dbz < threshold {
					continue
				}
				if math.IsNaN(top) || heights[k] > top {
					top = heights[k]
				}
				break
			}
		}
	}
	if math.IsNaN(top) {
		return 0, ErrNoEcho
	}
	return top, nil
}
