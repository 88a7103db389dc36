// Package tracker identifies storm cells in gridded reflectivity and keeps
// cell identifiers stable across consecutive scans. It populates the domain
// StormCell contract only; nothing downstream depends on its internals.
package tracker

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
)

// associationRadius is the maximum centroid displacement in meters for a cell
// to inherit a uid from the previous scan.
const associationRadius = 10000.0

// Tracker detects cells scan by scan. Not safe for concurrent use; scans are
// processed strictly sequentially.
type Tracker struct {
	threshold float64 // dBZ on composite reflectivity
	minPixels int
	planar    *geo.Planar
	logger    *slog.Logger

	prev    []trackedCell
	nextUID int
}

type trackedCell struct {
	uid  string
	x, y float64 // planar m
}

// New creates a Tracker with the given detection threshold and minimum cell
// size in pixels.
func New(threshold float64, minPixels int, planar *geo.Planar, logger *slog.Logger) *Tracker {
	return &Tracker{
		threshold: threshold,
		minPixels: minPixels,
		planar:    planar,
		logger:    logger,
	}
}

// Track identifies the storm cells in one grid. Contiguous (8-connected)
// regions of composite reflectivity at or above the threshold become cells;
// regions smaller than minPixels are ignored.
func (t *Tracker) Track(grid *domain.RadarGrid) ([]domain.StormCell, error) {
	nz, ny, nx := grid.Refl.Shape[0], grid.Refl.Shape[1], grid.Refl.Shape[2]

	// Composite (column-maximum) reflectivity and the level it occurs at.
	composite := make([]float64, ny*nx)
	topLevel := make([]int, ny*nx)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			best := math.NaN()
			bestK := -1
			for k := 0; k < nz; k++ {
				v := grid.Refl.Get(k, j, i)
				if math.IsNaN(v) {
					continue
				}
				if bestK < 0 || v > best {
					best, bestK = v, k
				}
			}
			composite[j*nx+i] = best
			topLevel[j*nx+i] = bestK
		}
	}

	labels := make([]int, ny*nx)
	var cells []domain.StormCell
	var matched []trackedCell
	nextLabel := 0

	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			if labels[j*nx+i] != 0 || !exceeds(composite[j*nx+i], t.threshold) {
				continue
			}
			nextLabel++
			pixels := floodFill(composite, labels, nx, ny, i, j, t.threshold, nextLabel)
			if len(pixels) < t.minPixels {
				continue
			}

			cell, tc, err := t.buildCell(grid, composite, topLevel, pixels, nx)
			if err != nil {
				return nil, err
			}
			cells = append(cells, cell)
			matched = append(matched, tc)
		}
	}

	t.assignUIDs(cells, matched)
	t.prev = matched

	t.logger.Debug("tracked scan",
		"scan_time", grid.ScanTime,
		"regions", nextLabel,
		"cells", len(cells),
	)
	return cells, nil
}

func exceeds(v, threshold float64) bool {
	return !math.IsNaN(v) && v >= threshold
}

// floodFill labels the 8-connected region containing (x, y) and returns its
// pixel offsets into the composite field.
func floodFill(composite []float64, labels []int, nx, ny, x, y int, threshold float64, label int) []int {
	stack := []int{y*nx + x}
	labels[y*nx+x] = label
	var pixels []int

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pixels = append(pixels, p)

		pj, pi := p/nx, p%nx
		for dj := -1; dj <= 1; dj++ {
			for di := -1; di <= 1; di++ {
				nj, ni := pj+dj, pi+di
				if nj < 0 || nj >= ny || ni < 0 || ni >= nx {
					continue
				}
				q := nj*nx + ni
				if labels[q] != 0 || !exceeds(composite[q], threshold) {
					continue
				}
				labels[q] = label
				stack = append(stack, q)
			}
		}
	}
	return pixels
}

// buildCell computes one cell's attributes from its labeled pixels.
func (t *Tracker) buildCell(grid *domain.RadarGrid, composite []float64, topLevel, pixels []int, nx int) (domain.StormCell, trackedCell, error) {
	nz := grid.Levels()

	var sumW, sumWX, sumWY float64
	maxRefl := math.Inf(-1)
	maxK := 0
	voxels := 0

	for _, p := range pixels {
		pj, pi := p/nx, p%nx

		// Linear-Z weighting keeps the centroid near the reflectivity core.
		w := math.Pow(10, composite[p]/10)
		sumW += w
		sumWX += w * float64(pi)
		sumWY += w * float64(pj)

		if composite[p] > maxRefl {
			maxRefl = composite[p]
			maxK = topLevel[p]
		}
		for k := 0; k < nz; k++ {
			if exceeds(grid.Refl.Get(k, pj, pi), t.threshold) {
				voxels++
			}
		}
	}

	cx := sumWX / sumW
	cy := sumWY / sumW
	gx := int(math.Round(cx))
	gy := int(math.Round(cy))

	// Grid indices to radar-centered planar meters, then to lon/lat.
	px := -grid.Extent + cx*grid.Dx
	py := -grid.Extent + cy*grid.Dy
	lon, lat, err := t.planar.Inverse(px, py)
	if err != nil {
		return domain.StormCell{}, trackedCell{}, err
	}

	cell := domain.StormCell{
		ScanTime:   grid.ScanTime,
		Lat:        lat,
		Lon:        lon,
		GridX:      gx,
		GridY:      gy,
		Area:       float64(len(pixels)) * grid.Dx * grid.Dy / 1e6,
		Volume:     float64(voxels) * grid.Dx * grid.Dy * grid.Dz / 1e9,
		MaxRefl:    maxRefl,
		MaxReflAlt: grid.LevelHeight(maxK),
	}
	return cell, trackedCell{x: px, y: py}, nil
}

// assignUIDs carries uids forward from the previous scan: a cell whose
// centroid moved less than associationRadius keeps its old uid, everything
// else gets a fresh one. Each previous uid is claimed at most once.
func (t *Tracker) assignUIDs(cells []domain.StormCell, current []trackedCell) {
	claimed := make(map[string]bool)

	for ci := range cells {
		bestDist := associationRadius
		bestUID := ""
		for _, pc := range t.prev {
			if claimed[pc.uid] {
				continue
			}
			d := math.Hypot(current[ci].x-pc.x, current[ci].y-pc.y)
			if d < bestDist {
				bestDist = d
				bestUID = pc.uid
			}
		}
		if bestUID == "" {
			t.nextUID++
			bestUID = strconv.Itoa(t.nextUID)
		} else {
			claimed[bestUID] = true
		}
		cells[ci].UID = bestUID
		current[ci].uid = bestUID
	}
}
