// Package gridder converts polar radar volume scans into regular 3-D
// reflectivity grids using distance-weighted scatter interpolation.
package gridder

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/ctessum/sparse"

	"github.com/couchcryptid/storm-cell-etl/internal/adapter/scanfile"
	"github.com/couchcryptid/storm-cell-etl/internal/domain"
)

// effectiveEarthRadius is the 4/3-earth radius used for beam-height
// computation under standard atmospheric refraction, in meters.
const effectiveEarthRadius = 4.0 / 3.0 * 6371000

// Params fixes the grid geometry and interpolation behavior.
type Params struct {
	// Extent is the horizontal half-width in meters; Top the height of the
	// highest level. Cells and Levels set the resolution.
	Extent float64
	Top    float64
	Cells  int
	Levels int

	// Scheme selects the weighting function: "barnes2" or "cressman".
	Scheme string

	// Radius of influence around each gate:
	// roi = ZFactor*height + XYFactor*range + MinRadius, all in meters.
	MinRadius float64
	XYFactor  float64
	ZFactor   float64
}

// Builder converts volume scans to grids. Safe to reuse across scans.
type Builder struct {
	params Params
	logger *slog.Logger
}

// New creates a Builder.
func New(p Params, logger *slog.Logger) *Builder {
	return &Builder{params: p, logger: logger}
}

// BuildFile reads the scan at path and grids it.
func (b *Builder) BuildFile(path string) (*domain.RadarGrid, error) {
	v, err := scanfile.Read(path)
	if err != nil {
		return nil, err
	}
	return b.Build(v)
}

// Build interpolates one polar volume onto the regular grid. Each valid gate
// contributes a distance-weighted share of its reflectivity to every grid
// voxel within its radius of influence; voxels reached by no gate are NaN.
func (b *Builder) Build(v *scanfile.Volume) (*domain.RadarGrid, error) {
	p := b.params
	nz, nxy := p.Levels, p.Cells
	dz := p.Top / float64(nz-1)
	dxy := 2 * p.Extent / float64(nxy-1)

	sums := make([]float64, nz*nxy*nxy)
	weights := make([]float64, nz*nxy*nxy)

	nray, ngate := v.Refl.Shape[0], v.Refl.Shape[1]
	gates := 0
	for ri := 0; ri < nray; ri++ {
		az := v.Azimuth[ri] * math.Pi / 180
		el := v.Elevation[ri] * math.Pi / 180
		sinAz, cosAz := math.Sin(az), math.Cos(az)
		sinEl, cosEl := math.Sin(el), math.Cos(el)

		for gi := 0; gi < ngate; gi++ {
			dbz := v.Refl.Get(ri, gi)
			if math.IsNaN(dbz) {
				continue
			}
			r := v.GateRange[gi]

			// 4/3-earth beam height and ground distance.
			h := math.Sqrt(r*r+effectiveEarthRadius*effectiveEarthRadius+
				2*r*effectiveEarthRadius*sinEl) - effectiveEarthRadius
			s := effectiveEarthRadius * math.Asin(r*cosEl/(effectiveEarthRadius+h))

			gx := s * sinAz
			gy := s * cosAz

			roi := p.ZFactor*h + p.XYFactor*r + p.MinRadius
			b.scatter(sums, weights, dbz, gx, gy, h, roi, dz, dxy)
			gates++
		}
	}
	if gates == 0 {
		return nil, fmt.Errorf("gridder: volume %s at %s has no valid gates", v.SiteID, v.Time)
	}

	refl := sparse.ZerosDense(nz, nxy, nxy)
	covered := 0
	for i := range sums {
		if weights[i] > 0 {
			refl.Elements[i] = sums[i] / weights[i]
			covered++
		} else {
			refl.Elements[i] = math.NaN()
		}
	}

	b.logger.Debug("gridded volume",
		"site", v.SiteID,
		"scan_time", v.Time,
		"gates_used", gates,
		"voxels_covered", covered,
	)

	return &domain.RadarGrid{
		Refl:      refl,
		Dz:        dz,
		Dy:        dxy,
		Dx:        dxy,
		TopLevel:  p.Top,
		Extent:    p.Extent,
		OriginLat: v.Lat,
		OriginLon: v.Lon,
		SiteID:    v.SiteID,
		ScanTime:  v.Time,
	}, nil
}

// scatter adds one gate's weighted contribution to all voxels within roi of
// (gx, gy, h). Grid coordinates are radar-centered: x=-Extent at i=0.
func (b *Builder) scatter(sums, weights []float64, dbz, gx, gy, h, roi, dz, dxy float64) {
	p := b.params
	nz, nxy := p.Levels, p.Cells

	k0, k1 := boundIndices(h-roi, h+roi, 0, dz, nz)
	j0, j1 := boundIndices(gy-roi, gy+roi, -p.Extent, dxy, nxy)
	i0, i1 := boundIndices(gx-roi, gx+roi, -p.Extent, dxy, nxy)

	sigma2 := (roi / 2) * (roi / 2)
	roi2 := roi * roi

	for k := k0; k <= k1; k++ {
		vz := float64(k)*dz - h
		for j := j0; j <= j1; j++ {
			vy := -p.Extent + float64(j)*dxy - gy
			for i := i0; i <= i1; i++ {
				vx := -p.Extent + float64(i)*dxy - gx

				d2 := vx*vx + vy*vy + vz*vz
				if d2 > roi2 {
					continue
				}

				var w float64
				if p.Scheme == "cressman" {
					w = (roi2 - d2) / (roi2 + d2)
				} else {
					w = math.Exp(-d2 / (2 * sigma2))
				}

				idx := (k*nxy+j)*nxy + i
				sums[idx] += w * dbz
				weights[idx] += w
			}
		}
	}
}

// boundIndices returns the clamped index range covering [lo, hi] on an axis
// with the given origin and spacing.
func boundIndices(lo, hi, origin, spacing float64, n int) (int, int) {
	i0 := int(math.Ceil((lo - origin) / spacing))
	i1 := int(math.Floor((hi - origin) / spacing))
	if i0 < 0 {
		i0 = 0
	}
	if i1 > n-1 {
		i1 = n - 1
	}
	return i0, i1
}
