package geo

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

// Boundary is the metro-area polygon, in WGS-84 lon/lat coordinates, that a
// storm cell centroid must fall inside to qualify for the dataset.
type Boundary struct {
	poly geom.Polygonal
}

// NewBoundary wraps an in-memory polygon. Used by tests; production code
// loads from a shapefile via LoadBoundary.
func NewBoundary(poly geom.Polygonal) *Boundary {
	return &Boundary{poly: poly}
}

// LoadBoundary reads the first geometry from a polygon shapefile. If the
// shapefile carries a .prj projection definition, the polygon is transformed
// to lon/lat; otherwise it is assumed to already be in lon/lat.
func LoadBoundary(path string) (*Boundary, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("geo: opening boundary shapefile %s: %w", path, err)
	}
	defer dec.Close()

	g, _, more := dec.DecodeRowFields()
	if !more {
		if err := dec.Error(); err != nil {
			return nil, fmt.Errorf("geo: reading boundary shapefile %s: %w", path, err)
		}
		return nil, fmt.Errorf("geo: boundary shapefile %s contains no geometries", path)
	}

	if sr, srErr := dec.SR(); srErr == nil {
		lonLatSR, err := proj.Parse("+proj=longlat")
		if err != nil {
			return nil, fmt.Errorf("geo: parsing lon/lat projection: %w", err)
		}
		trans, err := sr.NewTransform(lonLatSR)
		if err != nil {
			return nil, fmt.Errorf("geo: boundary reprojection: %w", err)
		}
		if g, err = g.Transform(trans); err != nil {
			return nil, fmt.Errorf("geo: reprojecting boundary: %w", err)
		}
	}

	poly, ok := g.(geom.Polygonal)
	if !ok {
		return nil, fmt.Errorf("geo: boundary shapefile %s: first geometry is %T, want polygon", path, g)
	}
	return &Boundary{poly: poly}, nil
}

// Contains reports whether the lon/lat point lies inside the boundary polygon.
func (b *Boundary) Contains(lon, lat float64) bool {
	return geom.Point{X: lon, Y: lat}.Within(b.poly) == geom.Inside
}
