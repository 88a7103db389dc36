// Package geo provides the fixed planar coordinate system and the metro
// boundary polygon used to filter and match storm cells.
package geo

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/proj"
)

// Planar converts between WGS-84 lon/lat and a Lambert conformal conic
// projection centered on the radar site, so the radar maps to (0, 0) and
// planar distances are in meters.
type Planar struct {
	toPlanar proj.Transformer
	toLonLat proj.Transformer
}

// NewPlanar builds the planar coordinate system for a radar at (lat, lon).
func NewPlanar(lat, lon float64) (*Planar, error) {
	lonLatSR, err := proj.Parse("+proj=longlat")
	if err != nil {
		return nil, fmt.Errorf("geo: parsing lon/lat projection: %w", err)
	}

	// Spherical earth matching the radius used for beam-height geometry.
	planarStr := fmt.Sprintf(
		"+proj=lcc +lat_1=%f +lat_2=%f +lat_0=%f +lon_0=%f +x_0=0 +y_0=0 +a=6370997.0 +b=6370997.0 +to_meter=1",
		lat-1.5, lat+1.5, lat, lon)
	planarSR, err := proj.Parse(planarStr)
	if err != nil {
		return nil, fmt.Errorf("geo: parsing planar projection: %w", err)
	}

	forward, err := lonLatSR.NewTransform(planarSR)
	if err != nil {
		return nil, fmt.Errorf("geo: lon/lat to planar transform: %w", err)
	}
	inverse, err := planarSR.NewTransform(lonLatSR)
	if err != nil {
		return nil, fmt.Errorf("geo: planar to lon/lat transform: %w", err)
	}

	return &Planar{toPlanar: forward, toLonLat: inverse}, nil
}

// Project converts a lon/lat coordinate to planar meters.
func (p *Planar) Project(lon, lat float64) (x, y float64, err error) {
	g, err := geom.Point{X: lon, Y: lat}.Transform(p.toPlanar)
	if err != nil {
		return 0, 0, fmt.Errorf("geo: projecting (%g, %g): %w", lon, lat, err)
	}
	pt := g.(geom.Point)
	return pt.X, pt.Y, nil
}

// Inverse converts planar meters back to a lon/lat coordinate.
func (p *Planar) Inverse(x, y float64) (lon, lat float64, err error) {
	g, err := geom.Point{X: x, Y: y}.Transform(p.toLonLat)
	if err != nil {
		return 0, 0, fmt.Errorf("geo: inverting (%g, %g): %w", x, y, err)
	}
	pt := g.(geom.Point)
	return pt.X, pt.Y, nil
}
