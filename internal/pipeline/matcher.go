package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
	"github.com/couchcryptid/storm-cell-etl/internal/observability"
)

// attributeWindowHalf is the half-width in grid cells of the square window
// the attribute calculations run over, centered on the cell centroid.
const attributeWindowHalf = 2

// ReportCounter answers nearby-report count queries. Implemented by
// reportindex.Index.
type ReportCounter interface {
	CountWithin(x, y, radius float64, scan time.Time, w domain.TimeWindow) int
}

// MatchParams fixes the filter thresholds and matching windows.
type MatchParams struct {
	ExclusionRadius float64    // m; cells closer to the radar are dropped
	AreaCeiling     float64    // km²; cells at or above are dropped
	Radii           [3]float64 // m; report search radii

	Forward  domain.TimeWindow
	Backward domain.TimeWindow

	EchoTopThresholds [3]float64 // dBZ
}

// Matcher runs the per-cell pipeline: location, region, and size filters,
// report matching at three radii, attribute computation, and record assembly.
type Matcher struct {
	boundary *geo.Boundary
	planar   *geo.Planar
	reports  ReportCounter
	params   MatchParams
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewMatcher creates a Matcher.
func NewMatcher(boundary *geo.Boundary, planar *geo.Planar, reports ReportCounter,
	params MatchParams, logger *slog.Logger, metrics *observability.Metrics) *Matcher {
	return &Matcher{
		boundary: boundary,
		planar:   planar,
		reports:  reports,
		params:   params,
		logger:   logger,
		metrics:  metrics,
	}
}

// Assemble runs one cell through the filter chain. It returns the assembled
// record and true when the cell qualifies, or false when a filter dropped it.
// The returned record is fully computed before it is handed back; a failure
// mid-computation drops only this cell.
func (m *Matcher) Assemble(grid *domain.RadarGrid, cell domain.StormCell) (domain.OutputRecord, bool, error) {
	// Location: centroid must be inside the metro boundary.
	if !m.boundary.Contains(cell.Lon, cell.Lat) {
		m.drop(cell, "boundary")
		return domain.OutputRecord{}, false, nil
	}

	// Region: centroid must be outside the radar's cone-of-silence disk.
	x, y, err := m.planar.Project(cell.Lon, cell.Lat)
	if err != nil {
		return domain.OutputRecord{}, false, fmt.Errorf("projecting cell %s: %w", cell.UID, err)
	}
	if x*x+y*y < m.params.ExclusionRadius*m.params.ExclusionRadius {
		m.drop(cell, "exclusion")
		return domain.OutputRecord{}, false, nil
	}

	// Size: oversized regions are merged complexes, not discrete cells.
	if cell.Area >= m.params.AreaCeiling {
		m.drop(cell, "area")
		return domain.OutputRecord{}, false, nil
	}

	flags := [3]int{}
	for i, radius := range m.params.Radii {
		flags[i] = m.severityFlag(x, y, radius, cell.ScanTime)
	}

	window := grid.Window(cell.GridX, cell.GridY, attributeWindowHalf)

	tops := [3]float64{}
	for i, threshold := range m.params.EchoTopThresholds {
		top, err := domain.MaxEchoTop(window, threshold, grid.TopLevel)
		if err != nil && !errors.Is(err, domain.ErrNoEcho) {
			return domain.OutputRecord{}, false, fmt.Errorf("echo top for cell %s: %w", cell.UID, err)
		}
		tops[i] = top // 0 on ErrNoEcho
	}

	record := domain.OutputRecord{
		ScanTime:   cell.ScanTime,
		Lat:        cell.Lat,
		Lon:        cell.Lon,
		Area:       cell.Area,
		Volume:     cell.Volume,
		MaxVIL:     domain.MaxVIL(window, grid.TopLevel),
		MaxRefl:    cell.MaxRefl,
		MaxReflAlt: cell.MaxReflAlt,
		EchoTop18:  tops[0],
		EchoTop50:  tops[1],
		EchoTop60:  tops[2],
		Severe5km:  flags[0],
		Severe10km: flags[1],
		Severe15km: flags[2],
	}

	m.metrics.CellsEmitted.Inc()
	return record, true, nil
}

// severityFlag classifies one radius: 1 when a report falls in the forward
// window, otherwise -1 when one falls in the backward window, otherwise 0.
// The windows are disjoint, so the flags cannot conflict.
func (m *Matcher) severityFlag(x, y, radius float64, scan time.Time) int {
	if m.reports.CountWithin(x, y, radius, scan, m.params.Forward) > 0 {
		return 1
	}
	if m.reports.CountWithin(x, y, radius, scan, m.params.Backward) > 0 {
		return -1
	}
	return 0
}

func (m *Matcher) drop(cell domain.StormCell, stage string) {
	m.metrics.CellsDropped.WithLabelValues(stage).Inc()
	m.logger.Debug("cell dropped", "uid", cell.UID, "stage", stage,
		"lat", cell.Lat, "lon", cell.Lon, "area_km2", cell.Area)
}
