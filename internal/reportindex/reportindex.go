// Package reportindex loads ground storm reports and answers
// nearby-in-time-and-space count queries for cell matching.
package reportindex

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
)

// Report times are local to the metro area. Arizona does not observe daylight
// saving time, so a fixed offset is correct year-round.
var sourceZone = time.FixedZone("MST", -7*60*60)

// Index holds the preprocessed report table: reports with valid times,
// converted to UTC, reprojected to planar coordinates, and indexed in an
// R-tree for spatial range queries.
type Index struct {
	tree *rtree.Rtree
	size int
}

type reportItem struct {
	geom.Point
	report domain.StormReport
}

// Load reads the report CSV, drops invalid rows, and builds the index.
// Expected columns: BEGIN_DATE (MM/DD/YYYY), BEGIN_TIME (HHMM, 24-hour),
// TZ, LAT, LON, MAGNITUDE.
func Load(path string, planar *geo.Planar, logger *slog.Logger) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reportindex: opening %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reportindex: reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("reportindex: %s has no data rows", path)
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"BEGIN_DATE", "BEGIN_TIME", "LAT", "LON", "MAGNITUDE"} {
		if _, ok := colIdx[col]; !ok {
			return nil, fmt.Errorf("reportindex: %s missing column %s", path, col)
		}
	}

	ix := &Index{tree: rtree.NewTree(25, 50)}
	dropped := 0
	for _, row := range rows[1:] {
		report, ok := parseRow(row, colIdx, planar)
		if !ok {
			dropped++
			continue
		}
		ix.tree.Insert(&reportItem{
			Point:  geom.Point{X: report.X, Y: report.Y},
			report: report,
		})
		ix.size++
	}

	logger.Info("loaded storm reports", "file", path, "reports", ix.size, "dropped", dropped)
	return ix, nil
}

// parseRow converts one CSV row to a report. Rows with a non-positive time,
// an out-of-range HHMM value, or unparsable fields are invalid.
func parseRow(row []string, colIdx map[string]int, planar *geo.Planar) (domain.StormReport, bool) {
	field := func(name string) string {
		i := colIdx[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	hhmm, err := strconv.Atoi(field("BEGIN_TIME"))
	if err != nil || hhmm <= 0 {
		return domain.StormReport{}, false
	}
	hour, minute := hhmm/100, hhmm%100
	if hour > 23 || minute > 59 {
		return domain.StormReport{}, false
	}

	date, err := time.Parse("01/02/2006", field("BEGIN_DATE"))
	if err != nil {
		return domain.StormReport{}, false
	}

	lat, errLat := strconv.ParseFloat(field("LAT"), 64)
	lon, errLon := strconv.ParseFloat(field("LON"), 64)
	if errLat != nil || errLon != nil {
		return domain.StormReport{}, false
	}

	magnitude, err := strconv.ParseFloat(field("MAGNITUDE"), 64)
	if err != nil {
		magnitude = 0
	}

	x, y, err := planar.Project(lon, lat)
	if err != nil {
		return domain.StormReport{}, false
	}

	local := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, sourceZone)
	return domain.StormReport{
		Time:      local.UTC(),
		X:         x,
		Y:         y,
		Lat:       lat,
		Lon:       lon,
		Magnitude: magnitude,
	}, true
}

// Len returns the number of indexed reports.
func (ix *Index) Len() int {
	return ix.size
}

// CountWithin returns how many reports lie within radius meters of the planar
// point (x, y) and inside the time window anchored at scan. The R-tree
// narrows candidates to a bounding box; the exact disk and window checks
// preserve the brute-force matching semantics.
func (ix *Index) CountWithin(x, y, radius float64, scan time.Time, w domain.TimeWindow) int {
	box := &geom.Bounds{
		Min: geom.Point{X: x - radius, Y: y - radius},
		Max: geom.Point{X: x + radius, Y: y + radius},
	}

	count := 0
	for _, it := range ix.tree.SearchIntersect(box) {
		item := it.(*reportItem)
		dx, dy := item.report.X-x, item.report.Y-y
		if dx*dx+dy*dy > radius*radius {
			continue
		}
		if !w.Contains(scan, item.report.Time) {
			continue
		}
		count++
	}
	return count
}
