package pipeline_test

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
	"github.com/couchcryptid/storm-cell-etl/internal/observability"
	"github.com/couchcryptid/storm-cell-etl/internal/pipeline"
	"github.com/couchcryptid/storm-cell-etl/internal/reportindex"
)

// fakeBuilder maps file paths to prebuilt grids.
type fakeBuilder struct {
	grids map[string]*domain.RadarGrid
}

func (f *fakeBuilder) BuildFile(path string) (*domain.RadarGrid, error) {
	g, ok := f.grids[path]
	if !ok {
		return nil, fmt.Errorf("unreadable scan %s", path)
	}
	return g, nil
}

// fakeTracker returns the same cells for every grid, stamped with the grid's
// scan time.
type fakeTracker struct {
	cells []domain.StormCell
}

func (f *fakeTracker) Track(grid *domain.RadarGrid) ([]domain.StormCell, error) {
	out := make([]domain.StormCell, len(f.cells))
	for i, c := range f.cells {
		c.ScanTime = grid.ScanTime
		out[i] = c
	}
	return out, nil
}

func writeReportCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.csv")
	header := "BEGIN_DATE,BEGIN_TIME,TZ,LAT,LON,MAGNITUDE\n"
	require.NoError(t, os.WriteFile(path, []byte(header+rows), 0o644))
	return path
}

// newEndToEnd wires a real matcher and report index behind fake grid and
// tracker stages. The single tracked cell sits at the reference centroid.
func newEndToEnd(t *testing.T, reportRows string) *pipeline.Pipeline {
	t.Helper()

	planar, err := geo.NewPlanar(testRadarLat, testRadarLon)
	require.NoError(t, err)

	reports, err := reportindex.Load(writeReportCSV(t, reportRows), planar, slog.Default())
	require.NoError(t, err)

	matcher := pipeline.NewMatcher(metroBoundary(), planar, reports,
		testMatchParams(), slog.Default(), observability.NewMetricsForTesting())

	builder := &fakeBuilder{grids: map[string]*domain.RadarGrid{
		"scan1.nc": matchGrid(),
	}}
	tracker := &fakeTracker{cells: []domain.StormCell{qualifyingCell()}}

	return pipeline.New(builder, tracker, matcher,
		slog.Default(), observability.NewMetricsForTesting())
}

// The scan is at 22:41 UTC, which is 15:41 local time. 1551 local is ten
// minutes after the scan; 1531 is ten minutes before.
const (
	reportAfterScan  = "07/09/2021,1551,MST-7,33.45,-111.95,1.00\n"
	reportBeforeScan = "07/09/2021,1531,MST-7,33.45,-111.95,1.00\n"
	reportFarAway    = "07/09/2021,0900,MST-7,33.45,-111.95,1.00\n"
)

func TestRun_ReportAfterScanFlagsOne(t *testing.T) {
	p := newEndToEnd(t, reportAfterScan)

	records, summary := p.Run([]string{"scan1.nc"})
	require.Len(t, records, 1)
	assert.Equal(t, 1, summary.ScansProcessed)
	assert.Equal(t, 0, summary.ScansFailed)
	assert.Equal(t, 1, summary.CellsDetected)
	assert.Equal(t, 1, summary.CellsEmitted)

	r := records[0]
	assert.Equal(t, 1, r.Severe5km)
	assert.Equal(t, 1, r.Severe10km)
	assert.Equal(t, 1, r.Severe15km)
	assert.InDelta(t, cellLat, r.Lat, 1e-9)
	assert.InDelta(t, cellLon, r.Lon, 1e-9)
	assert.InDelta(t, 50.0, r.Area, 1e-9)
}

func TestRun_ReportBeforeScanFlagsMinusOne(t *testing.T) {
	p := newEndToEnd(t, reportBeforeScan)

	records, _ := p.Run([]string{"scan1.nc"})
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, -1, r.Severe5km)
	assert.Equal(t, -1, r.Severe10km)
	assert.Equal(t, -1, r.Severe15km)
}

func TestRun_NoNearbyReportFlagsZero(t *testing.T) {
	// The only report on file is hours before the scan, outside both windows.
	p := newEndToEnd(t, reportFarAway)

	records, _ := p.Run([]string{"scan1.nc"})
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, 0, r.Severe5km)
	assert.Equal(t, 0, r.Severe10km)
	assert.Equal(t, 0, r.Severe15km)

	// Attributes still come from the grid window around the centroid.
	assert.Greater(t, r.MaxVIL, 0.0)
	assert.InDelta(t, 12000, r.EchoTop18, 1e-9)
	assert.Zero(t, r.EchoTop50)
}

func TestRun_FailedScanIsSkipped(t *testing.T) {
	p := newEndToEnd(t, reportAfterScan)

	// scan0.nc is not in the builder's map and fails at the grid stage.
	records, summary := p.Run([]string{"scan0.nc", "scan1.nc"})
	require.Len(t, records, 1, "good scan still produces its row")
	assert.Equal(t, 1, summary.ScansProcessed)
	assert.Equal(t, 1, summary.ScansFailed)
}

func TestProcessScan_GridFailureIsTyped(t *testing.T) {
	p := newEndToEnd(t, reportAfterScan)

	result := p.ProcessScan("missing.nc")
	require.Error(t, result.Err)

	var scanErr *pipeline.ScanError
	require.True(t, errors.As(result.Err, &scanErr))
	assert.Equal(t, "grid", scanErr.Stage)
	assert.Equal(t, "missing.nc", result.File)
}

func TestRun_EmptyFileList(t *testing.T) {
	p := newEndToEnd(t, reportAfterScan)

	records, summary := p.Run(nil)
	assert.Empty(t, records)
	assert.Equal(t, 0, summary.ScansProcessed)
	assert.Equal(t, 0, summary.ScansFailed)
}

func TestRun_ElapsedUsesPackageClock(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	p := newEndToEnd(t, reportAfterScan)
	_, summary := p.Run([]string{"scan1.nc"})
	assert.Equal(t, time.Duration(0), summary.Elapsed, "frozen clock yields zero elapsed")
}

// slowBuilder advances the fake clock before delegating, simulating scan
// processing time under a frozen test clock.
type slowBuilder struct {
	fakeBuilder
	clock *clockwork.FakeClock
	delay time.Duration
}

func (b *slowBuilder) BuildFile(path string) (*domain.RadarGrid, error) {
	b.clock.Advance(b.delay)
	return b.fakeBuilder.BuildFile(path)
}

func TestProcessScan_DurationUsesPackageClock(t *testing.T) {
	fake := clockwork.NewFakeClock()
	domain.SetClock(fake)
	t.Cleanup(func() { domain.SetClock(nil) })

	planar, err := geo.NewPlanar(testRadarLat, testRadarLon)
	require.NoError(t, err)
	reports, err := reportindex.Load(writeReportCSV(t, reportAfterScan), planar, slog.Default())
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	matcher := pipeline.NewMatcher(metroBoundary(), planar, reports,
		testMatchParams(), slog.Default(), metrics)

	builder := &slowBuilder{
		fakeBuilder: fakeBuilder{grids: map[string]*domain.RadarGrid{"scan1.nc": matchGrid()}},
		clock:       fake,
		delay:       3 * time.Second,
	}
	tracker := &fakeTracker{cells: []domain.StormCell{qualifyingCell()}}
	p := pipeline.New(builder, tracker, matcher, slog.Default(), metrics)

	result := p.ProcessScan("scan1.nc")
	require.NoError(t, result.Err)

	// The histogram's single observation is exactly the clock advance.
	var m dto.Metric
	require.NoError(t, metrics.ScanDuration.Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 3.0, m.GetHistogram().GetSampleSum())
}
