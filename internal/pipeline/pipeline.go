// Package pipeline orchestrates the per-scan grid-track-match loop and
// accumulates the output dataset.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/observability"
)

// GridBuilder converts one scan file into a reflectivity grid.
type GridBuilder interface {
	BuildFile(path string) (*domain.RadarGrid, error)
}

// CellTracker identifies the storm cells in one grid.
type CellTracker interface {
	Track(grid *domain.RadarGrid) ([]domain.StormCell, error)
}

// Assembler filters one cell and assembles its output record.
type Assembler interface {
	Assemble(grid *domain.RadarGrid, cell domain.StormCell) (domain.OutputRecord, bool, error)
}

// ScanError reports which stage of the per-scan pipeline failed.
type ScanError struct {
	Stage string // "grid", "track", or "assemble"
	Err   error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanResult is the typed outcome of one scan: either the assembled rows or
// the failure that aborted the scan.
type ScanResult struct {
	File string
	Rows []domain.OutputRecord
	Err  error
}

// Summary aggregates a full run.
type Summary struct {
	ScansProcessed int
	ScansFailed    int
	CellsDetected  int
	CellsEmitted   int
	Elapsed        time.Duration
}

// Pipeline runs the scan loop. Strictly sequential: cell tracking carries
// state between consecutive scans and the output table is append-only.
type Pipeline struct {
	builder   GridBuilder
	tracker   CellTracker
	assembler Assembler
	logger    *slog.Logger
	metrics   *observability.Metrics

	// cellsDetected accumulates across scans for the run summary.
	cellsDetected int
}

// New creates a Pipeline.
func New(builder GridBuilder, tracker CellTracker, assembler Assembler,
	logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		builder:   builder,
		tracker:   tracker,
		assembler: assembler,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run processes every scan file in order. A failure in any per-scan stage
// skips that scan and continues; there are no retries. Returns the
// accumulated records and a run summary.
func (p *Pipeline) Run(files []string) ([]domain.OutputRecord, Summary) {
	start := domain.Now()
	var records []domain.OutputRecord
	summary := Summary{}

	for _, file := range files {
		result := p.ProcessScan(file)
		if result.Err != nil {
			summary.ScansFailed++
			p.metrics.ScansFailed.Inc()
			p.logger.Warn("scan skipped", "file", result.File, "error", result.Err)
			continue
		}
		summary.ScansProcessed++
		summary.CellsEmitted += len(result.Rows)
		p.metrics.ScansProcessed.Inc()
		records = append(records, result.Rows...)
	}

	summary.CellsDetected = p.cellsDetected
	summary.Elapsed = domain.Now().Sub(start)
	return records, summary
}

// ProcessScan runs the full per-scan body: grid, track, then filter and
// assemble each cell. Any stage error aborts this scan only.
func (p *Pipeline) ProcessScan(file string) ScanResult {
	start := domain.Now()

	grid, err := p.builder.BuildFile(file)
	if err != nil {
		return ScanResult{File: file, Err: &ScanError{Stage: "grid", Err: err}}
	}

	cells, err := p.tracker.Track(grid)
	if err != nil {
		return ScanResult{File: file, Err: &ScanError{Stage: "track", Err: err}}
	}
	p.cellsDetected += len(cells)
	p.metrics.CellsDetected.Add(float64(len(cells)))

	rows := make([]domain.OutputRecord, 0, len(cells))
	for _, cell := range cells {
		record, ok, err := p.assembler.Assemble(grid, cell)
		if err != nil {
			return ScanResult{File: file, Err: &ScanError{Stage: "assemble", Err: err}}
		}
		if ok {
			rows = append(rows, record)
		}
	}

	p.metrics.ScanDuration.Observe(domain.Now().Sub(start).Seconds())
	p.logger.Info("scan processed",
		"file", file,
		"scan_time", grid.ScanTime,
		"cells", len(cells),
		"rows", len(rows),
	)
	return ScanResult{File: file, Rows: rows}
}
