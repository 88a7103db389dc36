// Command etl builds the storm cell dataset for one metro area. It iterates a
// directory of radar volume scans, grids each scan, identifies storm cells,
// matches them against ground storm reports, and writes one CSV row per
// qualifying cell.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/storm-cell-etl/internal/adapter/dataset"
	"github.com/couchcryptid/storm-cell-etl/internal/adapter/scanfile"
	"github.com/couchcryptid/storm-cell-etl/internal/config"
	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
	"github.com/couchcryptid/storm-cell-etl/internal/gridder"
	"github.com/couchcryptid/storm-cell-etl/internal/observability"
	"github.com/couchcryptid/storm-cell-etl/internal/pipeline"
	"github.com/couchcryptid/storm-cell-etl/internal/reportindex"
	"github.com/couchcryptid/storm-cell-etl/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	planar, err := geo.NewPlanar(cfg.RadarLat, cfg.RadarLon)
	if err != nil {
		return err
	}

	// Boundary and report files are required inputs; missing either is fatal
	// before the scan loop starts.
	boundary, err := geo.LoadBoundary(cfg.BoundaryFile)
	if err != nil {
		return err
	}
	reports, err := reportindex.Load(cfg.ReportFile, planar, logger)
	if err != nil {
		return err
	}
	metrics.ReportsLoaded.Set(float64(reports.Len()))

	files, err := scanfile.List(cfg.ScanDir)
	if err != nil {
		return err
	}
	logger.Info("starting run", "scans", len(files), "scan_dir", cfg.ScanDir)

	builder := gridder.New(gridder.Params{
		Extent:    cfg.GridExtent,
		Top:       cfg.GridTop,
		Cells:     cfg.GridCells,
		Levels:    cfg.GridLevels,
		Scheme:    cfg.InterpScheme,
		MinRadius: cfg.ROIMinRadius,
		XYFactor:  cfg.ROIXYFactor,
		ZFactor:   cfg.ROIZFactor,
	}, logger)

	cells := tracker.New(cfg.CellThreshold, cfg.CellMinPixels, planar, logger)

	matcher := pipeline.NewMatcher(boundary, planar, reports, pipeline.MatchParams{
		ExclusionRadius:   cfg.ExclusionRadius,
		AreaCeiling:       cfg.AreaCeiling,
		Radii:             cfg.MatchRadii,
		Forward:           domain.ForwardWindow(cfg.ForwardWindow),
		Backward:          domain.BackwardWindow(cfg.BackwardWindow),
		EchoTopThresholds: cfg.EchoTopThresholds,
	}, logger, metrics)

	p := pipeline.New(builder, cells, matcher, logger, metrics)
	records, summary := p.Run(files)

	if err := dataset.Write(cfg.OutputFile, records); err != nil {
		return err
	}

	logger.Info("run complete",
		"output", cfg.OutputFile,
		"rows", len(records),
		"scans_processed", summary.ScansProcessed,
		"scans_failed", summary.ScansFailed,
		"cells_detected", summary.CellsDetected,
		"elapsed", summary.Elapsed,
	)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL); err != nil {
			logger.Warn("metrics push failed", "error", err)
		}
	}
	return nil
}
