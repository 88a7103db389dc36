package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all run settings, populated from environment variables.
// These are the configuration constants of the pipeline; none are CLI flags.
type Config struct {
	// Input and output paths.
	ScanDir      string
	ReportFile   string
	BoundaryFile string
	OutputFile   string

	LogLevel  string
	LogFormat string

	// PushgatewayURL, when set, enables pushing run metrics to a Prometheus
	// Pushgateway after the batch completes.
	PushgatewayURL string

	// Radar site location (defaults: KIWA, Phoenix Mesa).
	RadarLat, RadarLon float64

	// Grid geometry: horizontal half-width and top height in meters, cell
	// counts per axis.
	GridExtent float64
	GridTop    float64
	GridCells  int
	GridLevels int

	// Gridding interpolation: scheme is "barnes2" or "cressman"; the radius
	// of influence is zFactor*height + xyFactor*range + minRadius, in meters.
	InterpScheme string
	ROIMinRadius float64
	ROIXYFactor  float64
	ROIZFactor   float64

	// Cell detection.
	CellThreshold float64 // dBZ on composite reflectivity
	CellMinPixels int

	// Cell filters.
	AreaCeiling     float64 // km²; cells at or above are dropped
	ExclusionRadius float64 // m around the radar (cone of silence)

	// Report matching.
	MatchRadii        [3]float64 // m
	ForwardWindow     time.Duration
	BackwardWindow    time.Duration
	EchoTopThresholds [3]float64 // dBZ
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	cfg := &Config{
		ScanDir:      os.Getenv("SCAN_DIR"),
		ReportFile:   os.Getenv("REPORT_FILE"),
		BoundaryFile: os.Getenv("BOUNDARY_FILE"),
		OutputFile:   envOrDefault("OUTPUT_FILE", "data/storm_cells.csv"),

		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		PushgatewayURL: os.Getenv("METRICS_PUSHGATEWAY_URL"),

		InterpScheme: envOrDefault("INTERP_SCHEME", "barnes2"),
	}

	var err error
	if cfg.RadarLat, err = envFloat("RADAR_LAT", 33.289); err != nil {
		return nil, err
	}
	if cfg.RadarLon, err = envFloat("RADAR_LON", -111.670); err != nil {
		return nil, err
	}
	if cfg.GridExtent, err = envFloat("GRID_EXTENT_M", 75000); err != nil {
		return nil, err
	}
	if cfg.GridTop, err = envFloat("GRID_TOP_M", 12000); err != nil {
		return nil, err
	}
	if cfg.GridCells, err = envInt("GRID_CELLS", 301); err != nil {
		return nil, err
	}
	if cfg.GridLevels, err = envInt("GRID_LEVELS", 25); err != nil {
		return nil, err
	}
	if cfg.ROIMinRadius, err = envFloat("ROI_MIN_RADIUS_M", 500); err != nil {
		return nil, err
	}
	if cfg.ROIXYFactor, err = envFloat("ROI_XY_FACTOR", 0.02); err != nil {
		return nil, err
	}
	if cfg.ROIZFactor, err = envFloat("ROI_Z_FACTOR", 0.01); err != nil {
		return nil, err
	}
	if cfg.CellThreshold, err = envFloat("CELL_THRESHOLD_DBZ", 32); err != nil {
		return nil, err
	}
	if cfg.CellMinPixels, err = envInt("CELL_MIN_PIXELS", 8); err != nil {
		return nil, err
	}
	if cfg.AreaCeiling, err = envFloat("AREA_CEILING_KM2", 100); err != nil {
		return nil, err
	}
	if cfg.ExclusionRadius, err = envFloat("EXCLUSION_RADIUS_M", 30000); err != nil {
		return nil, err
	}
	if cfg.ForwardWindow, err = envDuration("FORWARD_WINDOW", 20*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BackwardWindow, err = envDuration("BACKWARD_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}

	cfg.MatchRadii = [3]float64{5000, 10000, 15000}
	cfg.EchoTopThresholds = [3]float64{18.5, 50, 60}

	if cfg.ScanDir == "" {
		return nil, errors.New("SCAN_DIR is required")
	}
	if cfg.ReportFile == "" {
		return nil, errors.New("REPORT_FILE is required")
	}
	if cfg.BoundaryFile == "" {
		return nil, errors.New("BOUNDARY_FILE is required")
	}
	if cfg.InterpScheme != "barnes2" && cfg.InterpScheme != "cressman" {
		return nil, fmt.Errorf("INTERP_SCHEME must be barnes2 or cressman, got %q", cfg.InterpScheme)
	}
	if cfg.GridCells < 5 || cfg.GridLevels < 2 {
		return nil, errors.New("GRID_CELLS must be >= 5 and GRID_LEVELS >= 2")
	}
	if cfg.ForwardWindow <= 0 || cfg.BackwardWindow <= 0 {
		return nil, errors.New("FORWARD_WINDOW and BACKWARD_WINDOW must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return v, nil
}
