package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the three required path variables so Load can succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SCAN_DIR", "/data/scans")
	t.Setenv("REPORT_FILE", "/data/reports.csv")
	t.Setenv("BOUNDARY_FILE", "/data/metro.shp")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/storm_cells.csv", cfg.OutputFile)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "barnes2", cfg.InterpScheme)
	assert.InEpsilon(t, 33.289, cfg.RadarLat, 1e-9)
	assert.InEpsilon(t, -111.670, cfg.RadarLon, 1e-9)
	assert.InEpsilon(t, 75000.0, cfg.GridExtent, 1e-9)
	assert.InEpsilon(t, 12000.0, cfg.GridTop, 1e-9)
	assert.Equal(t, 301, cfg.GridCells)
	assert.Equal(t, 25, cfg.GridLevels)
	assert.InEpsilon(t, 32.0, cfg.CellThreshold, 1e-9)
	assert.Equal(t, 8, cfg.CellMinPixels)
	assert.InEpsilon(t, 100.0, cfg.AreaCeiling, 1e-9)
	assert.InEpsilon(t, 30000.0, cfg.ExclusionRadius, 1e-9)
	assert.Equal(t, [3]float64{5000, 10000, 15000}, cfg.MatchRadii)
	assert.Equal(t, 20*time.Minute, cfg.ForwardWindow)
	assert.Equal(t, 15*time.Minute, cfg.BackwardWindow)
	assert.Equal(t, [3]float64{18.5, 50, 60}, cfg.EchoTopThresholds)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("OUTPUT_FILE", "out/phx.csv")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("INTERP_SCHEME", "cressman")
	t.Setenv("GRID_CELLS", "101")
	t.Setenv("GRID_LEVELS", "13")
	t.Setenv("AREA_CEILING_KM2", "150")
	t.Setenv("FORWARD_WINDOW", "30m")
	t.Setenv("BACKWARD_WINDOW", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "out/phx.csv", cfg.OutputFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "cressman", cfg.InterpScheme)
	assert.Equal(t, 101, cfg.GridCells)
	assert.Equal(t, 13, cfg.GridLevels)
	assert.InEpsilon(t, 150.0, cfg.AreaCeiling, 1e-9)
	assert.Equal(t, 30*time.Minute, cfg.ForwardWindow)
	assert.Equal(t, 10*time.Minute, cfg.BackwardWindow)
}

func TestLoad_MissingScanDir(t *testing.T) {
	t.Setenv("REPORT_FILE", "/data/reports.csv")
	t.Setenv("BOUNDARY_FILE", "/data/metro.shp")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCAN_DIR")
}

func TestLoad_MissingReportFile(t *testing.T) {
	t.Setenv("SCAN_DIR", "/data/scans")
	t.Setenv("BOUNDARY_FILE", "/data/metro.shp")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_FILE")
}

func TestLoad_MissingBoundaryFile(t *testing.T) {
	t.Setenv("SCAN_DIR", "/data/scans")
	t.Setenv("REPORT_FILE", "/data/reports.csv")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOUNDARY_FILE")
}

func TestLoad_InvalidInterpScheme(t *testing.T) {
	setRequired(t)
	t.Setenv("INTERP_SCHEME", "nearest")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERP_SCHEME")
}

func TestLoad_InvalidFloat(t *testing.T) {
	setRequired(t)
	t.Setenv("RADAR_LAT", "not-a-number")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RADAR_LAT")
}

func TestLoad_InvalidWindow(t *testing.T) {
	setRequired(t)
	t.Setenv("FORWARD_WINDOW", "-5m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FORWARD_WINDOW")
}

func TestLoad_TooFewGridLevels(t *testing.T) {
	setRequired(t)
	t.Setenv("GRID_LEVELS", "1")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GRID_LEVELS")
}
