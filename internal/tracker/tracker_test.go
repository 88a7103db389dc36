package tracker_test

import (
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
	"github.com/couchcryptid/storm-cell-etl/internal/tracker"
)

func emptyGrid(t *testing.T) *domain.RadarGrid {
	t.Helper()
	refl := sparse.ZerosDense(3, 21, 21)
	for i := range refl.Elements {
		refl.Elements[i] = math.NaN()
	}
	return &domain.RadarGrid{
		Refl:      refl,
		Dz:        1000,
		Dy:        1000,
		Dx:        1000,
		TopLevel:  2000,
		Extent:    10000,
		OriginLat: 33.289,
		OriginLon: -111.670,
		SiteID:    "KIWA",
		ScanTime:  time.Date(2021, time.July, 9, 22, 41, 0, 0, time.UTC),
	}
}

// addBlob paints a square region with uniform reflectivity at levels 0 and 1.
func addBlob(g *domain.RadarGrid, x0, y0, size int, dbz float64) {
	for j := y0; j < y0+size; j++ {
		for i := x0; i < x0+size; i++ {
			g.Refl.Set(dbz, 0, j, i)
			g.Refl.Set(dbz-5, 1, j, i)
		}
	}
}

func newTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	planar, err := geo.NewPlanar(33.289, -111.670)
	require.NoError(t, err)
	return tracker.New(40, 8, planar, slog.Default())
}

func TestTrack_FindsCells(t *testing.T) {
	g := emptyGrid(t)
	addBlob(g, 5, 5, 3, 45)   // 9 pixels
	addBlob(g, 14, 14, 4, 50) // 16 pixels

	cells, err := newTracker(t).Track(g)
	require.NoError(t, err)
	require.Len(t, cells, 2)

	a, b := cells[0], cells[1]
	assert.InDelta(t, 9.0, a.Area, 1e-9)
	assert.InDelta(t, 16.0, b.Area, 1e-9)
	assert.InDelta(t, 45.0, a.MaxRefl, 1e-9)
	assert.InDelta(t, 50.0, b.MaxRefl, 1e-9)
	assert.Equal(t, 6, a.GridX)
	assert.Equal(t, 6, a.GridY)
	assert.True(t, a.ScanTime.Equal(g.ScanTime))
	assert.NotEqual(t, a.UID, b.UID)

	// Level 0 holds the maximum, at height 0.
	assert.InDelta(t, 0.0, a.MaxReflAlt, 1e-9)

	// Both blobs meet the 40 dBZ threshold at levels 0 and 1 (45/40, 50/45).
	assert.InDelta(t, 18.0, a.Volume, 1e-9)
	assert.InDelta(t, 32.0, b.Volume, 1e-9)
}

func TestTrack_IgnoresSmallRegions(t *testing.T) {
	g := emptyGrid(t)
	addBlob(g, 5, 5, 2, 55) // 4 pixels, below the 8-pixel minimum

	cells, err := newTracker(t).Track(g)
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestTrack_BelowThresholdIsQuiet(t *testing.T) {
	g := emptyGrid(t)
	addBlob(g, 5, 5, 4, 30) // below the 40 dBZ threshold

	cells, err := newTracker(t).Track(g)
	require.NoError(t, err)
	assert.Empty(t, cells)
}

func TestTrack_UIDStableAcrossScans(t *testing.T) {
	tr := newTracker(t)

	g1 := emptyGrid(t)
	addBlob(g1, 5, 5, 3, 45)
	first, err := tr.Track(g1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Same storm two pixels east on the next scan (2 km displacement).
	g2 := emptyGrid(t)
	g2.ScanTime = g1.ScanTime.Add(5 * time.Minute)
	addBlob(g2, 7, 5, 3, 46)
	// A new distant storm appears in the same scan.
	addBlob(g2, 15, 15, 3, 48)

	second, err := tr.Track(g2)
	require.NoError(t, err)
	require.Len(t, second, 2)

	assert.Equal(t, first[0].UID, second[0].UID, "drifting cell keeps its uid")
	assert.NotEqual(t, first[0].UID, second[1].UID, "new cell gets a fresh uid")
}

func TestTrack_MergedRegionIsOneCell(t *testing.T) {
	g := emptyGrid(t)
	// Two touching squares form one 8-connected region.
	addBlob(g, 5, 5, 3, 45)
	addBlob(g, 8, 5, 3, 50)

	cells, err := newTracker(t).Track(g)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.InDelta(t, 18.0, cells[0].Area, 1e-9)
	assert.InDelta(t, 50.0, cells[0].MaxRefl, 1e-9)
}
