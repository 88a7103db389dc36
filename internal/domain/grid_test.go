package domain_test

import (
	"testing"

	"github.com/ctessum/sparse"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
)

func testGrid(nz, ny, nx int) *domain.RadarGrid {
	refl := sparse.ZerosDense(nz, ny, nx)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				refl.Set(float64(k*10000+j*100+i), k, j, i)
			}
		}
	}
	return &domain.RadarGrid{
		Refl:     refl,
		Dz:       500,
		Dy:       500,
		Dx:       500,
		TopLevel: float64(nz-1) * 500,
		Extent:   float64(nx/2) * 500,
	}
}

func TestWindow_Interior(t *testing.T) {
	g := testGrid(3, 9, 9)
	w := g.Window(4, 4, 2)

	assert.Equal(t, []int{3, 5, 5}, w.Shape)
	// Center of the window is the original (4, 4) pixel at every level.
	assert.Equal(t, 404.0, w.Get(0, 2, 2))
	assert.Equal(t, 20404.0, w.Get(2, 2, 2))
	// Corner maps back to (2, 2).
	assert.Equal(t, 202.0, w.Get(0, 0, 0))
}

func TestWindow_ClampedAtEdges(t *testing.T) {
	g := testGrid(2, 9, 9)

	w := g.Window(0, 0, 2)
	assert.Equal(t, []int{2, 3, 3}, w.Shape)
	assert.Equal(t, 0.0, w.Get(0, 0, 0))

	w = g.Window(8, 8, 2)
	assert.Equal(t, []int{2, 3, 3}, w.Shape)
	assert.Equal(t, 808.0, w.Get(0, 2, 2))
}

func TestLevelHeight(t *testing.T) {
	g := testGrid(25, 3, 3)
	assert.Equal(t, 0.0, g.LevelHeight(0))
	assert.Equal(t, 500.0, g.LevelHeight(1))
	assert.Equal(t, 12000.0, g.LevelHeight(24))
	assert.Equal(t, 25, g.Levels())
}
