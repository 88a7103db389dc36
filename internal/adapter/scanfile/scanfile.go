// Package scanfile reads and writes radar volume scans as NetCDF classic
// files. One file holds one volume: per-ray azimuth and elevation angles,
// per-gate ranges, and a ray×gate reflectivity field.
package scanfile

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// maintenanceSuffix marks maintenance-mode scans, which carry no weather data
// and are excluded from processing.
const maintenanceSuffix = "_MDM.nc"

// fillValue marks invalid gates in the reflectivity variable on disk.
// In memory they become NaN.
const fillValue = -9999.0

// Volume is one raw radar volume scan in polar coordinates.
type Volume struct {
	SiteID   string
	Lat, Lon float64
	Time     time.Time

	// Azimuth and Elevation are per-ray pointing angles in degrees.
	Azimuth, Elevation []float64

	// GateRange is the slant range of each gate in meters, shared by all rays.
	GateRange []float64

	// Refl has shape [rays][gates] in dBZ; NaN marks invalid gates.
	Refl *sparse.DenseArray
}

// List returns the scan files in dir in lexicographic order, excluding
// maintenance-mode files. Directory listing order is not guaranteed by the
// OS; sorting makes iteration deterministic and chronological by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanfile: listing %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".nc") || strings.HasSuffix(name, maintenanceSuffix) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)
	return files, nil
}

// Read loads one volume scan from a NetCDF file.
func Read(path string) (*Volume, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scanfile: opening %s: %w", path, err)
	}
	defer fh.Close()

	f, err := cdf.Open(fh)
	if err != nil {
		return nil, fmt.Errorf("scanfile: reading %s: %w", path, err)
	}

	v := &Volume{}
	if v.SiteID, err = stringAttr(f, "site_id"); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}
	if v.Lat, err = floatAttr(f, "radar_latitude"); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}
	if v.Lon, err = floatAttr(f, "radar_longitude"); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}

	ts, err := stringAttr(f, "time_coverage_start")
	if err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}
	if v.Time, err = time.Parse(time.RFC3339, ts); err != nil {
		return nil, fmt.Errorf("scanfile: %s: parsing time_coverage_start %q: %w", path, ts, err)
	}

	if v.Azimuth, err = readVector(f, "azimuth"); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}
	if v.Elevation, err = readVector(f, "elevation"); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}
	if v.GateRange, err = readVector(f, "gate_range"); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}

	dims := f.Header.Lengths("reflectivity")
	if len(dims) != 2 {
		return nil, fmt.Errorf("scanfile: %s: reflectivity has %d dims, want 2", path, len(dims))
	}
	raw, err := readVector(f, "reflectivity")
	if err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}

	v.Refl = sparse.ZerosDense(dims...)
	for i, val := range raw {
		if val == fillValue {
			val = math.NaN()
		}
		v.Refl.Elements[i] = val
	}

	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("scanfile: %s: %w", path, err)
	}
	return v, nil
}

// Write stores a volume scan as a NetCDF file. Used by the fixture generator
// and by reader tests.
func Write(path string, v *Volume) error {
	if err := v.validate(); err != nil {
		return fmt.Errorf("scanfile: writing %s: %w", path, err)
	}
	nray, ngate := v.Refl.Shape[0], v.Refl.Shape[1]

	h := cdf.NewHeader([]string{"ray", "gate"}, []int{nray, ngate})
	h.AddAttribute("", "site_id", v.SiteID)
	h.AddAttribute("", "radar_latitude", []float64{v.Lat})
	h.AddAttribute("", "radar_longitude", []float64{v.Lon})
	h.AddAttribute("", "time_coverage_start", v.Time.UTC().Format(time.RFC3339))

	h.AddVariable("azimuth", []string{"ray"}, []float32{0})
	h.AddAttribute("azimuth", "units", "degrees")
	h.AddVariable("elevation", []string{"ray"}, []float32{0})
	h.AddAttribute("elevation", "units", "degrees")
	h.AddVariable("gate_range", []string{"gate"}, []float32{0})
	h.AddAttribute("gate_range", "units", "meters")
	h.AddVariable("reflectivity", []string{"ray", "gate"}, []float32{0})
	h.AddAttribute("reflectivity", "units", "dBZ")
	h.AddAttribute("reflectivity", "_FillValue", []float32{fillValue})
	h.Define()

	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scanfile: creating %s: %w", path, err)
	}
	defer fh.Close()

	f, err := cdf.Create(fh, h)
	if err != nil {
		return fmt.Errorf("scanfile: writing header to %s: %w", path, err)
	}

	refl := make([]float64, len(v.Refl.Elements))
	for i, val := range v.Refl.Elements {
		if math.IsNaN(val) {
			val = fillValue
		}
		refl[i] = val
	}

	for _, w := range []struct {
		name string
		data []float64
	}{
		{"azimuth", v.Azimuth},
		{"elevation", v.Elevation},
		{"gate_range", v.GateRange},
		{"reflectivity", refl},
	} {
		if err := writeVector(f, w.name, w.data); err != nil {
			return fmt.Errorf("scanfile: writing %s to %s: %w", w.name, path, err)
		}
	}

	if err := cdf.UpdateNumRecs(fh); err != nil {
		return fmt.Errorf("scanfile: finalizing %s: %w", path, err)
	}
	return nil
}

func (v *Volume) validate() error {
	if v.Refl == nil || len(v.Refl.Shape) != 2 {
		return fmt.Errorf("reflectivity must be a ray×gate array")
	}
	nray, ngate := v.Refl.Shape[0], v.Refl.Shape[1]
	if nray == 0 || ngate == 0 {
		return fmt.Errorf("empty volume: %d rays, %d gates", nray, ngate)
	}
	if len(v.Azimuth) != nray || len(v.Elevation) != nray {
		return fmt.Errorf("azimuth/elevation length %d/%d does not match %d rays",
			len(v.Azimuth), len(v.Elevation), nray)
	}
	if len(v.GateRange) != ngate {
		return fmt.Errorf("gate_range length %d does not match %d gates", len(v.GateRange), ngate)
	}
	return nil
}

func stringAttr(f *cdf.File, name string) (string, error) {
	a := f.Header.GetAttribute("", name)
	s, ok := a.(string)
	if !ok {
		return "", fmt.Errorf("global attribute %s missing or not a string", name)
	}
	return s, nil
}

func floatAttr(f *cdf.File, name string) (float64, error) {
	a := f.Header.GetAttribute("", name)
	vals, ok := a.([]float64)
	if !ok || len(vals) == 0 {
		return 0, fmt.Errorf("global attribute %s missing or not a float", name)
	}
	return vals[0], nil
}

func readVector(f *cdf.File, name string) ([]float64, error) {
	dims := f.Header.Lengths(name)
	if len(dims) == 0 {
		return nil, fmt.Errorf("variable %s not found", name)
	}
	n := 1
	for _, d := range dims {
		n *= d
	}

	r := f.Reader(name, nil, nil)
	buf := make([]float32, n)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %w", name, err)
	}

	out := make([]float64, n)
	for i, val := range buf {
		out[i] = float64(val)
	}
	return out, nil
}

func writeVector(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))

	buf := make([]float32, len(data))
	for i, val := range data {
		buf[i] = float32(val)
	}

	w := f.Writer(name, start, end)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	return nil
}
