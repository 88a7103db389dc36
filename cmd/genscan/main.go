// Command genscan generates synthetic radar volume scans and a matching storm
// report CSV for local runs and test fixtures. It uses the real scan writer
// and coordinate transforms so fixtures match pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genscan \
//	  -scan-dir data/fixtures/scans \
//	  -report-out data/fixtures/reports.csv \
//	  -scans 6
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ctessum/sparse"

	"github.com/couchcryptid/storm-cell-etl/internal/adapter/scanfile"
	"github.com/couchcryptid/storm-cell-etl/internal/geo"
)

var startTime = time.Date(2021, time.July, 9, 22, 30, 0, 0, time.UTC)

// Synthetic storm track: starts northwest of the radar and drifts east at
// roughly 40 km/h.
type storm struct {
	x, y     float64 // planar m at start
	dx, dy   float64 // drift per scan, m
	peak     float64 // dBZ at core
	sigma    float64 // horizontal extent, m
	reported bool    // whether a ground report accompanies it
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	scanDir := flag.String("scan-dir", "", "output directory for NetCDF scan files")
	reportOut := flag.String("report-out", "", "output path for the report CSV")
	scans := flag.Int("scans", 6, "number of volume scans to generate")
	radarLat := flag.Float64("radar-lat", 33.289, "radar site latitude")
	radarLon := flag.Float64("radar-lon", -111.670, "radar site longitude")
	flag.Parse()

	if *scanDir == "" || *reportOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -scan-dir, -report-out")
	}

	if err := os.MkdirAll(*scanDir, 0o755); err != nil {
		return err
	}

	planar, err := geo.NewPlanar(*radarLat, *radarLon)
	if err != nil {
		return err
	}

	storms := []storm{
		{x: -45000, y: 20000, dx: 4000, dy: -500, peak: 55, sigma: 3000, reported: true},
		{x: 35000, y: -25000, dx: 3500, dy: 1000, peak: 44, sigma: 2000},
	}

	var reportRows [][]string
	for n := 0; n < *scans; n++ {
		scanTime := startTime.Add(time.Duration(n) * 5 * time.Minute)
		v := makeVolume(*radarLat, *radarLon, scanTime, storms, n)

		name := fmt.Sprintf("KIWA_%s.nc", scanTime.Format("20060102_150405"))
		if err := scanfile.Write(filepath.Join(*scanDir, name), v); err != nil {
			return fmt.Errorf("writing scan %s: %w", name, err)
		}
		log.Printf("wrote %s", name)

		for _, s := range storms {
			if !s.reported {
				continue
			}
			row, err := reportRow(planar, s, n, scanTime)
			if err != nil {
				return err
			}
			reportRows = append(reportRows, row)
		}
	}

	if err := writeReports(*reportOut, reportRows); err != nil {
		return err
	}
	log.Printf("wrote %d reports: %s", len(reportRows), *reportOut)
	return nil
}

// makeVolume synthesizes one polar volume: 4 elevation sweeps of 360 rays,
// 150 gates at 500 m spacing, with gaussian reflectivity cores at each
// storm's current position.
func makeVolume(lat, lon float64, scanTime time.Time, storms []storm, scanIdx int) *scanfile.Volume {
	const (
		sweeps      = 4
		raysPer     = 360
		gates       = 150
		gateSpacing = 500.0
	)
	elevAngles := []float64{0.5, 1.5, 2.4, 3.4}

	nray := sweeps * raysPer
	v := &scanfile.Volume{
		SiteID:    "KIWA",
		Lat:       lat,
		Lon:       lon,
		Time:      scanTime,
		Azimuth:   make([]float64, nray),
		Elevation: make([]float64, nray),
		GateRange: make([]float64, gates),
		Refl:      sparse.ZerosDense(nray, gates),
	}
	for g := 0; g < gates; g++ {
		v.GateRange[g] = float64(g+1) * gateSpacing
	}

	for sw := 0; sw < sweeps; sw++ {
		for a := 0; a < raysPer; a++ {
			ri := sw*raysPer + a
			v.Azimuth[ri] = float64(a)
			v.Elevation[ri] = elevAngles[sw]

			az := float64(a) * math.Pi / 180
			el := elevAngles[sw] * math.Pi / 180
			for g := 0; g < gates; g++ {
				r := v.GateRange[g]
				gx := r * math.Cos(el) * math.Sin(az)
				gy := r * math.Cos(el) * math.Cos(az)
				gh := r * math.Sin(el)

				dbz := math.NaN()
				for _, s := range storms {
					cx := s.x + float64(scanIdx)*s.dx
					cy := s.y + float64(scanIdx)*s.dy
					d2 := (gx-cx)*(gx-cx) + (gy-cy)*(gy-cy)
					// Core weakens with height above 6 km.
					peak := s.peak - math.Max(0, gh-6000)/500
					val := peak * math.Exp(-d2/(2*s.sigma*s.sigma))
					if val >= 5 && (math.IsNaN(dbz) || val > dbz) {
						dbz = val
					}
				}
				v.Refl.Set(dbz, ri, g)
			}
		}
	}
	return v
}

// reportRow places a ground report at the storm core ten minutes after the
// scan, encoded the way the NCEI-style source table encodes it: local
// MM/DD/YYYY date and HHMM integer time in Arizona time (UTC-7, no DST).
func reportRow(planar *geo.Planar, s storm, scanIdx int, scanTime time.Time) ([]string, error) {
	cx := s.x + float64(scanIdx)*s.dx
	cy := s.y + float64(scanIdx)*s.dy
	lon, lat, err := planar.Inverse(cx, cy)
	if err != nil {
		return nil, err
	}

	local := scanTime.Add(10 * time.Minute).In(time.FixedZone("MST", -7*60*60))
	return []string{
		local.Format("01/02/2006"),
		strconv.Itoa(local.Hour()*100 + local.Minute()),
		"MST-7",
		strconv.FormatFloat(lat, 'f', 4, 64),
		strconv.FormatFloat(lon, 'f', 4, 64),
		"1.00",
	}, nil
}

func writeReports(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"BEGIN_DATE", "BEGIN_TIME", "TZ", "LAT", "LON", "MAGNITUDE"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
