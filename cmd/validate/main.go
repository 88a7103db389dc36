// Command validate performs integrity checks on a generated storm cell
// dataset: column schema, datetime format, severity flag values, flag
// consistency across nested search radii, and physical value ranges.
//
// Usage:
//
//	go run ./cmd/validate -dataset data/storm_cells.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// column indices in the dataset schema.
const (
	colDatetime = iota
	colLat
	colLon
	colArea
	colVol
	colMaxVIL
	colMaxRefl
	colMaxAlt
	colET18
	colET50
	colET60
	colSevere5
	colSevere10
	colSevere15
	numColumns
)

var header = []string{
	"Datetime", "lat", "lon", "area", "vol",
	"max_vil", "max_refl", "max_alt",
	"max_et18", "max_et50", "max_et60",
	"severe_5km", "severe_10km", "severe_15km",
}

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	datasetPath := flag.String("dataset", "", "path to the storm cell dataset CSV")
	flag.Parse()

	if *datasetPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*datasetPath); code != 0 {
		os.Exit(code)
	}
}

func run(path string) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open dataset: %v\n", err)
		return 1
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read dataset: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "FATAL: dataset is empty")
		return 1
	}

	fmt.Println("=== Storm Cell Dataset Validation ===")
	fmt.Println()

	phases := []*phase{
		validateSchema(rows[0]),
		validateDatetimes(rows[1:]),
		validateFlags(rows[1:]),
		validateRadiusConsistency(rows[1:]),
		validateRanges(rows[1:]),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "PASS"
		if !p.passed() {
			status = "FAIL"
			allPassed = false
		}
		fmt.Printf("[%s] %s\n", status, p.name)
		for _, e := range p.errors {
			fmt.Printf("       - %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Printf("\n%d rows validated\n", len(rows)-1)
	return 0
}

func validateSchema(got []string) *phase {
	p := &phase{name: "column schema"}
	if len(got) != numColumns {
		p.errorf("header has %d columns, want %d", len(got), numColumns)
		return p
	}
	for i, want := range header {
		if got[i] != want {
			p.errorf("column %d is %q, want %q", i, got[i], want)
		}
	}
	return p
}

func validateDatetimes(rows [][]string) *phase {
	p := &phase{name: "datetime format"}
	for i, row := range rows {
		if _, err := time.Parse("15:04 UTC 2006-01-02", row[colDatetime]); err != nil {
			p.errorf("row %d: bad datetime %q", i+1, row[colDatetime])
		}
	}
	return p
}

func validateFlags(rows [][]string) *phase {
	p := &phase{name: "severity flags are ternary"}
	for i, row := range rows {
		for _, col := range []int{colSevere5, colSevere10, colSevere15} {
			v, err := strconv.Atoi(row[col])
			if err != nil || v < -1 || v > 1 {
				p.errorf("row %d: flag %q is not in {-1, 0, 1}", i+1, row[col])
			}
		}
	}
	return p
}

// validateRadiusConsistency checks the nesting property: any report counted
// at a smaller radius is also counted at every larger radius. So a forward
// match at 5 km forces forward matches at 10 and 15 km, and a backward-only
// match at 5 km rules out flag 0 at larger radii.
func validateRadiusConsistency(rows [][]string) *phase {
	p := &phase{name: "flags consistent across nested radii"}
	for i, row := range rows {
		f5, _ := strconv.Atoi(row[colSevere5])
		f10, _ := strconv.Atoi(row[colSevere10])
		f15, _ := strconv.Atoi(row[colSevere15])

		check := func(inner, outer int, pair string) {
			switch {
			case inner == 1 && outer != 1:
				p.errorf("row %d: %s: forward match at inner radius but flag %d at outer", i+1, pair, outer)
			case inner == -1 && outer == 0:
				p.errorf("row %d: %s: backward match at inner radius but no match at outer", i+1, pair)
			}
		}
		check(f5, f10, "5km/10km")
		check(f10, f15, "10km/15km")
		check(f5, f15, "5km/15km")
	}
	return p
}

func validateRanges(rows [][]string) *phase {
	p := &phase{name: "physical value ranges"}
	for i, row := range rows {
		area := mustFloat(row[colArea])
		if area <= 0 || area >= 100 {
			p.errorf("row %d: area %g outside (0, 100) km²", i+1, area)
		}
		if vil := mustFloat(row[colMaxVIL]); vil < 0 || vil > 150 {
			p.errorf("row %d: max_vil %g outside [0, 150] kg/m²", i+1, vil)
		}
		if refl := mustFloat(row[colMaxRefl]); refl < 0 || refl > 90 {
			p.errorf("row %d: max_refl %g outside [0, 90] dBZ", i+1, refl)
		}
		lat := mustFloat(row[colLat])
		lon := mustFloat(row[colLon])
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			p.errorf("row %d: coordinates (%g, %g) out of range", i+1, lat, lon)
		}
	}
	return p
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
