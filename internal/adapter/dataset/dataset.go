// Package dataset persists the accumulated output table as a delimited file.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/storm-cell-etl/internal/domain"
)

// Write materializes the records to a CSV file at path, creating parent
// directories as needed. The table is written once, after the run completes;
// it is never appended to or mutated afterwards.
func Write(path string, records []domain.OutputRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("dataset: creating %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(domain.OutputHeader()); err != nil {
		return fmt.Errorf("dataset: writing header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(r.CSVRow()); err != nil {
			return fmt.Errorf("dataset: writing row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("dataset: flushing %s: %w", path, err)
	}
	return nil
}
