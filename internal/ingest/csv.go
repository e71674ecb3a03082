// Package ingest turns CSV files into rows of classified cells: it
// splits each file into raw string cells with encoding/csv, then hands
// them to rules.ClassifyCell for int/float/text coercion, keeping file
// format concerns separate from the rule evaluator.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/anthropics/tinyvalid/internal/rules"
)

// IngestionError reports that a file could not be read or its rows could
// not be split into cells. It is surfaced to the caller, never raised from
// the rules core.
type IngestionError struct {
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// ReadFile loads a CSV file with no header row, classifying each cell via
// rules.ClassifyCell so every row is ready for rules.EvaluateRuleset.
// Ragged rows (varying field counts) are accepted; encoding/csv's
// FieldsPerRecord is disabled since rulesets carry no column-count
// schema to check against.
func ReadFile(path string) ([]rules.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IngestionError{Path: path, Err: err}
	}
	defer f.Close()
	return Read(f, path)
}

// Read classifies CSV records from r into rows. path is used only for
// error messages.
func Read(r io.Reader, path string) ([]rules.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []rules.Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &IngestionError{Path: path, Err: err}
		}
		out = append(out, RowFromCells(record))
	}
	return out, nil
}

// RowFromCells classifies an already-split slice of raw cells into a Row,
// 1-indexed as the DSL's column references expect.
func RowFromCells(cells []string) rules.Row {
	row := make(rules.Row, len(cells))
	for i, raw := range cells {
		row[i+1] = rules.ClassifyCell(raw)
	}
	return row
}
