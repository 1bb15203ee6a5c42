// Package ingest reads NAMASTE CSV exports and watches dataset files for
// changes.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Required CSV columns. State is optional and feeds morbidity analytics.
const (
	ColumnCode       = "Code"
	ColumnDisease    = "Disease"
	ColumnDefinition = "Short_Definition"
	ColumnState      = "State"
)

var ErrMissingColumns = errors.New("csv missing required columns")

// RawRecord is one row of a NAMASTE CSV export.
type RawRecord struct {
	Code            string
	Disease         string
	ShortDefinition string
	State           string
}

// ParseCSV reads a NAMASTE export. The header row must contain the Code,
// Disease and Short_Definition columns; rows with an empty Code are
// skipped.
func ParseCSV(r io.Reader) ([]RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{ColumnCode, ColumnDisease, ColumnDefinition} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumns, required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var records []RawRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row: %w", err)
		}
		code := field(row, ColumnCode)
		if code == "" {
			continue
		}
		records = append(records, RawRecord{
			Code:            code,
			Disease:         field(row, ColumnDisease),
			ShortDefinition: field(row, ColumnDefinition),
			State:           field(row, ColumnState),
		})
	}
	return records, nil
}

// ParseCSVFile reads a NAMASTE export from disk.
func ParseCSVFile(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()
	return ParseCSV(f)
}
