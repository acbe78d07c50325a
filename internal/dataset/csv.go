package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyDataset  = errors.New("dataset has no header row")
	ErrMissingColumn = errors.New("dataset is missing a required column")
)

// LoadCSV reads a dataset from a CSV file on disk.
func LoadCSV(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return ds, nil
}

// ReadCSV parses a dataset from r. The header is matched case-insensitively;
// extra columns are ignored and short rows are padded with empty cells. A bare
// quote inside an unquoted cell is kept as a literal character.
func ReadCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		cell := func(col int) string {
			if col >= len(row) {
				return ""
			}
			return cleanCell(row[col])
		}
		records = append(records, Record{
			Symptom:        cell(idx[0]),
			Disorder:       cell(idx[1]),
			Medications:    cell(idx[2]),
			Therapies:      cell(idx[3]),
			AssistiveTools: cell(idx[4]),
		})
	}

	return New(records), nil
}

// resolveColumns returns the header position of each entry in RequiredColumns.
func resolveColumns(header []string) ([]int, error) {
	idx := make([]int, len(RequiredColumns))
	for i, want := range RequiredColumns {
		idx[i] = findColumn(header, want)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, want)
		}
	}
	return idx, nil
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		if strings.EqualFold(col, name) {
			return i
		}
	}
	return -1
}
