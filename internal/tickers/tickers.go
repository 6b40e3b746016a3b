package tickers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerValue is the column title used by index constituent exports.
const headerValue = "SYMBOL"

// Normalize trims and upper-cases tickers, drops blanks and the SYMBOL
// header, and removes duplicates keeping the first occurrence.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || t == headerValue {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Limit returns the first n tickers; n <= 0 returns all of them.
func Limit(list []string, n int) []string {
	if n <= 0 || n >= len(list) {
		return list
	}
	return list[:n]
}

// LoadFile reads the first column of an .xlsx, .csv or .txt file and
// returns the normalized universe.
func LoadFile(path string) ([]string, error) {
	var raw []string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		raw, err = loadXLSX(path)
	case ".csv", ".txt", "":
		raw, err = loadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported ticker file %q", path)
	}
	if err != nil {
		return nil, err
	}
	list := Normalize(raw)
	if len(list) == 0 {
		return nil, fmt.Errorf("no tickers in %s", path)
	}
	return list, nil
}

func loadXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			out = append(out, row[0])
		}
	}
	return out, nil
}

func loadCSV(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticker file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	r.TrimLeadingSpace = true

	var out []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse ticker file: %w", err)
		}
		if len(rec) > 0 {
			out = append(out, rec[0])
		}
	}
	return out, nil
}
