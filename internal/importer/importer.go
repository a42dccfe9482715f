// Package importer loads booking spreadsheets into house calendars.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/evcraddock/house-calendar/internal/feedsync"
	"github.com/evcraddock/house-calendar/internal/normalize"
)

// Merger applies normalized events to house calendars.
type Merger interface {
	Merge(ctx context.Context, events []normalize.BookingEvent) *feedsync.Summary
}

// Importer reads .xlsx workbooks. The first sheet's first row holds the
// column labels.
type Importer struct {
	merger Merger
}

// New creates an importer.
func New(m Merger) *Importer {
	return &Importer{merger: m}
}

// Result reports an import.
type Result struct {
	Rows      int                     `json:"rows"`
	Discarded []*normalize.ParseError `json:"discarded"`
	Skipped   []*normalize.ParseError `json:"skippedDays"`
	Summary   *feedsync.Summary       `json:"summary"`
}

// ImportFile imports the workbook at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (_ *Result, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, closeErr)
		}
	}()
	return im.Import(ctx, f)
}

// Import reads a workbook and merges its rows. Dates pinned by an
// administrator are skipped exactly as in a feed sync.
func (im *Importer) Import(ctx context.Context, r io.Reader) (*Result, error) {
	rows, lines, err := ReadRows(r)
	if err != nil {
		return nil, err
	}

	res := normalize.Rows(rows)
	// Report sheet line numbers instead of row indexes.
	for _, pe := range slices.Concat(res.Discarded, res.SkippedDays) {
		pe.Row = lines[pe.Row]
	}

	sum := im.merger.Merge(ctx, res.Events)
	sum.RowsFetched = len(rows)
	sum.RowsDiscarded = len(res.Discarded)
	sum.DaysSkipped = len(res.SkippedDays)

	return &Result{Rows: len(rows), Discarded: res.Discarded, Skipped: res.SkippedDays, Summary: sum}, nil
}

// ReadRows returns the data rows of the first sheet keyed by header label,
// with the 1-based sheet line of each. Blank rows are dropped.
func ReadRows(r io.Reader) (_ []normalize.Row, _ []int, err error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading workbook: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	cells, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if len(cells) == 0 {
		return nil, nil, nil
	}

	header := make([]string, len(cells[0]))
	for i, h := range cells[0] {
		header[i] = strings.TrimSpace(h)
	}

	var (
		rows  []normalize.Row
		lines []int
	)
	for n, line := range cells[1:] {
		row := normalize.Row{}
		for i, v := range line {
			if i >= len(header) || header[i] == "" {
				continue
			}
			if v = strings.TrimSpace(v); v != "" {
				row[header[i]] = v
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
			lines = append(lines, n+2)
		}
	}
	return rows, lines, nil
}
