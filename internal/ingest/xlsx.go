package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// parseWorkbook reads the first sheet of an xlsx workbook. Row 1 is the
// header; the remaining rows follow the same admission rules as text once
// padded back to the header width.
func parseWorkbook(content []byte) (table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return table{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return table{}, nil
	}
	return tabulate(rows[0], padRecords(len(rows[0]), rows[1:])), nil
}

// padRecords restores the trailing empty cells GetRows drops, so a row with
// only its first cell filled reads like the delimited "X1," rather than a
// lone field. Rows with no cells at all stay empty and are skipped.
func padRecords(width int, records [][]string) [][]string {
	for i, rec := range records {
		if len(rec) == 0 || len(rec) >= width {
			continue
		}
		padded := make([]string, width)
		copy(padded, rec)
		records[i] = padded
	}
	return records
}
