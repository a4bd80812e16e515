package ingest

import (
	"strings"
)

// row is one input record keyed by canonical column name.
type row map[string]string

// table is the format-independent parse result.
type table struct {
	rows    []row
	read    int
	skipped int
}

// canonicalKey trims and lower-cases a column name and collapses internal
// whitespace runs to a single underscore ("Heart Rate" -> "heart_rate").
func canonicalKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// tabulate zips data records onto header. A record with fewer than two
// fields is skipped; missing trailing fields read as empty. When a header
// repeats, the later column wins.
func tabulate(header []string, records [][]string) table {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = canonicalKey(h)
	}

	t := table{read: len(records)}
	for _, rec := range records {
		if len(rec) < 2 {
			t.skipped++
			continue
		}
		r := make(row, len(keys))
		for i, k := range keys {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			r[k] = v
		}
		t.rows = append(t.rows, r)
	}
	return t
}
