package ingest

import "strings"

// parseDelimited splits text into lines and fields. The delimiter is chosen
// once from the header line: tab if it contains one, comma otherwise. Quoted
// fields are not supported; commas inside values split the field.
func parseDelimited(text string) table {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 2 {
		return table{}
	}

	delim := ","
	if strings.Contains(lines[0], "\t") {
		delim = "\t"
	}

	records := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		records = append(records, strings.Split(line, delim))
	}
	return tabulate(strings.Split(lines[0], delim), records)
}
