package ingest

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText strips a UTF-8 byte order mark and transcodes UTF-16 input
// that carries one. Input without a BOM is taken as UTF-8.
func decodeText(content []byte) string {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, content)
	if err != nil {
		return string(content)
	}
	return string(out)
}
