package ingest

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var errMalformedJSON = errors.New("malformed json")

// parseJSON flattens a top-level array, or a single value, into rows. Every
// value is coerced to a string so numbers go through the same
// parse-with-default path as text cells. Elements that are not objects
// carry no fields and become empty rows, so they admit as default records
// and keep later synthesized ids aligned with their position. A null
// document yields no rows.
func parseJSON(text string) (table, error) {
	if !gjson.Valid(text) {
		return table{}, errMalformedJSON
	}
	doc := gjson.Parse(text)

	var items []gjson.Result
	switch {
	case doc.IsArray():
		items = doc.Array()
	case doc.Type == gjson.Null:
		return table{}, nil
	default:
		items = []gjson.Result{doc}
	}

	t := table{read: len(items)}
	for _, item := range items {
		r := make(row)
		if item.IsObject() {
			item.ForEach(func(key, value gjson.Result) bool {
				r[canonicalKey(key.String())] = jsonString(value)
				return true
			})
		}
		t.rows = append(t.rows, r)
	}
	return t, nil
}

// jsonString renders a value as a cell. Arrays join with ";" so a JSON
// symptom list reads like a delimited one.
func jsonString(v gjson.Result) string {
	switch {
	case v.Type == gjson.Null:
		return ""
	case v.IsArray():
		parts := make([]string, 0)
		for _, el := range v.Array() {
			parts = append(parts, jsonString(el))
		}
		return strings.Join(parts, ";")
	}
	return strings.TrimSpace(v.String())
}
