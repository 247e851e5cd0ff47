// Package rows turns raw table grids into header-keyed records.
package rows

import (
	"fmt"
	"strings"
)

// Record is one data row keyed by normalized header.
type Record map[string]any

// String returns the value under key as trimmed text. Missing keys and nil
// values yield "".
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// First returns the first non-empty String among keys.
func (r Record) First(keys ...string) string {
	for _, k := range keys {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return ""
}

// NormalizeHeader trims, lower-cases and joins whitespace runs with "_":
// "  Item   Name " -> "item_name".
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), "_")
}

// ToRecords zips every row after headerRow against the normalized header at
// headerRow (0-based). Cells missing at the end of a row become "", strings
// are trimmed and other values pass through. A grid without a header row
// gives an empty result.
func ToRecords(grid [][]any, headerRow int) []Record {
	if headerRow < 0 || len(grid) <= headerRow {
		return []Record{}
	}
	header := make([]string, len(grid[headerRow]))
	for i, h := range grid[headerRow] {
		if h == nil {
			continue
		}
		header[i] = NormalizeHeader(fmt.Sprint(h))
	}

	out := make([]Record, 0, len(grid)-headerRow-1)
	for _, row := range grid[headerRow+1:] {
		rec := make(Record, len(header))
		for i, key := range header {
			if key == "" {
				continue
			}
			rec[key] = cell(row, i)
		}
		out = append(out, rec)
	}
	return out
}

func cell(row []any, i int) any {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return strings.TrimSpace(s)
	}
	return row[i]
}
