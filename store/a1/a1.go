// Package a1 holds the pure helpers for A1-notation addressing used by the
// table client and its backends.
package a1

import (
	"fmt"
	"strconv"
	"strings"
)

// QuoteName returns the table name as it must appear in an A1 range.
// Names with any character outside [A-Za-z0-9_] are wrapped in single quotes;
// a name that is already quoted is not quoted again.
func QuoteName(name string) string {
	if name == "" {
		return name
	}
	stripped := strings.TrimPrefix(name, "'")
	stripped = strings.TrimSuffix(stripped, "'")
	for _, r := range stripped {
		if !isPlain(r) {
			return "'" + stripped + "'"
		}
	}
	return stripped
}

// UnquoteName reverses QuoteName.
func UnquoteName(name string) string {
	if len(name) >= 2 && strings.HasPrefix(name, "'") && strings.HasSuffix(name, "'") {
		return name[1 : len(name)-1]
	}
	return name
}

func isPlain(r rune) bool {
	return r == '_' ||
		(r >= 'A' && r <= 'Z') ||
		(r >= 'a' && r <= 'z') ||
		(r >= '0' && r <= '9')
}

// ColumnLetter converts a 1-based column index to its letter form:
// 1 -> A, 26 -> Z, 27 -> AA, 52 -> AZ, 53 -> BA, 702 -> ZZ.
// Indexes below 1 map to "A".
func ColumnLetter(n int) string {
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	if len(buf) == 0 {
		return "A"
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ColumnIndex is the inverse of ColumnLetter. It returns 0 for input that is
// not a run of ASCII letters.
func ColumnIndex(letters string) int {
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0
		}
		n = n*26 + int(r-'A'+1)
	}
	return n
}

// Range is a parsed A1 range. Rows and columns are 1-based; EndRow 0 means
// the range is open towards the bottom of the table.
type Range struct {
	Table    string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// Ref builds "<quoted table>!<cells>".
func Ref(table, cells string) string {
	return QuoteName(table) + "!" + cells
}

// Block returns the cells part of a rectangular range, e.g. "A2:J4".
func Block(startRow, rows, cols int) string {
	return fmt.Sprintf("A%d:%s%d", startRow, ColumnLetter(cols), startRow+rows-1)
}

// ParseRange parses "Table!A1:B2", "'My Table'!A:A", "Table!A2:Z" or
// "Table!C3". The table part is returned unquoted.
func ParseRange(s string) (Range, error) {
	idx := strings.LastIndex(s, "!")
	if idx <= 0 || idx == len(s)-1 {
		return Range{}, fmt.Errorf("a1: malformed range %q", s)
	}
	r := Range{Table: UnquoteName(s[:idx])}
	cells := s[idx+1:]

	from, to, found := strings.Cut(cells, ":")
	sc, sr, err := parseCell(from)
	if err != nil {
		return Range{}, fmt.Errorf("a1: %q: %w", s, err)
	}
	r.StartCol, r.StartRow = sc, sr
	if r.StartRow == 0 {
		r.StartRow = 1
	}
	if !found {
		r.EndCol = sc
		r.EndRow = sr
		return r, nil
	}
	ec, er, err := parseCell(to)
	if err != nil {
		return Range{}, fmt.Errorf("a1: %q: %w", s, err)
	}
	r.EndCol, r.EndRow = ec, er
	if r.EndCol < r.StartCol || (r.EndRow != 0 && r.EndRow < r.StartRow) {
		return Range{}, fmt.Errorf("a1: inverted range %q", s)
	}
	return r, nil
}

func parseCell(ref string) (col, row int, err error) {
	i := 0
	for i < len(ref) && ((ref[i] >= 'A' && ref[i] <= 'Z') || (ref[i] >= 'a' && ref[i] <= 'z')) {
		i++
	}
	if i == 0 {
		return 0, 0, fmt.Errorf("missing column in %q", ref)
	}
	col = ColumnIndex(ref[:i])
	if i == len(ref) {
		return col, 0, nil
	}
	row, err = strconv.Atoi(ref[i:])
	if err != nil || row < 1 {
		return 0, 0, fmt.Errorf("bad row in %q", ref)
	}
	return col, row, nil
}

// Window cuts the cells addressed by r out of a full table grid (row 0 of
// grid is spreadsheet row 1). The result follows the remote API's shape:
// trailing empty cells of a row and trailing empty rows are dropped.
func Window(grid [][]any, r Range) [][]any {
	last := len(grid)
	if r.EndRow != 0 && r.EndRow < last {
		last = r.EndRow
	}
	var out [][]any
	for i := r.StartRow - 1; i < last; i++ {
		src := grid[i]
		row := make([]any, 0, r.EndCol-r.StartCol+1)
		for c := r.StartCol - 1; c < r.EndCol && c < len(src); c++ {
			row = append(row, src[c])
		}
		out = append(out, trimRow(row))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out
}

func trimRow(row []any) []any {
	n := len(row)
	for n > 0 && IsEmpty(row[n-1]) {
		n--
	}
	return row[:n]
}

// IsEmpty reports whether a cell value counts as blank.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
