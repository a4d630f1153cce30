package sheets

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed A1 reference. Columns and rows are 1-based; a zero
// EndRow means the range is open downwards ("A2:E").
type Range struct {
	Section  string
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseA1 parses references such as "'Weekly Budget'!A2:B", "Spending!A:E",
// "registry!C5" and a bare section name, which selects the whole section.
func ParseA1(ref string) (Range, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Range{}, fmt.Errorf("empty range")
	}

	section, cells := ref, ""
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		section, cells = ref[:i], ref[i+1:]
	}
	section = unquote(strings.TrimSpace(section))
	if section == "" {
		return Range{}, fmt.Errorf("range %q: missing section", ref)
	}

	r := Range{Section: section, StartCol: 1, StartRow: 1}
	if cells == "" {
		return r, nil
	}

	start, end, hasEnd := strings.Cut(cells, ":")
	sc, sr, err := parseCell(start)
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", ref, err)
	}
	if sc > 0 {
		r.StartCol = sc
	}
	if sr > 0 {
		r.StartRow = sr
	}
	if !hasEnd {
		r.EndCol, r.EndRow = r.StartCol, sr
		return r, nil
	}

	ec, er, err := parseCell(end)
	if err != nil {
		return Range{}, fmt.Errorf("range %q: %w", ref, err)
	}
	r.EndCol, r.EndRow = ec, er
	if r.EndRow > 0 && r.EndRow < r.StartRow {
		return Range{}, fmt.Errorf("range %q: end row before start row", ref)
	}
	if r.EndCol > 0 && r.EndCol < r.StartCol {
		return Range{}, fmt.Errorf("range %q: end column before start column", ref)
	}
	return r, nil
}

// String renders the range back to A1 form, quoting the section when needed.
func (r Range) String() string {
	if r.StartCol <= 1 && r.StartRow <= 1 && r.EndCol == 0 && r.EndRow == 0 {
		return QuoteSection(r.Section)
	}
	var b strings.Builder
	b.WriteString(QuoteSection(r.Section))
	b.WriteByte('!')
	b.WriteString(ColumnName(r.StartCol))
	b.WriteString(strconv.Itoa(r.StartRow))
	if r.EndCol == r.StartCol && r.EndRow == r.StartRow {
		return b.String()
	}
	b.WriteByte(':')
	if r.EndCol > 0 {
		b.WriteString(ColumnName(r.EndCol))
	}
	if r.EndRow > 0 {
		b.WriteString(strconv.Itoa(r.EndRow))
	}
	return b.String()
}

// Cell builds a single-cell reference like "'Weekly Budget'!B4".
func Cell(section string, col, row int) string {
	return fmt.Sprintf("%s!%s%d", QuoteSection(section), ColumnName(col), row)
}

// QuoteSection wraps names containing spaces or punctuation in single quotes.
func QuoteSection(name string) string {
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "'" + strings.ReplaceAll(name, "'", "''") + "'"
		}
	}
	return name
}

// ColumnName converts a 1-based column index to letters: 1 -> A, 27 -> AA.
func ColumnName(col int) string {
	if col < 1 {
		return ""
	}
	var out []byte
	for col > 0 {
		col--
		out = append([]byte{byte('A' + col%26)}, out...)
		col /= 26
	}
	return string(out)
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

// parseCell splits "B12" into (2, 12). Either half may be absent: "B" gives
// (2, 0) and "12" gives (0, 12).
func parseCell(s string) (col, row int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, fmt.Errorf("empty cell reference")
	}
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i < len(s) {
		row, err = strconv.Atoi(s[i:])
		if err != nil || row < 1 {
			return 0, 0, fmt.Errorf("invalid cell reference %q", s)
		}
	}
	return col, row, nil
}
