package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brandonwu32/financedashboard/internal/core"
)

// Document is a self-contained spreadsheet used by the local backends.
type Document struct {
	ID         string    `json:"id" yaml:"id"`
	Title      string    `json:"title" yaml:"title"`
	Sections   []Section `json:"sections" yaml:"sections"`
	SharedWith []string  `json:"sharedWith,omitempty" yaml:"sharedWith,omitempty"`
}

// Section is one named grid of cells. Rows[0] is sheet row 1.
type Section struct {
	Name string     `json:"name" yaml:"name"`
	Rows [][]string `json:"rows" yaml:"rows"`
}

// SectionNames lists sections in document order.
func (d *Document) SectionNames() []string {
	names := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		names = append(names, s.Name)
	}
	return names
}

func (d *Document) section(name string) (*Section, error) {
	for i := range d.Sections {
		if strings.EqualFold(d.Sections[i].Name, name) {
			return &d.Sections[i], nil
		}
	}
	return nil, core.E(core.ErrUpstreamPermanent, "section "+strconv.Quote(name), ErrNotFound)
}

// Read returns the cells inside r. Trailing empty rows are dropped, like
// the Sheets API does.
func (d *Document) Read(r Range) ([][]string, error) {
	s, err := d.section(r.Section)
	if err != nil {
		return nil, err
	}
	last := len(s.Rows)
	if r.EndRow > 0 && r.EndRow < last {
		last = r.EndRow
	}
	var out [][]string
	for i := r.StartRow - 1; i < last; i++ {
		out = append(out, clip(s.Rows[i], r.StartCol, r.EndCol))
	}
	for len(out) > 0 && len(out[len(out)-1]) == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// Append writes rows after the last non-empty row of the section, starting
// at the range's first column.
func (d *Document) Append(r Range, rows [][]any) error {
	s, err := d.section(r.Section)
	if err != nil {
		return err
	}
	next := len(s.Rows)
	for next > 0 && isEmpty(s.Rows[next-1]) {
		next--
	}
	s.Rows = s.Rows[:next]
	for _, row := range rows {
		cells := make([]string, r.StartCol-1, r.StartCol-1+len(row))
		for _, v := range row {
			cells = append(cells, FormatCell(v))
		}
		s.Rows = append(s.Rows, cells)
	}
	return nil
}

// Set overwrites the single cell at the start of r, growing the grid as needed.
func (d *Document) Set(r Range, v any) error {
	s, err := d.section(r.Section)
	if err != nil {
		return err
	}
	for len(s.Rows) < r.StartRow {
		s.Rows = append(s.Rows, nil)
	}
	row := s.Rows[r.StartRow-1]
	for len(row) < r.StartCol {
		row = append(row, "")
	}
	row[r.StartCol-1] = FormatCell(v)
	s.Rows[r.StartRow-1] = row
	return nil
}

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	c := &Document{ID: d.ID, Title: d.Title, SharedWith: append([]string(nil), d.SharedWith...)}
	c.Sections = make([]Section, len(d.Sections))
	for i, s := range d.Sections {
		rows := make([][]string, len(s.Rows))
		for j, row := range s.Rows {
			rows[j] = append([]string(nil), row...)
		}
		c.Sections[i] = Section{Name: s.Name, Rows: rows}
	}
	return c
}

// FormatCell renders a value the way a user-entered spreadsheet cell would
// display it. A leading apostrophe forces text and is not kept.
func FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimPrefix(x, "'")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strings.ToUpper(strconv.FormatBool(x))
	default:
		return fmt.Sprint(x)
	}
}

func clip(row []string, startCol, endCol int) []string {
	if startCol-1 >= len(row) {
		return []string{}
	}
	end := len(row)
	if endCol > 0 && endCol < end {
		end = endCol
	}
	out := append([]string(nil), row[startCol-1:end]...)
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func isEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
