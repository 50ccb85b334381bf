package parser

import "strings"

// VariantColumn is the first column holding per-variant values. Columns
// before it are the description and the field.
const VariantColumn = 2

// Group is a run of rows sharing one header. Each non-empty header cell from
// VariantColumn on names one variant.
type Group struct {
	Header Row
	Rows   []Row
}

// Variants returns the variant names in column order, stopping at the first
// empty header cell.
func (g Group) Variants() []string {
	var names []string
	for i := VariantColumn; i < len(g.Header.Cells); i++ {
		name := g.Header.Cells[i]
		if name == "" {
			break
		}
		names = append(names, name)
	}
	return names
}

// IsHeader reports whether a row starts a new group: its first two cells are
// "description" and "field" (any case) and it names at least one column past
// them.
func IsHeader(row Row) bool {
	return len(row.Cells) > VariantColumn &&
		strings.EqualFold(row.Cells[0], "description") &&
		strings.EqualFold(row.Cells[1], "field")
}

// Groups splits a table into row groups. Rows before the first header and
// rows with an empty field column are dropped; rows shorter than their header
// are padded with empty cells.
func Groups(t *Table) []Group {
	var groups []Group
	var cur *Group
	for _, row := range t.Rows {
		if len(row.Cells) < 2 || row.Cells[1] == "" {
			continue
		}
		if IsHeader(row) {
			if cur != nil {
				groups = append(groups, *cur)
			}
			cur = &Group{Header: row}
			continue
		}
		if cur == nil {
			continue
		}
		if n := len(cur.Header.Cells); len(row.Cells) < n {
			cells := make([]string, n)
			copy(cells, row.Cells)
			row.Cells = cells
		}
		cur.Rows = append(cur.Rows, row)
	}
	if cur != nil {
		groups = append(groups, *cur)
	}
	return groups
}
