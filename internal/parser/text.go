package parser

import (
	"bufio"
	"io"
	"strings"
)

// TextParser handles tab-separated files. A literal `\n` inside a cell
// becomes a line break so multi-line values fit on one row.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	table := &Table{Name: tableName(filename)}
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimPrefix(scanner.Text(), "\ufeff")
		if strings.HasPrefix(strings.TrimSpace(text), "#") {
			continue
		}
		cells := trimCells(strings.Split(text, "\t"))
		if isBlank(cells) {
			continue
		}
		for i, c := range cells {
			cells[i] = strings.ReplaceAll(c, `\n`, "\n")
		}
		table.Rows = append(table.Rows, Row{Line: line, Cells: cells})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return table, nil
}
