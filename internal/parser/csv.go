package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVParser handles CSV files. Lines starting with "#" are comments, and a
// UTF-8 byte order mark (as written by Excel) is dropped.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*Table, error) {
	r = transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	table := &Table{Name: tableName(filename)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		cells := trimCells(record)
		if isBlank(cells) {
			continue
		}
		line, _ := reader.FieldPos(0)
		table.Rows = append(table.Rows, Row{Line: line, Cells: cells})
	}
	return table, nil
}
