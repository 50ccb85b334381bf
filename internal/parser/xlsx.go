package parser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// XLSXParser reads every worksheet of an Excel workbook in sheet order, so
// definitions no longer need a CSV export step.
type XLSXParser struct{}

func (p *XLSXParser) Parse(r io.Reader, filename string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	table := &Table{Name: tableName(filename)}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for i, record := range rows {
			cells := trimCells(record)
			if isBlank(cells) {
				continue
			}
			table.Rows = append(table.Rows, Row{Line: i + 1, Cells: cells})
		}
	}
	return table, nil
}
