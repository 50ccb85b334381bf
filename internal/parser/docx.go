package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXParser reads the tables of a .docx file. Paragraphs inside one cell
// are joined with line breaks.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	table := &Table{Name: tableName(filename)}
	ordinal := 0
	for _, item := range doc.Document.Body.Items {
		tbl, ok := item.(*docx.Table)
		if !ok {
			continue
		}
		for _, tr := range tbl.TableRows {
			ordinal++
			cells := make([]string, 0, len(tr.TableCells))
			for _, tc := range tr.TableCells {
				lines := make([]string, 0, len(tc.Paragraphs))
				for _, para := range tc.Paragraphs {
					lines = append(lines, docxParagraphText(para))
				}
				cells = append(cells, strings.TrimSpace(strings.Join(lines, "\n")))
			}
			if !isBlank(cells) {
				table.Rows = append(table.Rows, Row{Line: ordinal, Cells: cells})
			}
		}
	}
	return table, nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
