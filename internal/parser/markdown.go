package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser reads GitHub-flavoured pipe tables using goldmark. Every
// table in the file contributes its header and body rows in document order;
// a <br> inside a cell is a line break.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Table, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	doc := md.Parser().Parse(text.NewReader(src))

	table := &Table{Name: tableName(filename)}
	ordinal := 0
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *east.TableHeader, *east.TableRow:
			ordinal++
			var cells []string
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if _, ok := c.(*east.TableCell); ok {
					cells = append(cells, strings.TrimSpace(cellText(c, src)))
				}
			}
			if !isBlank(cells) {
				line := ordinal
				if off := nodeOffset(n); off >= 0 {
					line = bytes.Count(src[:off], []byte("\n")) + 1
				}
				table.Rows = append(table.Rows, Row{Line: line, Cells: cells})
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// cellText flattens the inline content of a table cell.
func cellText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
		case *ast.String:
			buf.Write(t.Value)
		case *ast.RawHTML:
			var raw bytes.Buffer
			for i := 0; i < t.Segments.Len(); i++ {
				seg := t.Segments.At(i)
				raw.Write(seg.Value(src))
			}
			if isLineBreak(raw.String()) {
				buf.WriteByte('\n')
			}
		default:
			buf.WriteString(cellText(c, src))
		}
	}
	return buf.String()
}

func isLineBreak(tag string) bool {
	tag = strings.ToLower(strings.ReplaceAll(tag, " ", ""))
	return tag == "<br>" || tag == "<br/>"
}

// nodeOffset returns the source offset of the first text segment under n,
// or -1 when none is recorded.
func nodeOffset(n ast.Node) int {
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			return t.Segment.Start
		}
		if off := nodeOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}
