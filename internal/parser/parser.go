package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Row is one row of a definition table.
type Row struct {
	Line  int      // Source line (or row ordinal when the format has no lines)
	Cells []string // Cell values with surrounding whitespace removed
}

// Cell returns the cell at index i, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Table is the flattened tabular content of a definition file.
type Table struct {
	Name string
	Rows []Row
}

// Parser converts raw definition bytes into a Table.
type Parser interface {
	Parse(r io.Reader, filename string) (*Table, error)
}

// SupportedExtensions lists definition file extensions kbb can read.
var SupportedExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".txt":  true,
	".md":   true,
	".html": true,
	".htm":  true,
	".docx": true,
	".xlsx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return &CSVParser{}, nil
	case ".tsv", ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".xlsx":
		return &XLSXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext] || ext == ".markdown"
}

func tableName(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

func trimCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
