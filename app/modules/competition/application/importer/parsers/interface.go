package parsers

import "strings"

// Parser turns raw file bytes into a Table.
type Parser interface {
	Parse(data []byte) (*Table, error)
}

// ParserFactory defines the interface for creating parsers
type ParserFactory interface {
	GetParser(filename string) (Parser, error)
}

// Table is a header row plus data rows. Rows may be shorter than Headers.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Column returns the index of the header matching name case-insensitively
// after trimming, or -1.
func (t *Table) Column(name string) int {
	want := normalizeHeader(name)
	for i, h := range t.Headers {
		if normalizeHeader(h) == want {
			return i
		}
	}
	return -1
}

// Value returns the trimmed cell at col, or "" when the row is short.
func (t *Table) Value(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
