// Package export extracts HTML tables from authenticated pages into
// CSV files for downstream spreadsheet consumers. It only flattens
// markup into rows; interpreting the tabular data is out of scope.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrNoTable is returned when the page contains no table rows.
var ErrNoTable = errors.New("no table found in page")

// Table is one extracted HTML table as raw cell text.
type Table struct {
	Rows [][]string
}

// ExtractTables parses markup and returns every table with at least
// one non-empty row, in document order.
func ExtractTables(markup string) ([]Table, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tables []Table
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "table" {
			if t := extractTable(n); len(t.Rows) > 0 {
				tables = append(tables, t)
			}
			// Nested tables are folded into their parent's cells.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if len(tables) == 0 {
		return nil, ErrNoTable
	}
	return tables, nil
}

func extractTable(table *html.Node) Table {
	var t Table
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if row := extractRow(n); len(row) > 0 {
				t.Rows = append(t.Rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)
	return t
}

func extractRow(tr *html.Node) []string {
	var row []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			row = append(row, textContent(c))
		}
	}
	return row
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// Writer writes extracted tables into an output directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteCSV writes the largest extracted table to a timestamped CSV
// file and returns its path.
func (w *Writer) WriteCSV(tables []Table, name string) (string, error) {
	if len(tables) == 0 {
		return "", ErrNoTable
	}

	largest := tables[0]
	for _, t := range tables[1:] {
		if len(t.Rows) > len(largest.Rows) {
			largest = t
		}
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", name, time.Now().Format("20060102_150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(largest.Rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return path, nil
}
