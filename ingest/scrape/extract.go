package scrape

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/c360/etlstreams/pipeline"
)

// extractTable parses an HTML document and maps the first table to records,
// one per data row, using the first row's cells as field names. Cells with an
// empty header or empty text are omitted so schema defaults apply to them.
// A document without a table, or a table without data rows, yields no records.
func extractTable(r io.Reader) ([]pipeline.Record, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := findFirst(doc, atom.Table)
	if table == nil {
		return nil, nil
	}

	rows := collect(table, atom.Tr)
	if len(rows) < 2 {
		return nil, nil
	}

	headers := make([]string, 0, 8)
	for _, cell := range tableCells(rows[0]) {
		headers = append(headers, strings.TrimSpace(nodeText(cell)))
	}

	records := make([]pipeline.Record, 0, len(rows)-1)
	for _, tr := range rows[1:] {
		cells := tableCells(tr)
		record := pipeline.Record{}
		for i, header := range headers {
			if header == "" || i >= len(cells) {
				continue
			}
			value := strings.TrimSpace(nodeText(cells[i]))
			if value == "" {
				continue
			}
			record[header] = value
		}
		if len(record) > 0 {
			records = append(records, record)
		}
	}
	return records, nil
}

// findFirst returns the first element of the given kind in document order.
func findFirst(n *html.Node, kind atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == kind {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, kind); found != nil {
			return found
		}
	}
	return nil
}

// collect gathers every descendant element of the given kind in document
// order, excluding the root itself.
func collect(n *html.Node, kind atom.Atom) []*html.Node {
	var out []*html.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && child.DataAtom == kind {
			out = append(out, child)
		}
		out = append(out, collect(child, kind)...)
	}
	return out
}

// tableCells returns the th and td elements of a row.
func tableCells(tr *html.Node) []*html.Node {
	var out []*html.Node
	for child := tr.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode &&
			(child.DataAtom == atom.Th || child.DataAtom == atom.Td) {
			out = append(out, child)
		}
	}
	return out
}

// nodeText concatenates the text content under a node, the way a browser's
// textContent does.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
