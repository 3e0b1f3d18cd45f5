package source

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/host"
	"golang.org/x/net/html"
)

// HTMLLoader handles HTML files. Heading tags become heading
// paragraphs, tables map onto host tables, and p/li/blockquote flatten
// to styled paragraphs.
type HTMLLoader struct{}

func (l *HTMLLoader) Load(r io.Reader, filename string) (*host.MemoryDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(filename)
	if t := findTitle(root); t != "" {
		title = t
	}
	doc := host.NewMemoryDocument(title)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				if t := textContent(n); t != "" {
					doc.AppendParagraph(t, fmt.Sprintf("Heading%d", level))
				}
				return // Text already extracted from heading children.
			}

			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			case "table":
				appendHTMLTable(doc, n)
				return
			case "p":
				if t := textContent(n); t != "" {
					doc.AppendParagraph(t, "Normal")
				}
				return
			case "li":
				if t := textContent(n); t != "" {
					doc.AppendParagraph(t, "ListParagraph")
				}
				return
			case "blockquote":
				if t := textContent(n); t != "" {
					doc.AppendParagraph(t, "Quote")
				}
				return
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return doc, nil
}

// appendHTMLTable maps tr/th/td structure onto a host table.
func appendHTMLTable(doc *host.MemoryDocument, table *html.Node) {
	type rowData struct {
		cells  []string
		header bool
	}
	var rows []rowData

	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			row := rowData{}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.ElementNode {
					continue
				}
				switch c.Data {
				case "th":
					row.header = true
					row.cells = append(row.cells, textContent(c))
				case "td":
					row.cells = append(row.cells, textContent(c))
				}
			}
			rows = append(rows, row)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(table)

	if len(rows) == 0 {
		return
	}
	cols := 0
	for _, r := range rows {
		if len(r.cells) > cols {
			cols = len(r.cells)
		}
	}
	t := doc.AppendTable(len(rows), cols)
	for i, r := range rows {
		hr := t.Row(i)
		if r.header {
			hr.MarkHeader()
		}
		for j, cell := range r.cells {
			hr.Cell(j).SetCellText(cell)
		}
	}
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
