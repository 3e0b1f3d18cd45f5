package source

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/host"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader handles Markdown files using goldmark. Headings become
// styled heading paragraphs, blockquotes and list items carry their own
// styles, and everything else flattens to Normal paragraphs.
type MarkdownLoader struct{}

func (l *MarkdownLoader) Load(r io.Reader, filename string) (*host.MemoryDocument, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	doc := host.NewMemoryDocument(baseTitle(filename))

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := string(node.Text(src))
			if title != "" {
				doc.AppendParagraph(title, fmt.Sprintf("Heading%d", node.Level))
			}
		case *ast.Blockquote:
			if t := extractText(n, src); t != "" {
				doc.AppendParagraph(t, "Quote")
			}
		case *ast.List:
			for item := n.FirstChild(); item != nil; item = item.NextSibling() {
				if t := extractText(item, src); t != "" {
					doc.AppendParagraph(t, "ListParagraph")
				}
			}
		default:
			if t := extractText(n, src); t != "" {
				doc.AppendParagraph(t, "Normal")
			}
		}
	}
	return doc, nil
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	// Also handle inline children.
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			// Recurse for nested inlines.
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
