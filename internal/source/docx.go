package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docnav/internal/host"
	"github.com/fumiama/go-docx"
)

// DOCXLoader handles .docx files. Paragraph runs are kept fragmented so
// the full verbosity tier can report run breakdowns.
type DOCXLoader struct{}

func (l *DOCXLoader) Load(r io.Reader, filename string) (*host.MemoryDocument, error) {
	// go-docx needs a ReadSeeker+size, so write to a temp file.
	tmp, err := os.CreateTemp("", "docnav-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	parsed, err := docx.Parse(tmp, int64(size))
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	doc := host.NewMemoryDocument(baseTitle(filename))

	for _, item := range parsed.Document.Body.Items {
		switch it := item.(type) {
		case *docx.Paragraph:
			appendDocxParagraph(doc, it)
		case *docx.Table:
			appendDocxTable(doc, it)
		}
	}
	return doc, nil
}

func appendDocxParagraph(doc *host.MemoryDocument, para *docx.Paragraph) {
	style := docxStyle(para)
	text := docxParagraphText(para)
	if text == "" && style == "" {
		return
	}
	p := doc.AppendParagraph("", style)
	p.SetRuns(docxRuns(para))
}

func appendDocxTable(doc *host.MemoryDocument, tbl *docx.Table) {
	rows := len(tbl.TableRows)
	cols := 0
	for _, row := range tbl.TableRows {
		if len(row.TableCells) > cols {
			cols = len(row.TableCells)
		}
	}
	if rows == 0 || cols == 0 {
		return
	}
	t := doc.AppendTable(rows, cols)
	for i, row := range tbl.TableRows {
		hr := t.Row(i)
		if i == 0 {
			hr.MarkHeader()
		}
		for j, cell := range row.TableCells {
			var texts []string
			for _, para := range cell.Paragraphs {
				if s := docxParagraphText(para); s != "" {
					texts = append(texts, s)
				}
			}
			hr.Cell(j).SetCellText(strings.Join(texts, "\n"))
		}
	}
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxRuns(para *docx.Paragraph) []host.RunData {
	var runs []host.RunData
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		var buf strings.Builder
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
		if buf.Len() == 0 {
			continue
		}
		runs = append(runs, host.RunData{Text: buf.String()})
	}
	return runs
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, r := range docxRuns(para) {
		buf.WriteString(r.Text)
	}
	return strings.TrimSpace(buf.String())
}
