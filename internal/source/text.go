package source

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/host"
)

// TextLoader handles plain text files.
type TextLoader struct{}

func (l *TextLoader) Load(r io.Reader, filename string) (*host.MemoryDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := host.NewMemoryDocument(baseTitle(filename))

	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			doc.AppendParagraph(current.String(), "Normal")
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}
