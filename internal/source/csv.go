package source

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docnav/internal/host"
)

// CSVLoader handles CSV files. The whole file becomes one table; the
// first record is treated as a header row.
type CSVLoader struct{}

func (l *CSVLoader) Load(r io.Reader, filename string) (*host.MemoryDocument, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	doc := host.NewMemoryDocument(baseTitle(filename))
	if len(records) == 0 {
		return doc, nil
	}

	cols := 0
	for _, rec := range records {
		if len(rec) > cols {
			cols = len(rec)
		}
	}

	table := doc.AppendTable(len(records), cols)
	for i, rec := range records {
		row := table.Row(i)
		if i == 0 {
			row.MarkHeader()
		}
		for j, cell := range rec {
			row.Cell(j).SetCellText(cell)
		}
	}
	return doc, nil
}
