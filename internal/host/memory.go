package host

import (
	"context"
	"fmt"
	"strings"
)

// MemoryDocument is the in-process reference host. It keeps the same
// run-fragmented shape as the real object model and enforces the
// queue/sync discipline, counting barriers so tests can assert the
// fixed-barrier property.
type MemoryDocument struct {
	title    string
	readOnly bool

	items     []*memItem
	comments  []CommentData
	footnotes []FootnoteData
	bookmarks []BookmarkData

	syncCount int
}

type memItem struct {
	para  *MemoryParagraph
	table *MemoryTable
}

// MemoryParagraph is a run-fragmented paragraph with an optional
// tracked-change baseline.
type MemoryParagraph struct {
	runs        []RunData
	style       string
	original    string
	hasBaseline bool
}

// MemoryTable is a grid of cells, each holding its own paragraphs.
type MemoryTable struct {
	rows []*MemoryRow
}

// MemoryRow is one table row.
type MemoryRow struct {
	cells  []*MemoryCell
	header bool
}

// MemoryCell holds the paragraphs of one table cell.
type MemoryCell struct {
	paragraphs []*MemoryParagraph
}

// NewMemoryDocument creates an empty document.
func NewMemoryDocument(title string) *MemoryDocument {
	return &MemoryDocument{title: title}
}

func (d *MemoryDocument) Title() string  { return d.title }
func (d *MemoryDocument) ReadOnly() bool { return d.readOnly }

// SetReadOnly marks the document as non-editable; queued writes fail
// per item with ErrReadOnly.
func (d *MemoryDocument) SetReadOnly() { d.readOnly = true }

// SyncCount returns how many barriers have run against this document.
func (d *MemoryDocument) SyncCount() int { return d.syncCount }

// AppendParagraph adds a top-level paragraph with a single run.
func (d *MemoryDocument) AppendParagraph(text, style string) *MemoryParagraph {
	p := &MemoryParagraph{style: style}
	if text != "" {
		p.runs = []RunData{{Text: text}}
	}
	d.items = append(d.items, &memItem{para: p})
	return p
}

// AppendTable adds an empty rows x cols table; every cell starts with
// one empty paragraph, as the host model does.
func (d *MemoryDocument) AppendTable(rows, cols int) *MemoryTable {
	t := &MemoryTable{}
	for range rows {
		r := &MemoryRow{}
		for range cols {
			r.cells = append(r.cells, &MemoryCell{paragraphs: []*MemoryParagraph{{}}})
		}
		t.rows = append(t.rows, r)
	}
	d.items = append(d.items, &memItem{table: t})
	return t
}

// AddComment attaches a comment (with optional replies) to a top-level
// paragraph.
func (d *MemoryDocument) AddComment(c CommentData) {
	c.Index = len(d.comments)
	d.comments = append(d.comments, c)
}

// AddFootnote registers a footnote or endnote.
func (d *MemoryDocument) AddFootnote(f FootnoteData) {
	f.Index = len(d.footnotes)
	d.footnotes = append(d.footnotes, f)
}

// AddBookmark registers a named position.
func (d *MemoryDocument) AddBookmark(b BookmarkData) {
	b.Index = len(d.bookmarks)
	d.bookmarks = append(d.bookmarks, b)
}

// Text joins the paragraph's runs.
func (p *MemoryParagraph) Text() string {
	var sb strings.Builder
	for _, r := range p.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// SetRuns replaces the paragraph's run fragments.
func (p *MemoryParagraph) SetRuns(runs []RunData) { p.runs = runs }

// SetStyle sets the paragraph style name.
func (p *MemoryParagraph) SetStyle(style string) { p.style = style }

// SetBaseline records the tracked-change baseline text.
func (p *MemoryParagraph) SetBaseline(original string) {
	p.original = original
	p.hasBaseline = true
}

// SetText replaces all runs with a single run.
func (p *MemoryParagraph) SetText(text string) {
	p.runs = []RunData{{Text: text}}
}

// MarkHeader flags a row as a header row.
func (r *MemoryRow) MarkHeader() { r.header = true }

// Cell returns the cell at index i.
func (r *MemoryRow) Cell(i int) *MemoryCell { return r.cells[i] }

// Row returns the row at index i.
func (t *MemoryTable) Row(i int) *MemoryRow { return t.rows[i] }

// SetCellText replaces the first paragraph of a cell.
func (c *MemoryCell) SetCellText(text string) {
	if len(c.paragraphs) == 0 {
		c.paragraphs = []*MemoryParagraph{{}}
	}
	c.paragraphs[0].SetText(text)
}

// AppendCellParagraph adds a paragraph to a cell.
func (c *MemoryCell) AppendCellParagraph(text, style string) *MemoryParagraph {
	p := &MemoryParagraph{style: style}
	if text != "" {
		p.runs = []RunData{{Text: text}}
	}
	c.paragraphs = append(c.paragraphs, p)
	return p
}

// NewBatch starts an empty operation queue.
func (d *MemoryDocument) NewBatch() Batch {
	return &memoryBatch{doc: d}
}

type memoryBatch struct {
	doc    *MemoryDocument
	ops    []func()
	synced bool
}

func (b *memoryBatch) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.synced {
		return fmt.Errorf("host: batch synced twice")
	}
	b.synced = true
	b.doc.syncCount++
	for _, op := range b.ops {
		op()
	}
	b.ops = nil
	return nil
}

// paragraphAt resolves a location to its paragraph list and offset.
func (d *MemoryDocument) paragraphList(loc Location) (*[]*MemoryParagraph, error) {
	if !loc.InCell {
		return nil, nil // top-level, handled against items
	}
	ti := 0
	for _, it := range d.items {
		if it.table == nil {
			continue
		}
		if ti == loc.Table {
			t := it.table
			if loc.Row < 0 || loc.Row >= len(t.rows) {
				return nil, fmt.Errorf("row %d out of range (%d rows)", loc.Row, len(t.rows))
			}
			row := t.rows[loc.Row]
			if loc.Cell < 0 || loc.Cell >= len(row.cells) {
				return nil, fmt.Errorf("cell %d out of range (%d cells)", loc.Cell, len(row.cells))
			}
			return &row.cells[loc.Cell].paragraphs, nil
		}
		ti++
	}
	return nil, fmt.Errorf("table %d out of range (%d tables)", loc.Table, ti)
}

// topLevelParagraph resolves a top-level paragraph index to its item
// slot.
func (d *MemoryDocument) topLevelParagraph(index int) (int, *MemoryParagraph, error) {
	pi := 0
	for slot, it := range d.items {
		if it.para == nil {
			continue
		}
		if pi == index {
			return slot, it.para, nil
		}
		pi++
	}
	return 0, nil, fmt.Errorf("paragraph %d out of range (%d paragraphs)", index, pi)
}

func (b *memoryBatch) LoadBody(opts LoadOptions) *BodyResult {
	res := &BodyResult{}
	b.ops = append(b.ops, func() {
		defer func() { res.synced = true }()
		pIdx, tIdx := 0, 0
		for _, it := range b.doc.items {
			if it.para != nil {
				res.Items = append(res.Items, BodyItem{
					Kind:      ItemParagraph,
					Paragraph: snapshotParagraph(it.para, pIdx, opts),
				})
				pIdx++
				continue
			}
			dims := &TableDims{Index: tIdx, Rows: len(it.table.rows)}
			if dims.Rows > 0 {
				dims.Cols = len(it.table.rows[0].cells)
			}
			res.Items = append(res.Items, BodyItem{Kind: ItemTable, Table: dims})
			tIdx++
		}
	})
	return res
}

func snapshotParagraph(p *MemoryParagraph, index int, opts LoadOptions) *ParagraphData {
	data := &ParagraphData{
		Index: index,
		Text:  p.Text(),
		Style: p.style,
	}
	if opts.Baselines && p.hasBaseline {
		data.OriginalText = p.original
		data.HasBaseline = true
	}
	if opts.Runs {
		data.Runs = make([]RunData, len(p.runs))
		copy(data.Runs, p.runs)
	}
	return data
}

func (b *memoryBatch) LoadTableRows(table int) *RowsResult {
	res := &RowsResult{}
	b.ops = append(b.ops, func() {
		defer func() { res.synced = true }()
		t, err := b.doc.tableAt(table)
		if err != nil {
			res.Err = err
			return
		}
		for i, row := range t.rows {
			res.Rows = append(res.Rows, RowData{Index: i, Cells: len(row.cells), IsHeader: row.header})
		}
	})
	return res
}

func (d *MemoryDocument) tableAt(index int) (*MemoryTable, error) {
	ti := 0
	for _, it := range d.items {
		if it.table == nil {
			continue
		}
		if ti == index {
			return it.table, nil
		}
		ti++
	}
	return nil, fmt.Errorf("table %d out of range (%d tables)", index, ti)
}

func (b *memoryBatch) LoadCellParagraphs(table, row, cell int, opts LoadOptions) *CellParagraphsResult {
	res := &CellParagraphsResult{}
	b.ops = append(b.ops, func() {
		defer func() { res.synced = true }()
		list, err := b.doc.paragraphList(Location{InCell: true, Table: table, Row: row, Cell: cell})
		if err != nil {
			res.Err = err
			return
		}
		for i, p := range *list {
			res.Paragraphs = append(res.Paragraphs, *snapshotParagraph(p, i, opts))
		}
	})
	return res
}

func (b *memoryBatch) LoadComments() *CommentsResult {
	res := &CommentsResult{}
	b.ops = append(b.ops, func() {
		res.Comments = append([]CommentData(nil), b.doc.comments...)
		res.synced = true
	})
	return res
}

func (b *memoryBatch) LoadFootnotes() *FootnotesResult {
	res := &FootnotesResult{}
	b.ops = append(b.ops, func() {
		res.Footnotes = append([]FootnoteData(nil), b.doc.footnotes...)
		res.synced = true
	})
	return res
}

func (b *memoryBatch) LoadBookmarks() *BookmarksResult {
	res := &BookmarksResult{}
	b.ops = append(b.ops, func() {
		res.Bookmarks = append([]BookmarkData(nil), b.doc.bookmarks...)
		res.synced = true
	})
	return res
}

func (b *memoryBatch) write(apply func() (int, error)) *WriteResult {
	res := &WriteResult{NewIndex: -1}
	b.ops = append(b.ops, func() {
		defer func() { res.synced = true }()
		if b.doc.readOnly {
			res.Err = ErrReadOnly
			return
		}
		idx, err := apply()
		res.NewIndex = idx
		res.Err = err
	})
	return res
}

func (b *memoryBatch) ReplaceParagraphText(loc Location, text string) *WriteResult {
	return b.write(func() (int, error) {
		p, err := b.doc.resolveParagraph(loc)
		if err != nil {
			return -1, err
		}
		p.SetText(text)
		return -1, nil
	})
}

func (b *memoryBatch) InsertParagraph(loc Location, text string, before bool) *WriteResult {
	return b.write(func() (int, error) {
		np := &MemoryParagraph{}
		if text != "" {
			np.runs = []RunData{{Text: text}}
		}
		if loc.InCell {
			list, err := b.doc.paragraphList(loc)
			if err != nil {
				return -1, err
			}
			pos, err := insertAt(list, loc.Paragraph, np, before)
			return pos, err
		}
		slot, _, err := b.doc.topLevelParagraph(loc.Paragraph)
		if err != nil {
			return -1, err
		}
		at := slot
		newIdx := loc.Paragraph
		if !before {
			at++
			newIdx++
		}
		b.doc.items = append(b.doc.items[:at], append([]*memItem{{para: np}}, b.doc.items[at:]...)...)
		return newIdx, nil
	})
}

func insertAt(list *[]*MemoryParagraph, index int, p *MemoryParagraph, before bool) (int, error) {
	if index < 0 || index >= len(*list) {
		return -1, fmt.Errorf("paragraph %d out of range (%d paragraphs)", index, len(*list))
	}
	at := index
	if !before {
		at++
	}
	*list = append((*list)[:at], append([]*MemoryParagraph{p}, (*list)[at:]...)...)
	return at, nil
}

func (b *memoryBatch) DeleteParagraph(loc Location) *WriteResult {
	return b.write(func() (int, error) {
		if loc.InCell {
			list, err := b.doc.paragraphList(loc)
			if err != nil {
				return -1, err
			}
			if loc.Paragraph < 0 || loc.Paragraph >= len(*list) {
				return -1, fmt.Errorf("paragraph %d out of range (%d paragraphs)", loc.Paragraph, len(*list))
			}
			*list = append((*list)[:loc.Paragraph], (*list)[loc.Paragraph+1:]...)
			return -1, nil
		}
		slot, _, err := b.doc.topLevelParagraph(loc.Paragraph)
		if err != nil {
			return -1, err
		}
		b.doc.items = append(b.doc.items[:slot], b.doc.items[slot+1:]...)
		return -1, nil
	})
}

func (b *memoryBatch) FormatParagraph(loc Location, style string, format *RunFormat) *WriteResult {
	return b.write(func() (int, error) {
		p, err := b.doc.resolveParagraph(loc)
		if err != nil {
			return -1, err
		}
		if style != "" {
			p.style = style
		}
		if format != nil {
			for i := range p.runs {
				if format.Bold != nil {
					p.runs[i].Bold = *format.Bold
				}
				if format.Italic != nil {
					p.runs[i].Italic = *format.Italic
				}
				if format.Underline != nil {
					p.runs[i].Underline = *format.Underline
				}
				if format.Font != "" {
					p.runs[i].Font = format.Font
				}
				if format.Size != 0 {
					p.runs[i].Size = format.Size
				}
			}
		}
		return -1, nil
	})
}

func (d *MemoryDocument) resolveParagraph(loc Location) (*MemoryParagraph, error) {
	if loc.InCell {
		list, err := d.paragraphList(loc)
		if err != nil {
			return nil, err
		}
		if loc.Paragraph < 0 || loc.Paragraph >= len(*list) {
			return nil, fmt.Errorf("paragraph %d out of range (%d paragraphs)", loc.Paragraph, len(*list))
		}
		return (*list)[loc.Paragraph], nil
	}
	_, p, err := d.topLevelParagraph(loc.Paragraph)
	return p, err
}
