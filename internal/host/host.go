// Package host is the boundary to the document object model. The host
// is a proxy: nothing is readable or applied until a synchronization
// barrier runs. A Batch queues typed reads and writes and hands back
// result holders; Sync is the single suspension point, after which
// every holder queued before it is filled. Operations queued before a
// barrier are applied in queue order, and nothing crosses a barrier.
//
// Barriers are the dominant latency cost against a remote host, so
// callers queue everything they can before each Sync instead of syncing
// per item.
package host

import (
	"context"
	"errors"
	"time"
)

// ErrNotSynced is returned when a result holder is read before the
// batch that produced it has synced.
var ErrNotSynced = errors.New("host: result read before Sync")

// ErrReadOnly marks write attempts against a read-only document.
var ErrReadOnly = errors.New("host: document is read-only")

// Document is an open host document. Batches from the same document
// must not be synced concurrently; callers serialize access.
type Document interface {
	Title() string
	ReadOnly() bool
	NewBatch() Batch
}

// LoadOptions selects optional payload for body reads.
type LoadOptions struct {
	Runs      bool // include run fragments per paragraph
	Baselines bool // include tracked-change baseline text
}

// Location addresses one paragraph, either top-level or inside a table
// cell.
type Location struct {
	Paragraph int // top-level paragraph index, or index within the cell
	InCell    bool
	Table     int
	Row       int
	Cell      int
}

// RunData is one formatting run inside a paragraph.
type RunData struct {
	Text      string
	Bold      bool
	Italic    bool
	Underline bool
	Font      string
	Size      float64
}

// ParagraphData is a paragraph snapshot. OriginalText is the
// tracked-change baseline; empty HasBaseline means change detection is
// unavailable for this paragraph and it is treated as unchanged.
type ParagraphData struct {
	Index        int
	Text         string
	Style        string
	OriginalText string
	HasBaseline  bool
	Runs         []RunData
}

// TableDims is the shape of a table discovered during a body read.
type TableDims struct {
	Index int
	Rows  int
	Cols  int
}

// BodyItemKind discriminates body items.
type BodyItemKind int

const (
	ItemParagraph BodyItemKind = iota
	ItemTable
)

// BodyItem is one top-level element in document order.
type BodyItem struct {
	Kind      BodyItemKind
	Paragraph *ParagraphData // when Kind == ItemParagraph
	Table     *TableDims     // when Kind == ItemTable
}

// RowData is a table row snapshot.
type RowData struct {
	Index    int
	Cells    int
	IsHeader bool
}

// CommentData is a comment with its thread, loaded in one barrier.
type CommentData struct {
	Index     int
	Author    string
	Date      time.Time
	Text      string
	Paragraph int // index of the anchoring top-level paragraph
	Anchor    string
	Replies   []ReplyData
}

// ReplyData is one comment reply.
type ReplyData struct {
	Author string
	Date   time.Time
	Text   string
}

// FootnoteData is a footnote or endnote extracted from raw markup.
type FootnoteData struct {
	Index     int
	Text      string
	Paragraph int // back-reference, -1 when unknown
	Endnote   bool
}

// BookmarkData is a named document position.
type BookmarkData struct {
	Index     int
	Name      string
	Paragraph int
}

// BodyResult holds a queued body read.
type BodyResult struct {
	Items  []BodyItem
	Err    error
	synced bool
}

// RowsResult holds a queued table-row read.
type RowsResult struct {
	Rows   []RowData
	Err    error
	synced bool
}

// CellParagraphsResult holds a queued cell-paragraph read.
type CellParagraphsResult struct {
	Paragraphs []ParagraphData
	Err        error
	synced     bool
}

// CommentsResult holds a queued comment-collection read. Replies and
// anchor text load in the same barrier as the comment list.
type CommentsResult struct {
	Comments []CommentData
	Err      error
	synced   bool
}

// FootnotesResult holds a queued footnote extraction. Absence of
// footnote markup yields an empty slice, not an error.
type FootnotesResult struct {
	Footnotes []FootnoteData
	Err       error
	synced    bool
}

// BookmarksResult holds a queued bookmark read.
type BookmarksResult struct {
	Bookmarks []BookmarkData
	Err       error
	synced    bool
}

// WriteResult records the per-item outcome of a queued write. A failed
// write never aborts the rest of the batch.
type WriteResult struct {
	Err      error
	NewIndex int // index of an inserted paragraph, -1 otherwise
	synced   bool
}

// Ready reports whether the producing batch has synced.
func (r *BodyResult) Ready() bool           { return r.synced }
func (r *RowsResult) Ready() bool           { return r.synced }
func (r *CellParagraphsResult) Ready() bool { return r.synced }
func (r *CommentsResult) Ready() bool       { return r.synced }
func (r *FootnotesResult) Ready() bool      { return r.synced }
func (r *BookmarksResult) Ready() bool      { return r.synced }
func (r *WriteResult) Ready() bool          { return r.synced }

// Batch queues reads and writes. Result holders are filled by Sync.
type Batch interface {
	LoadBody(opts LoadOptions) *BodyResult
	LoadTableRows(table int) *RowsResult
	LoadCellParagraphs(table, row, cell int, opts LoadOptions) *CellParagraphsResult
	LoadComments() *CommentsResult
	LoadFootnotes() *FootnotesResult
	LoadBookmarks() *BookmarksResult

	ReplaceParagraphText(loc Location, text string) *WriteResult
	InsertParagraph(loc Location, text string, before bool) *WriteResult
	DeleteParagraph(loc Location) *WriteResult
	FormatParagraph(loc Location, style string, format *RunFormat) *WriteResult

	// Sync executes every queued operation in queue order. Per-item
	// failures are recorded on their result holders; Sync itself fails
	// only when the host connection is unusable.
	Sync(ctx context.Context) error
}

// RunFormat is a formatting patch applied across a paragraph's runs.
// Nil fields are left untouched.
type RunFormat struct {
	Bold      *bool
	Italic    *bool
	Underline *bool
	Font      string
	Size      float64
}
