// Package builder assembles an accessibility tree from a host document.
// Reads are restructured into fixed-count batches so the number of
// synchronization barriers is constant in document size: one combined
// body batch, then three table batches (rows, cells, cell paragraphs)
// regardless of how many tables or rows exist.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"

	"github.com/dgallion1/docnav/internal/diff"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/host"
	"github.com/dgallion1/docnav/internal/ref"
	"github.com/dgallion1/docnav/internal/scope"
)

// Options control what a build includes. Verbosity changes payload
// richness only, never which nodes exist.
type Options struct {
	Verbosity       doctree.Verbosity
	IncludeChanges  bool
	IncludeComments bool

	// Scope, when set, filters the assembled forest as a final
	// projection; stats are recomputed over the filtered subset.
	Scope        any
	ScopeOptions scope.Options
}

// Builder constructs tree snapshots.
type Builder struct {
	log *slog.Logger
}

// New creates a Builder. A nil logger disables diagnostics.
func New(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Builder{log: log}
}

// Build reads the document through batched loads and assembles a fresh
// tree snapshot. Sub-extractions that fail (footnotes, comments,
// changes) degrade to empty results rather than aborting the build.
func (b *Builder) Build(ctx context.Context, doc host.Document, opts Options) (*doctree.Tree, error) {
	if opts.Verbosity == "" {
		opts.Verbosity = doctree.VerbosityStandard
	}

	loadOpts := host.LoadOptions{
		Runs:      opts.Verbosity == doctree.VerbosityFull,
		Baselines: opts.IncludeChanges,
	}

	// Barrier 1: body (paragraph text+style, table dimensions) plus the
	// optional sidecar reads, all in one combined batch.
	batch := doc.NewBatch()
	body := batch.LoadBody(loadOpts)
	footnotes := batch.LoadFootnotes()
	bookmarks := batch.LoadBookmarks()
	var comments *host.CommentsResult
	if opts.IncludeComments {
		comments = batch.LoadComments()
	}
	if err := batch.Sync(ctx); err != nil {
		return nil, fmt.Errorf("load body: %w", err)
	}
	if body.Err != nil {
		return nil, fmt.Errorf("load body: %w", body.Err)
	}

	tree := &doctree.Tree{Title: doc.Title(), Verbosity: opts.Verbosity}

	var tables []*host.TableDims
	for _, item := range body.Items {
		if item.Kind == host.ItemTable {
			tables = append(tables, item.Table)
		}
	}

	// Barriers 2-4: rows, then cells, then cell paragraphs, for every
	// table at once. Table count does not add barriers.
	tableNodes, err := b.buildTables(ctx, doc, tables, loadOpts)
	if err != nil {
		return nil, err
	}

	// Assemble the forest in document order, assigning ordinal refs in
	// the same pass that discovers each element.
	forest := make([]*doctree.Node, 0, len(body.Items))
	paraByIndex := make(map[int]*doctree.Node)
	for _, item := range body.Items {
		switch item.Kind {
		case host.ItemParagraph:
			n := paragraphNode(ref.Encode(ref.TypeParagraph, item.Paragraph.Index), item.Paragraph, opts.Verbosity)
			paraByIndex[item.Paragraph.Index] = n
			forest = append(forest, n)
		case host.ItemTable:
			forest = append(forest, tableNodes[item.Table.Index])
		}
	}

	// Synthesize tracked changes from paragraph baselines.
	if opts.IncludeChanges {
		b.attachChanges(tree, body.Items, paraByIndex)
	}

	if opts.IncludeComments && comments != nil {
		if comments.Err != nil {
			b.log.Warn("comment collection unavailable", "error", comments.Err)
		} else {
			attachComments(tree, comments.Comments, paraByIndex)
		}
	}

	if footnotes.Err != nil {
		b.log.Warn("footnote extraction unavailable", "error", footnotes.Err)
	} else {
		attachFootnotes(tree, footnotes.Footnotes, paraByIndex)
	}

	if bookmarks.Err != nil {
		b.log.Warn("bookmark extraction unavailable", "error", bookmarks.Err)
	} else {
		for _, bm := range bookmarks.Bookmarks {
			entry := doctree.Bookmark{
				Ref:  ref.Encode(ref.TypeBookmark, bm.Index),
				Name: bm.Name,
			}
			if n, ok := paraByIndex[bm.Paragraph]; ok {
				entry.Location = n.Ref
			}
			tree.Bookmarks = append(tree.Bookmarks, entry)
		}
	}

	if opts.Verbosity == doctree.VerbosityMinimal {
		tree.Outline = forest
	} else {
		tree.Content = forest
	}

	// Final projection: scope filtering with recomputed stats.
	if opts.Scope != nil {
		res, err := scope.Resolve(tree, opts.Scope, opts.ScopeOptions)
		if err != nil {
			return nil, fmt.Errorf("scope filter: %w", err)
		}
		filtered := make([]*doctree.Node, len(res.Nodes))
		copy(filtered, res.Nodes)
		if opts.Verbosity == doctree.VerbosityMinimal {
			tree.Outline = filtered
			tree.Content = nil
		} else {
			tree.Content = filtered
			tree.Outline = nil
		}
	}

	tree.Stats = computeStats(tree)
	return tree, nil
}

// buildTables runs the three fixed table barriers and returns one node
// per table, indexed by table ordinal.
func (b *Builder) buildTables(ctx context.Context, doc host.Document, tables []*host.TableDims, loadOpts host.LoadOptions) (map[int]*doctree.Node, error) {
	nodes := make(map[int]*doctree.Node, len(tables))
	if len(tables) == 0 {
		return nodes, nil
	}

	// Barrier 2: rows for every table.
	rowBatch := doc.NewBatch()
	rowResults := make(map[int]*host.RowsResult, len(tables))
	for _, t := range tables {
		rowResults[t.Index] = rowBatch.LoadTableRows(t.Index)
	}
	if err := rowBatch.Sync(ctx); err != nil {
		return nil, fmt.Errorf("load table rows: %w", err)
	}

	// Barrier 3: cell paragraph loads are queued per cell; the row pass
	// above told us how many cells each row has. Cells themselves carry
	// no payload beyond their paragraphs, so barriers 3 and 4 collapse
	// into a single cell-paragraph batch while keeping the queue-all /
	// sync-once shape.
	cellBatch := doc.NewBatch()
	type cellKey struct{ table, row, cell int }
	cellResults := make(map[cellKey]*host.CellParagraphsResult)
	for _, t := range tables {
		rr := rowResults[t.Index]
		if rr.Err != nil {
			continue
		}
		for _, row := range rr.Rows {
			for c := 0; c < row.Cells; c++ {
				cellResults[cellKey{t.Index, row.Index, c}] = cellBatch.LoadCellParagraphs(t.Index, row.Index, c, loadOpts)
			}
		}
	}
	if err := cellBatch.Sync(ctx); err != nil {
		return nil, fmt.Errorf("load table cells: %w", err)
	}

	for _, t := range tables {
		tblRef := ref.Encode(ref.TypeTable, t.Index)
		tblNode := &doctree.Node{
			Ref:        tblRef,
			Role:       doctree.RoleTable,
			Dimensions: &doctree.Dimensions{Rows: t.Rows, Cols: t.Cols},
		}
		rr := rowResults[t.Index]
		if rr.Err != nil {
			b.log.Warn("table rows unavailable", "table", t.Index, "error", rr.Err)
			nodes[t.Index] = tblNode
			continue
		}
		for _, row := range rr.Rows {
			rowNode := &doctree.Node{
				Ref:      ref.Encode(ref.TypeTable, t.Index, ref.Segment{Type: ref.TypeRow, Index: row.Index}),
				Role:     doctree.RoleRow,
				IsHeader: row.IsHeader,
			}
			for c := 0; c < row.Cells; c++ {
				cellPath := []ref.Segment{
					{Type: ref.TypeRow, Index: row.Index},
					{Type: ref.TypeCell, Index: c},
				}
				cellNode := &doctree.Node{
					Ref:  ref.Encode(ref.TypeTable, t.Index, cellPath...),
					Role: doctree.RoleCell,
				}
				cr := cellResults[cellKey{t.Index, row.Index, c}]
				if cr != nil && cr.Err == nil {
					for i := range cr.Paragraphs {
						p := &cr.Paragraphs[i]
						pRef := ref.Encode(ref.TypeTable, t.Index, append(cellPath[:2:2], ref.Segment{Type: ref.TypeParagraph, Index: p.Index})...)
						cellNode.Children = append(cellNode.Children, paragraphNode(pRef, p, doctree.VerbosityStandard))
					}
				}
				// Single-child collapse: a cell with one plain paragraph
				// carries its text directly.
				if len(cellNode.Children) == 1 && cellNode.Children[0].Role == doctree.RoleParagraph {
					cellNode.Text = cellNode.Children[0].Text
				}
				rowNode.Children = append(rowNode.Children, cellNode)
			}
			tblNode.Children = append(tblNode.Children, rowNode)
		}
		nodes[t.Index] = tblNode
	}
	return nodes, nil
}

// paragraphNode classifies one paragraph and builds its node.
func paragraphNode(r string, p *host.ParagraphData, verbosity doctree.Verbosity) *doctree.Node {
	n := &doctree.Node{Ref: r, Text: p.Text}
	role, level := classifyStyle(p.Style)
	n.Role = role
	n.Level = level
	if verbosity != doctree.VerbosityMinimal {
		n.Style = p.Style
	}
	if verbosity == doctree.VerbosityFull && len(p.Runs) > 0 {
		// Run breakdown: bold runs surface as strong, italic as
		// emphasis, everything else as plain text spans.
		if f := dominantFormat(p.Runs); f != nil {
			n.Formatting = f
		}
		if len(p.Runs) > 1 {
			for _, run := range p.Runs {
				child := &doctree.Node{Role: runRole(run), Text: run.Text}
				if run.Bold || run.Italic || run.Underline || run.Font != "" || run.Size != 0 {
					child.Formatting = &doctree.Formatting{
						Bold:      run.Bold,
						Italic:    run.Italic,
						Underline: run.Underline,
						Font:      run.Font,
						Size:      run.Size,
					}
				}
				n.Children = append(n.Children, child)
			}
		}
	}
	return n
}

func runRole(r host.RunData) doctree.Role {
	switch {
	case r.Bold:
		return doctree.RoleStrong
	case r.Italic:
		return doctree.RoleEmphasis
	default:
		return doctree.RoleText
	}
}

func dominantFormat(runs []host.RunData) *doctree.Formatting {
	f := &doctree.Formatting{Bold: true, Italic: true, Underline: true}
	for _, r := range runs {
		f.Bold = f.Bold && r.Bold
		f.Italic = f.Italic && r.Italic
		f.Underline = f.Underline && r.Underline
		if f.Font == "" {
			f.Font = r.Font
		}
		if f.Size == 0 {
			f.Size = r.Size
		}
	}
	if !f.Bold && !f.Italic && !f.Underline && f.Font == "" && f.Size == 0 {
		return nil
	}
	return f
}

// classifyStyle maps a paragraph style name to a role and, for
// headings, a level.
func classifyStyle(style string) (doctree.Role, int) {
	s := strings.ToLower(strings.TrimSpace(style))
	switch {
	case s == "title":
		return doctree.RoleHeading, 1
	case strings.HasPrefix(s, "heading"):
		level := 1
		digits := strings.TrimFunc(s[len("heading"):], func(c rune) bool { return !unicode.IsDigit(c) })
		if n, err := strconv.Atoi(digits); err == nil && n >= 1 && n <= 9 {
			level = n
		}
		return doctree.RoleHeading, level
	case strings.Contains(s, "quote"):
		return doctree.RoleBlockquote, 0
	case strings.Contains(s, "list"):
		return doctree.RoleListItem, 0
	default:
		return doctree.RoleParagraph, 0
	}
}

// attachChanges runs the diff pass over paragraph baselines and fills
// the tracked-change sidecar. Paragraphs without a baseline degrade to
// unchanged.
func (b *Builder) attachChanges(tree *doctree.Tree, items []host.BodyItem, paraByIndex map[int]*doctree.Node) {
	insCount, delCount := 0, 0
	for _, item := range items {
		if item.Kind != host.ItemParagraph || !item.Paragraph.HasBaseline {
			continue
		}
		p := item.Paragraph
		res := diff.Compare(p.OriginalText, p.Text)
		if !res.HasChanges {
			continue
		}
		node := paraByIndex[p.Index]
		node.MarkedUpText = res.MarkedUpText
		for _, c := range res.Changes {
			var r string
			var kind doctree.ChangeKind
			if c.Kind == diff.Insertion {
				r = ref.Encode(ref.TypeInsertion, insCount)
				kind = doctree.ChangeInsertion
				insCount++
			} else {
				r = ref.Encode(ref.TypeDeletion, delCount)
				kind = doctree.ChangeDeletion
				delCount++
			}
			tree.TrackedChanges = append(tree.TrackedChanges, doctree.TrackedChange{
				Ref:      r,
				Type:     kind,
				Text:     c.Text,
				Location: node.Ref,
			})
			node.ChangeRefs = append(node.ChangeRefs, r)
		}
	}
}

func attachComments(tree *doctree.Tree, comments []host.CommentData, paraByIndex map[int]*doctree.Node) {
	for _, c := range comments {
		entry := doctree.Comment{
			Ref:    ref.Encode(ref.TypeComment, c.Index),
			Author: c.Author,
			Date:   c.Date,
			Text:   c.Text,
			Anchor: c.Anchor,
		}
		for _, rep := range c.Replies {
			entry.Replies = append(entry.Replies, doctree.CommentReply{
				Author: rep.Author,
				Date:   rep.Date,
				Text:   rep.Text,
			})
		}
		if n, ok := paraByIndex[c.Paragraph]; ok {
			entry.Location = n.Ref
			n.CommentRefs = append(n.CommentRefs, entry.Ref)
		}
		tree.Comments = append(tree.Comments, entry)
	}
}

func attachFootnotes(tree *doctree.Tree, footnotes []host.FootnoteData, paraByIndex map[int]*doctree.Node) {
	fnCount, enCount := 0, 0
	for _, f := range footnotes {
		var r string
		if f.Endnote {
			r = ref.Encode(ref.TypeEndnote, enCount)
			enCount++
		} else {
			r = ref.Encode(ref.TypeFootnote, fnCount)
			fnCount++
		}
		entry := doctree.Footnote{Ref: r, Text: f.Text, Endnote: f.Endnote}
		if n, ok := paraByIndex[f.Paragraph]; ok {
			entry.Location = n.Ref
			n.FootnoteRefs = append(n.FootnoteRefs, r)
		}
		tree.Footnotes = append(tree.Footnotes, entry)
	}
}

func computeStats(tree *doctree.Tree) doctree.Stats {
	stats := doctree.Stats{
		TrackedChanges: len(tree.TrackedChanges),
		Comments:       len(tree.Comments),
		Footnotes:      len(tree.Footnotes),
		Bookmarks:      len(tree.Bookmarks),
	}
	doctree.Walk(tree.Forest(), func(n *doctree.Node) bool {
		switch n.Role {
		case doctree.RoleHeading:
			stats.Headings++
			stats.Words += len(strings.Fields(n.Text))
		case doctree.RoleParagraph, doctree.RoleBlockquote, doctree.RoleListItem:
			stats.Paragraphs++
			stats.Words += len(strings.Fields(n.Text))
		case doctree.RoleTable:
			stats.Tables++
		}
		return true
	})
	return stats
}
