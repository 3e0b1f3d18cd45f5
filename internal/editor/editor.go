// Package editor applies ordered edit intents against a host document
// with a bounded number of synchronization barriers. The positional
// indices in the document are shared mutable state with no lock
// available, so deletions run after all other operations and in
// descending index order; that ordering is what keeps earlier
// deletions from invalidating the refs of operations still pending.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/host"
	"github.com/dgallion1/docnav/internal/ref"
	"github.com/dgallion1/docnav/internal/scope"
)

// Kind names an edit operation.
type Kind string

const (
	Replace      Kind = "replace"
	Delete       Kind = "delete"
	InsertAfter  Kind = "insertAfter"
	InsertBefore Kind = "insertBefore"
	Format       Kind = "format"
)

// Operation is one edit intent addressed by ref.
type Operation struct {
	Ref  string `json:"ref"`
	Kind Kind   `json:"operation"`

	// Text is the replacement or inserted text, required for replace
	// and insert kinds.
	Text string `json:"text,omitempty"`

	// Style and Runs apply to format operations.
	Style string          `json:"style,omitempty"`
	Runs  *host.RunFormat `json:"-"`
}

// ItemResult is the per-operation outcome. Failures carry the offending
// ref and what was wrong, so the caller can act without re-deriving
// state.
type ItemResult struct {
	Ref     string `json:"ref"`
	Kind    Kind   `json:"operation"`
	Success bool   `json:"success"`
	NewRef  string `json:"newRef,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result is the batch outcome. Success is true only when every
// operation succeeded; individual failures never abort the batch.
type Result struct {
	Success      bool         `json:"success"`
	SuccessCount int          `json:"successCount"`
	FailedCount  int          `json:"failedCount"`
	Results      []ItemResult `json:"results"`
}

// Editor applies edit batches.
type Editor struct {
	log *slog.Logger
}

// New creates an Editor. A nil logger disables diagnostics.
func New(log *slog.Logger) *Editor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Editor{log: log}
}

type resolvedOp struct {
	op       Operation
	pos      int // submission order
	loc      host.Location
	leafIdx  int
	result   *host.WriteResult
	failedAt string // non-empty when resolution already failed
}

// Apply executes the operations with at most one write barrier.
// Non-deletions run first in submission order; deletions run last in
// descending index order. Results are reported in submission order.
func (e *Editor) Apply(ctx context.Context, doc host.Document, ops []Operation) (*Result, error) {
	resolved := make([]*resolvedOp, len(ops))
	for i, op := range ops {
		r := &resolvedOp{op: op, pos: i}
		resolved[i] = r
		loc, leaf, err := resolveRef(op)
		if err != nil {
			r.failedAt = err.Error()
			continue
		}
		r.loc = loc
		r.leafIdx = leaf
	}

	// Queue order: non-deletions in submission order, then deletions in
	// descending leaf-index order.
	queue := make([]*resolvedOp, 0, len(resolved))
	var deletes []*resolvedOp
	for _, r := range resolved {
		if r.failedAt != "" {
			continue
		}
		if r.op.Kind == Delete {
			deletes = append(deletes, r)
		} else {
			queue = append(queue, r)
		}
	}
	sort.SliceStable(deletes, func(i, j int) bool {
		return deletes[i].leafIdx > deletes[j].leafIdx
	})
	queue = append(queue, deletes...)

	batch := doc.NewBatch()
	for _, r := range queue {
		switch r.op.Kind {
		case Replace:
			r.result = batch.ReplaceParagraphText(r.loc, r.op.Text)
		case Delete:
			r.result = batch.DeleteParagraph(r.loc)
		case InsertAfter:
			r.result = batch.InsertParagraph(r.loc, r.op.Text, false)
		case InsertBefore:
			r.result = batch.InsertParagraph(r.loc, r.op.Text, true)
		case Format:
			r.result = batch.FormatParagraph(r.loc, r.op.Style, r.op.Runs)
		}
	}
	if len(queue) > 0 {
		if err := batch.Sync(ctx); err != nil {
			return nil, fmt.Errorf("apply edits: %w", err)
		}
	}

	res := &Result{Results: make([]ItemResult, len(resolved))}
	for i, r := range resolved {
		item := ItemResult{Ref: r.op.Ref, Kind: r.op.Kind}
		switch {
		case r.failedAt != "":
			item.Error = r.failedAt
		case r.result != nil && r.result.Err != nil:
			if errors.Is(r.result.Err, host.ErrReadOnly) {
				item.Error = "document is read-only"
			} else {
				item.Error = r.result.Err.Error()
			}
		default:
			item.Success = true
			if r.result != nil && r.result.NewIndex >= 0 {
				item.NewRef = newParagraphRef(r.loc, r.result.NewIndex)
			}
		}
		if item.Success {
			res.SuccessCount++
		} else {
			res.FailedCount++
			e.log.Warn("edit failed", "ref", item.Ref, "operation", item.Kind, "error", item.Error)
		}
		res.Results[i] = item
	}
	res.Success = res.FailedCount == 0
	return res, nil
}

// resolveRef turns an operation's ref into a host location, validating
// that the operation makes sense for the addressed element class.
func resolveRef(op Operation) (host.Location, int, error) {
	var zero host.Location
	switch op.Kind {
	case Replace, Delete, InsertAfter, InsertBefore, Format:
	default:
		return zero, 0, fmt.Errorf("unknown operation %q", op.Kind)
	}
	if op.Ref == "" {
		return zero, 0, errors.New("missing required field: ref")
	}
	if needsText(op.Kind) && op.Text == "" {
		return zero, 0, fmt.Errorf("missing required field: text (for %s)", op.Kind)
	}

	parsed, err := ref.Parse(op.Ref)
	if err != nil {
		return zero, 0, err
	}

	leaf := parsed.Leaf()
	if leaf.Type != ref.TypeParagraph {
		return zero, 0, fmt.Errorf("ref %s addresses a %s; %s applies to paragraphs", op.Ref, leaf.Type, op.Kind)
	}

	switch parsed.Depth() {
	case 1:
		return host.Location{Paragraph: parsed.Index}, parsed.Index, nil
	case 4:
		if parsed.Type != ref.TypeTable ||
			parsed.Subrefs[0].Type != ref.TypeRow ||
			parsed.Subrefs[1].Type != ref.TypeCell {
			return zero, 0, fmt.Errorf("%w: %q is not a containment path", ref.ErrMalformed, op.Ref)
		}
		return host.Location{
			InCell:    true,
			Table:     parsed.Index,
			Row:       parsed.Subrefs[0].Index,
			Cell:      parsed.Subrefs[1].Index,
			Paragraph: parsed.Subrefs[2].Index,
		}, parsed.Subrefs[2].Index, nil
	default:
		return zero, 0, fmt.Errorf("%w: unexpected path depth in %q", ref.ErrMalformed, op.Ref)
	}
}

func needsText(k Kind) bool {
	switch k {
	case Replace, InsertAfter, InsertBefore:
		return true
	}
	return false
}

func newParagraphRef(loc host.Location, index int) string {
	if !loc.InCell {
		return ref.Encode(ref.TypeParagraph, index)
	}
	return ref.Encode(ref.TypeTable, loc.Table,
		ref.Segment{Type: ref.TypeRow, Index: loc.Row},
		ref.Segment{Type: ref.TypeCell, Index: loc.Cell},
		ref.Segment{Type: ref.TypeParagraph, Index: index},
	)
}

// ApplyScoped resolves a scope over a tree snapshot and applies the
// same operation to every match. Scoped deletions run in descending
// index order even though the resolver returns matches in document
// order.
func (e *Editor) ApplyScoped(ctx context.Context, doc host.Document, tree *doctree.Tree, spec any, scopeOpts scope.Options, kind Kind, text string, style string, runs *host.RunFormat) (*Result, error) {
	res, err := scope.Resolve(tree, spec, scopeOpts)
	if err != nil {
		return nil, fmt.Errorf("resolve scope: %w", err)
	}

	ops := make([]Operation, 0, len(res.Nodes))
	for _, n := range res.Nodes {
		// Only paragraph-class nodes are editable targets; container
		// nodes matched by the scope are skipped, not failed.
		parsed, err := ref.Parse(n.Ref)
		if err != nil || parsed.Leaf().Type != ref.TypeParagraph {
			continue
		}
		ops = append(ops, Operation{Ref: n.Ref, Kind: kind, Text: text, Style: style, Runs: runs})
	}
	return e.Apply(ctx, doc, ops)
}
