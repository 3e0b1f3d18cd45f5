// Package serialize renders an accessibility tree as structured text at
// three verbosity tiers. Minimal shows an outline with truncated text
// and table dimensions only; standard adds full text, styles and
// sidecar refs; full adds run-level formatting detail.
package serialize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// truncateAt bounds text length at the minimal tier.
const truncateAt = 40

// Tree renders the whole snapshot: a document metadata block, the
// content or outline block, and each sidecar block at most once.
func Tree(t *doctree.Tree, verbosity doctree.Verbosity) string {
	if verbosity == "" {
		verbosity = t.Verbosity
	}
	var sb strings.Builder

	sb.WriteString("document:\n")
	if t.Title != "" {
		fmt.Fprintf(&sb, "  title: %s\n", quoteIfNeeded(t.Title))
	}
	fmt.Fprintf(&sb, "  verbosity: %s\n", verbosity)
	fmt.Fprintf(&sb, "  paragraphs: %d\n", t.Stats.Paragraphs)
	fmt.Fprintf(&sb, "  tables: %d\n", t.Stats.Tables)
	fmt.Fprintf(&sb, "  headings: %d\n", t.Stats.Headings)
	fmt.Fprintf(&sb, "  words: %d\n", t.Stats.Words)
	if t.Stats.TrackedChanges > 0 {
		fmt.Fprintf(&sb, "  tracked_changes: %d\n", t.Stats.TrackedChanges)
	}
	if t.Stats.Comments > 0 {
		fmt.Fprintf(&sb, "  comments: %d\n", t.Stats.Comments)
	}
	if t.Stats.Footnotes > 0 {
		fmt.Fprintf(&sb, "  footnotes: %d\n", t.Stats.Footnotes)
	}
	if t.Stats.Bookmarks > 0 {
		fmt.Fprintf(&sb, "  bookmarks: %d\n", t.Stats.Bookmarks)
	}

	if verbosity == doctree.VerbosityMinimal {
		sb.WriteString("\noutline:\n")
	} else {
		sb.WriteString("\ncontent:\n")
	}
	for _, n := range t.Forest() {
		writeNode(&sb, n, verbosity, 1)
	}

	if verbosity != doctree.VerbosityMinimal {
		writeSidecars(&sb, t)
	}
	return sb.String()
}

func writeSidecars(sb *strings.Builder, t *doctree.Tree) {
	if len(t.TrackedChanges) > 0 {
		sb.WriteString("\ntracked_changes:\n")
		for _, c := range t.TrackedChanges {
			fmt.Fprintf(sb, "  %s %s", c.Ref, c.Type)
			if c.Author != "" {
				fmt.Fprintf(sb, " by %s", quoteIfNeeded(c.Author))
			}
			fmt.Fprintf(sb, " at %s %s\n", c.Location, quote(c.Text))
		}
	}
	if len(t.Comments) > 0 {
		sb.WriteString("\ncomments:\n")
		for _, c := range t.Comments {
			fmt.Fprintf(sb, "  %s", c.Ref)
			if c.Author != "" {
				fmt.Fprintf(sb, " by %s", quoteIfNeeded(c.Author))
			}
			if c.Location != "" {
				fmt.Fprintf(sb, " at %s", c.Location)
			}
			fmt.Fprintf(sb, " %s\n", quote(c.Text))
			for _, rep := range c.Replies {
				fmt.Fprintf(sb, "    reply")
				if rep.Author != "" {
					fmt.Fprintf(sb, " by %s", quoteIfNeeded(rep.Author))
				}
				fmt.Fprintf(sb, " %s\n", quote(rep.Text))
			}
		}
	}
	if len(t.Footnotes) > 0 {
		sb.WriteString("\nfootnotes:\n")
		for _, f := range t.Footnotes {
			fmt.Fprintf(sb, "  %s", f.Ref)
			if f.Location != "" {
				fmt.Fprintf(sb, " at %s", f.Location)
			}
			fmt.Fprintf(sb, " %s\n", quote(f.Text))
		}
	}
	if len(t.Bookmarks) > 0 {
		sb.WriteString("\nbookmarks:\n")
		for _, bm := range t.Bookmarks {
			fmt.Fprintf(sb, "  %s %s", bm.Ref, quoteIfNeeded(bm.Name))
			if bm.Location != "" {
				fmt.Fprintf(sb, " at %s", bm.Location)
			}
			sb.WriteByte('\n')
		}
	}
}

func writeNode(sb *strings.Builder, n *doctree.Node, verbosity doctree.Verbosity, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	sb.WriteString(n.Ref)
	sb.WriteByte(' ')
	sb.WriteString(roleLabel(n))

	if n.Role == doctree.RoleTable {
		if n.Dimensions != nil {
			fmt.Fprintf(sb, " %dx%d", n.Dimensions.Rows, n.Dimensions.Cols)
		}
		sb.WriteByte('\n')
		// Minimal never recurses into table internals.
		if verbosity != doctree.VerbosityMinimal {
			for _, c := range n.Children {
				writeNode(sb, c, verbosity, depth+1)
			}
		}
		return
	}

	text := n.Text
	if n.MarkedUpText != "" && verbosity != doctree.VerbosityMinimal {
		text = n.MarkedUpText
	}
	if verbosity == doctree.VerbosityMinimal {
		text = truncate(text, truncateAt)
	}
	if text != "" || leafRole(n.Role) {
		sb.WriteByte(' ')
		sb.WriteString(quoteIfNeeded(text))
	}

	if verbosity != doctree.VerbosityMinimal {
		if n.Style != "" {
			fmt.Fprintf(sb, " style=%s", quoteIfNeeded(n.Style))
		}
		if n.IsHeader {
			sb.WriteString(" header")
		}
		if len(n.ChangeRefs) > 0 {
			fmt.Fprintf(sb, " changes=[%s]", strings.Join(n.ChangeRefs, " "))
		}
		if len(n.CommentRefs) > 0 {
			fmt.Fprintf(sb, " comments=[%s]", strings.Join(n.CommentRefs, " "))
		}
		if len(n.FootnoteRefs) > 0 {
			fmt.Fprintf(sb, " footnotes=[%s]", strings.Join(n.FootnoteRefs, " "))
		}
	}
	if verbosity == doctree.VerbosityFull && n.Formatting != nil {
		sb.WriteString(" format=")
		sb.WriteString(formatLabel(n.Formatting))
	}
	sb.WriteByte('\n')

	// Simple leaf paragraphs collapse inline above; block form recurses.
	for _, c := range n.Children {
		if verbosity != doctree.VerbosityFull && (c.Role == doctree.RoleText || c.Role == doctree.RoleStrong || c.Role == doctree.RoleEmphasis) {
			continue
		}
		writeNode(sb, c, verbosity, depth+1)
	}
}

func roleLabel(n *doctree.Node) string {
	if n.Role == doctree.RoleHeading && n.Level > 0 {
		return fmt.Sprintf("heading[%d]", n.Level)
	}
	return string(n.Role)
}

func leafRole(r doctree.Role) bool {
	switch r {
	case doctree.RoleParagraph, doctree.RoleHeading, doctree.RoleBlockquote,
		doctree.RoleListItem, doctree.RoleText, doctree.RoleStrong,
		doctree.RoleEmphasis, doctree.RoleCell:
		return true
	}
	return false
}

func formatLabel(f *doctree.Formatting) string {
	var parts []string
	if f.Bold {
		parts = append(parts, "bold")
	}
	if f.Italic {
		parts = append(parts, "italic")
	}
	if f.Underline {
		parts = append(parts, "underline")
	}
	if f.Font != "" {
		parts = append(parts, "font:"+f.Font)
	}
	if f.Size != 0 {
		parts = append(parts, "size:"+strconv.FormatFloat(f.Size, 'g', -1, 64))
	}
	if len(parts) == 0 {
		return "plain"
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// reservedTokens would be ambiguous unquoted in node lines.
var reservedTokens = map[string]bool{
	"header": true, "style": true, "changes": true,
	"comments": true, "footnotes": true, "format": true,
}

// quoteIfNeeded leaves plain text bare and quotes anything that would
// be ambiguous: colons, quotes, leading/trailing space, reserved
// tokens. The empty string serializes as "".
func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if reservedTokens[s] ||
		strings.ContainsAny(s, ":\"\\\n") ||
		s != strings.TrimSpace(s) {
		return quote(s)
	}
	return s
}

func quote(s string) string {
	return strconv.Quote(s)
}
