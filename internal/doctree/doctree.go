// Package doctree defines the accessibility tree built over a host
// document: addressable nodes with a closed role set, plus the sidecar
// records (tracked changes, comments, footnotes, bookmarks) that hang
// off the tree rather than inside it.
package doctree

import "time"

// Role classifies a node. The set is closed; new kinds are added here
// so switches over Role stay exhaustive.
type Role string

const (
	RoleDocument   Role = "document"
	RoleHeading    Role = "heading"
	RoleParagraph  Role = "paragraph"
	RoleBlockquote Role = "blockquote"
	RoleList       Role = "list"
	RoleListItem   Role = "listitem"
	RoleTable      Role = "table"
	RoleRow        Role = "row"
	RoleCell       Role = "cell"
	RoleText       Role = "text"
	RoleStrong     Role = "strong"
	RoleEmphasis   Role = "emphasis"
	RoleLink       Role = "link"
	RoleInsertion  Role = "insertion"
	RoleDeletion   Role = "deletion"
	RoleComment    Role = "comment"
	RoleImage      Role = "image"
	RoleChart      Role = "chart"
	RoleDiagram    Role = "diagram"
	RoleShape      Role = "shape"
	RoleFootnote   Role = "footnote"
	RoleEndnote    Role = "endnote"
	RoleBookmark   Role = "bookmark"
)

// ValidRole reports whether r belongs to the closed role set.
func ValidRole(r Role) bool {
	switch r {
	case RoleDocument, RoleHeading, RoleParagraph, RoleBlockquote,
		RoleList, RoleListItem, RoleTable, RoleRow, RoleCell,
		RoleText, RoleStrong, RoleEmphasis, RoleLink,
		RoleInsertion, RoleDeletion, RoleComment,
		RoleImage, RoleChart, RoleDiagram, RoleShape,
		RoleFootnote, RoleEndnote, RoleBookmark:
		return true
	}
	return false
}

// Verbosity selects how much payload serialized nodes carry. It never
// changes which nodes exist.
type Verbosity string

const (
	VerbosityMinimal  Verbosity = "minimal"
	VerbosityStandard Verbosity = "standard"
	VerbosityFull     Verbosity = "full"
)

// ParseVerbosity maps a string to a tier, defaulting to standard.
func ParseVerbosity(s string) Verbosity {
	switch Verbosity(s) {
	case VerbosityMinimal, VerbosityStandard, VerbosityFull:
		return Verbosity(s)
	}
	return VerbosityStandard
}

// Dimensions is the row/column shape of a table node.
type Dimensions struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Formatting carries run-level detail, populated only at full verbosity.
type Formatting struct {
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
	Font      string  `json:"font,omitempty"`
	Size      float64 `json:"size,omitempty"`
}

// Node is one addressable document element. A node with Children does
// not also carry flattened Text, except for the single-child collapse
// used for simple leaf paragraphs.
type Node struct {
	Ref  string `json:"ref"`
	Role Role   `json:"role"`

	Text         string `json:"text,omitempty"`
	MarkedUpText string `json:"markedUpText,omitempty"`
	Style        string `json:"style,omitempty"`

	// Role-specific fields.
	Level      int         `json:"level,omitempty"`      // headings
	IsHeader   bool        `json:"isHeader,omitempty"`   // table rows
	Dimensions *Dimensions `json:"dimensions,omitempty"` // tables

	Children []*Node `json:"children,omitempty"`

	// Back-references into the sidecar collections.
	ChangeRefs   []string `json:"changeRefs,omitempty"`
	CommentRefs  []string `json:"commentRefs,omitempty"`
	FootnoteRefs []string `json:"footnoteRefs,omitempty"`

	Formatting *Formatting `json:"formatting,omitempty"` // full tier only
}

// ChangeKind is the direction of a tracked change.
type ChangeKind string

const (
	ChangeInsertion ChangeKind = "insertion"
	ChangeDeletion  ChangeKind = "deletion"
)

// TrackedChange is a synthesized or native revision record. Synthesized
// records come from text diffing and do not correspond to host revision
// IDs.
type TrackedChange struct {
	Ref      string     `json:"ref"`
	Type     ChangeKind `json:"type"`
	Author   string     `json:"author,omitempty"`
	Date     time.Time  `json:"date,omitzero"`
	Text     string     `json:"text"`
	Location string     `json:"location"` // ref of the containing paragraph
}

// CommentReply is one reply in a comment thread.
type CommentReply struct {
	Author string    `json:"author,omitempty"`
	Date   time.Time `json:"date,omitzero"`
	Text   string    `json:"text"`
}

// Comment is an annotation anchored to a document range.
type Comment struct {
	Ref      string         `json:"ref"`
	Author   string         `json:"author,omitempty"`
	Date     time.Time      `json:"date,omitzero"`
	Text     string         `json:"text"`
	Location string         `json:"location"`
	Anchor   string         `json:"anchor,omitempty"` // text of the commented range
	Replies  []CommentReply `json:"replies,omitempty"`
}

// Footnote is a footnote or endnote with its paragraph back-reference.
type Footnote struct {
	Ref      string `json:"ref"`
	Text     string `json:"text"`
	Location string `json:"location,omitempty"`
	Endnote  bool   `json:"endnote,omitempty"`
}

// Bookmark is a named position in the document.
type Bookmark struct {
	Ref      string `json:"ref"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Stats are per-kind counts reported in the tree header. After scope
// filtering they reflect the filtered subset.
type Stats struct {
	Paragraphs     int `json:"paragraphs"`
	Tables         int `json:"tables"`
	Headings       int `json:"headings"`
	Words          int `json:"words"`
	TrackedChanges int `json:"trackedChanges,omitempty"`
	Comments       int `json:"comments,omitempty"`
	Footnotes      int `json:"footnotes,omitempty"`
	Bookmarks      int `json:"bookmarks,omitempty"`
}

// Tree is one snapshot of the document. It is built fresh on each read
// and never mutated in place: any edit invalidates it.
type Tree struct {
	Title     string    `json:"title,omitempty"`
	Verbosity Verbosity `json:"verbosity"`
	Stats     Stats     `json:"stats"`

	// Content holds the node forest at standard/full verbosity;
	// Outline replaces it at minimal verbosity.
	Content []*Node `json:"content,omitempty"`
	Outline []*Node `json:"outline,omitempty"`

	TrackedChanges []TrackedChange `json:"trackedChanges,omitempty"`
	Comments       []Comment       `json:"comments,omitempty"`
	Footnotes      []Footnote      `json:"footnotes,omitempty"`
	Bookmarks      []Bookmark      `json:"bookmarks,omitempty"`
}

// Forest returns whichever node forest the tree carries.
func (t *Tree) Forest() []*Node {
	if t.Content != nil {
		return t.Content
	}
	return t.Outline
}

// Walk visits nodes in pre-order (document order). Returning false from
// fn stops the walk.
func Walk(nodes []*Node, fn func(*Node) bool) bool {
	for _, n := range nodes {
		if !fn(n) {
			return false
		}
		if !Walk(n.Children, fn) {
			return false
		}
	}
	return true
}

// Flatten returns the forest in document order.
func Flatten(nodes []*Node) []*Node {
	var out []*Node
	Walk(nodes, func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// FindByRef locates a node by its ref in the tree's forest.
func (t *Tree) FindByRef(r string) *Node {
	var found *Node
	Walk(t.Forest(), func(n *Node) bool {
		if n.Ref == r {
			found = n
			return false
		}
		return true
	})
	return found
}
