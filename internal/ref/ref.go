// Package ref implements the address grammar used to identify document
// elements: one or more "/"-separated segments, each "type:index".
// Segments form a strict containment path, e.g. tbl:0/row:2/cell:1/p:0
// is the first paragraph in the second cell of the third row of the
// first table.
package ref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned when a ref does not match the grammar.
	ErrMalformed = errors.New("malformed ref")

	// ErrFingerprint is returned for fingerprint refs (p:~xK4mNp2q).
	// The grammar reserves them but no fingerprint index exists yet.
	ErrFingerprint = errors.New("fingerprint refs not yet supported")
)

// Segment is one type:index step in a containment path.
type Segment struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Ref is a parsed address. Subrefs hold the containment path below the
// top-level segment, outermost first.
type Ref struct {
	Type    string    `json:"type"`
	Index   int       `json:"index"`
	Subrefs []Segment `json:"subrefs,omitempty"`
}

// Element type prefixes in use.
const (
	TypeParagraph = "p"
	TypeTable     = "tbl"
	TypeRow       = "row"
	TypeCell      = "cell"
	TypeFootnote  = "fn"
	TypeEndnote   = "en"
	TypeInsertion = "ins"
	TypeDeletion  = "del"
	TypeComment   = "cmt"
	TypeHeader    = "hdr"
	TypeFooter    = "ftr"
	TypeImage     = "img"
	TypeBookmark  = "bk"
	TypeLink      = "lnk"
)

// KnownTypes lists the element prefixes this layer assigns. Parse does
// not reject unknown prefixes; the grammar allows any lowercase word.
var KnownTypes = map[string]bool{
	TypeParagraph: true,
	TypeTable:     true,
	TypeRow:       true,
	TypeCell:      true,
	TypeFootnote:  true,
	TypeEndnote:   true,
	TypeInsertion: true,
	TypeDeletion:  true,
	TypeComment:   true,
	TypeHeader:    true,
	TypeFooter:    true,
	TypeImage:     true,
	TypeBookmark:  true,
	TypeLink:      true,
}

// Parse decodes a ref string into its typed segments.
func Parse(s string) (*Ref, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformed)
	}

	parts := strings.Split(s, "/")
	segs := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	r := &Ref{Type: segs[0].Type, Index: segs[0].Index}
	if len(segs) > 1 {
		r.Subrefs = segs[1:]
	}
	return r, nil
}

func parseSegment(part string) (Segment, error) {
	typ, idx, ok := strings.Cut(part, ":")
	if !ok || typ == "" || idx == "" {
		return Segment{}, fmt.Errorf("%w: %q", ErrMalformed, part)
	}
	for _, c := range typ {
		if c < 'a' || c > 'z' {
			return Segment{}, fmt.Errorf("%w: bad type in %q", ErrMalformed, part)
		}
	}
	if idx[0] == '~' {
		token := idx[1:]
		if token == "" || !isAlnum(token) {
			return Segment{}, fmt.Errorf("%w: bad fingerprint in %q", ErrMalformed, part)
		}
		return Segment{}, fmt.Errorf("%w: %q", ErrFingerprint, part)
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return Segment{}, fmt.Errorf("%w: bad index in %q", ErrMalformed, part)
	}
	return Segment{Type: typ, Index: n}, nil
}

func isAlnum(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

// Encode builds a ref string from typed segments. It is the inverse of
// Parse for ordinal refs.
func Encode(typ string, index int, subs ...Segment) string {
	var sb strings.Builder
	sb.WriteString(typ)
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(index))
	for _, s := range subs {
		sb.WriteByte('/')
		sb.WriteString(s.Type)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(s.Index))
	}
	return sb.String()
}

// String re-encodes the parsed ref.
func (r *Ref) String() string {
	return Encode(r.Type, r.Index, r.Subrefs...)
}

// Leaf returns the innermost segment. A compound ref like
// tbl:0/row:2/cell:1/p:0 classifies as a paragraph, uniformly with a
// top-level p:5.
func (r *Ref) Leaf() Segment {
	if len(r.Subrefs) == 0 {
		return Segment{Type: r.Type, Index: r.Index}
	}
	return r.Subrefs[len(r.Subrefs)-1]
}

// Depth returns the number of segments in the containment path.
func (r *Ref) Depth() int {
	return 1 + len(r.Subrefs)
}
