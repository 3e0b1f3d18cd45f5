// Package scope selects subsets of an accessibility tree. A scope spec
// is a shorthand string, a Filter, or an opaque predicate; all three
// normalize to the same evaluation contract over the flattened tree.
package scope

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docnav/internal/doctree"
)

// Filter is an AND-combination of optional predicates. Zero fields
// impose no constraint.
type Filter struct {
	Contains    string   `json:"contains,omitempty"`
	NotContains string   `json:"notContains,omitempty"`
	Section     string   `json:"section,omitempty"`
	Role        string   `json:"role,omitempty"`
	Style       string   `json:"style,omitempty"`
	HasChanges  bool     `json:"hasChanges,omitempty"`
	HasComments bool     `json:"hasComments,omitempty"`
	Level       int      `json:"level,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Refs        []string `json:"refs,omitempty"`
	MinLength   int      `json:"minLength,omitempty"`
	MaxLength   int      `json:"maxLength,omitempty"`

	// Opaque marks a filter normalized from a predicate function. It
	// cannot be evaluated remotely; receivers reject it instead of
	// silently matching everything.
	Opaque bool `json:"opaque,omitempty"`
}

// Predicate is the function-typed scope variant. It cannot cross the
// transport boundary.
type Predicate func(*doctree.Node) bool

// Options tune evaluation.
type Options struct {
	// CaseSensitive applies to Contains, NotContains, Style and Pattern
	// matching. Default is case-insensitive.
	CaseSensitive bool

	// IncludeHeadings includes a section's own heading in its matches.
	IncludeHeadings bool
}

// Result is the outcome of a resolution pass.
type Result struct {
	Nodes          []*doctree.Node `json:"nodes"`
	TotalEvaluated int             `json:"totalEvaluated"`
	Filter         *Filter         `json:"normalizedFilter,omitempty"`
}

// Normalize converts any supported spec form into a Filter plus an
// optional predicate. Accepted forms: nil (match all), string
// shorthand, Filter, *Filter, Predicate, func(*doctree.Node) bool.
func Normalize(spec any) (*Filter, Predicate, error) {
	switch s := spec.(type) {
	case nil:
		return &Filter{}, nil, nil
	case string:
		return ParseShorthand(s), nil, nil
	case Filter:
		f := s
		return &f, nil, nil
	case *Filter:
		if s == nil {
			return &Filter{}, nil, nil
		}
		f := *s
		return &f, nil, nil
	case Predicate:
		return &Filter{Opaque: true}, s, nil
	case func(*doctree.Node) bool:
		return &Filter{Opaque: true}, s, nil
	default:
		return nil, nil, fmt.Errorf("unsupported scope spec type %T", spec)
	}
}

// ParseShorthand parses the string shorthand grammar. Precedence is
// fixed and first match wins; anything unrecognized becomes a contains
// filter on the whole string.
func ParseShorthand(s string) *Filter {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)

	if v, ok := cutPrefixFold(trimmed, "section:"); ok {
		return &Filter{Section: v}
	}
	if v, ok := cutPrefixFold(trimmed, "paragraph_containing:"); ok {
		return &Filter{Contains: v, Role: string(doctree.RoleParagraph)}
	}
	if v, ok := cutPrefixFold(trimmed, "role:"); ok {
		return &Filter{Role: strings.ToLower(strings.TrimSpace(v))}
	}
	if v, ok := cutPrefixFold(trimmed, "style:"); ok {
		return &Filter{Style: strings.TrimSpace(v)}
	}
	if v, ok := cutPrefixFold(trimmed, "level:"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return &Filter{Level: n, Role: string(doctree.RoleHeading)}
		}
		return &Filter{Contains: trimmed}
	}

	switch lower {
	case "footnotes":
		return &Filter{Role: string(doctree.RoleFootnote)}
	case "endnotes":
		return &Filter{Role: string(doctree.RoleEndnote)}
	case "notes":
		return &Filter{Role: "note"} // footnote or endnote
	case "changes", "tracked":
		return &Filter{HasChanges: true}
	case "comments":
		return &Filter{HasComments: true}
	}

	if v, ok := cutPrefixFold(trimmed, "footnote:"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return &Filter{Refs: []string{fmt.Sprintf("fn:%d", n)}}
		}
	}
	if v, ok := cutPrefixFold(trimmed, "endnote:"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return &Filter{Refs: []string{fmt.Sprintf("en:%d", n)}}
		}
	}

	return &Filter{Contains: trimmed}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return "", false
}

// Resolve flattens the tree to document order and evaluates the
// normalized spec against every node.
func Resolve(tree *doctree.Tree, spec any, opts Options) (*Result, error) {
	filter, pred, err := Normalize(spec)
	if err != nil {
		return nil, err
	}

	var re *regexp.Regexp
	if filter.Pattern != "" {
		pat := filter.Pattern
		if !opts.CaseSensitive && !strings.HasPrefix(pat, "(?i)") {
			pat = "(?i)" + pat
		}
		re, err = regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("bad scope pattern: %w", err)
		}
	}

	refSet := make(map[string]bool, len(filter.Refs))
	for _, r := range filter.Refs {
		refSet[r] = true
	}

	flat := doctree.Flatten(tree.Forest())
	res := &Result{Filter: filter, TotalEvaluated: len(flat)}

	for i, n := range flat {
		if pred != nil {
			if pred(n) {
				res.Nodes = append(res.Nodes, n)
			}
			continue
		}
		if matchFilter(n, flat, i, filter, re, refSet, opts) {
			res.Nodes = append(res.Nodes, n)
		}
	}
	return res, nil
}

func matchFilter(n *doctree.Node, flat []*doctree.Node, idx int, f *Filter, re *regexp.Regexp, refSet map[string]bool, opts Options) bool {
	if len(refSet) > 0 && !refSet[n.Ref] {
		return false
	}
	if f.Role != "" && !matchRole(n, f.Role) {
		return false
	}
	if f.Level != 0 && n.Level != f.Level {
		return false
	}
	if f.Style != "" && !containsFold(n.Style, f.Style, opts.CaseSensitive) {
		return false
	}
	if f.Contains != "" && !containsFold(n.Text, f.Contains, opts.CaseSensitive) {
		return false
	}
	if f.NotContains != "" && containsFold(n.Text, f.NotContains, opts.CaseSensitive) {
		return false
	}
	if f.HasChanges && len(n.ChangeRefs) == 0 {
		return false
	}
	if f.HasComments && len(n.CommentRefs) == 0 {
		return false
	}
	if f.MinLength > 0 && len(n.Text) < f.MinLength {
		return false
	}
	if f.MaxLength > 0 && len(n.Text) > f.MaxLength {
		return false
	}
	if re != nil && !re.MatchString(n.Text) {
		return false
	}
	if f.Section != "" && !inSection(flat, idx, f.Section, opts) {
		return false
	}
	return true
}

func matchRole(n *doctree.Node, want string) bool {
	if want == "note" {
		return n.Role == doctree.RoleFootnote || n.Role == doctree.RoleEndnote
	}
	return strings.EqualFold(string(n.Role), want)
}

// inSection walks backward from the candidate to the nearest preceding
// heading and tests the requested section name against its text. The
// heading itself is excluded from its own section unless
// IncludeHeadings is set.
func inSection(flat []*doctree.Node, idx int, section string, opts Options) bool {
	if isHeadingNode(flat[idx]) {
		if !opts.IncludeHeadings {
			return false
		}
		// A heading belongs only to its own section, never to the one
		// it terminates.
		return containsFold(flat[idx].Text, section, false)
	}
	for i := idx - 1; i >= 0; i-- {
		if !isHeadingNode(flat[i]) {
			continue
		}
		return containsFold(flat[i].Text, section, false)
	}
	return false
}

// isHeadingNode classifies headings by role, by a numeric level, or by
// a style name containing "heading"/"title".
func isHeadingNode(n *doctree.Node) bool {
	if n.Role == doctree.RoleHeading {
		return true
	}
	if n.Level > 0 && n.Role != doctree.RoleTable {
		return true
	}
	style := strings.ToLower(n.Style)
	return strings.Contains(style, "heading") || strings.Contains(style, "title")
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
