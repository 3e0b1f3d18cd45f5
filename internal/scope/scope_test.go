package scope

import (
	"testing"

	"github.com/dgallion1/docnav/internal/doctree"
)

// contractTree is a small document with two sections, a table and a
// tracked change.
func contractTree() *doctree.Tree {
	return &doctree.Tree{
		Content: []*doctree.Node{
			{Ref: "p:0", Role: doctree.RoleHeading, Level: 1, Text: "Definitions", Style: "Heading1"},
			{Ref: "p:1", Role: doctree.RoleParagraph, Text: "Customer means the buying party.", Style: "Normal"},
			{Ref: "p:2", Role: doctree.RoleParagraph, Text: "Supplier means the selling party.", Style: "Normal"},
			{Ref: "p:3", Role: doctree.RoleHeading, Level: 1, Text: "Payment Terms", Style: "Heading1"},
			{Ref: "p:4", Role: doctree.RoleParagraph, Text: "Payment is due in 30 days.", Style: "Normal",
				ChangeRefs: []string{"del:0", "ins:0"}},
			{Ref: "tbl:0", Role: doctree.RoleTable, Dimensions: &doctree.Dimensions{Rows: 1, Cols: 1},
				Children: []*doctree.Node{
					{Ref: "tbl:0/row:0", Role: doctree.RoleRow, Children: []*doctree.Node{
						{Ref: "tbl:0/row:0/cell:0", Role: doctree.RoleCell, Text: "Fee"},
					}},
				}},
		},
	}
}

func refsOf(nodes []*doctree.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Ref
	}
	return out
}

func TestParseShorthand_Forms(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
	}{
		{"section:Payment Terms", Filter{Section: "Payment Terms"}},
		{"paragraph_containing:Customer", Filter{Contains: "Customer", Role: "paragraph"}},
		{"role:heading", Filter{Role: "heading"}},
		{"style:Heading1", Filter{Style: "Heading1"}},
		{"level:2", Filter{Level: 2, Role: "heading"}},
		{"footnotes", Filter{Role: "footnote"}},
		{"changes", Filter{HasChanges: true}},
		{"tracked", Filter{HasChanges: true}},
		{"comments", Filter{HasComments: true}},
		{"footnote:3", Filter{Refs: []string{"fn:3"}}},
		{"liability", Filter{Contains: "liability"}},
	}
	for _, tt := range tests {
		got := ParseShorthand(tt.in)
		if got.Section != tt.want.Section || got.Contains != tt.want.Contains ||
			got.Role != tt.want.Role || got.Style != tt.want.Style ||
			got.Level != tt.want.Level || got.HasChanges != tt.want.HasChanges ||
			got.HasComments != tt.want.HasComments {
			t.Errorf("ParseShorthand(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if len(tt.want.Refs) > 0 && (len(got.Refs) != 1 || got.Refs[0] != tt.want.Refs[0]) {
			t.Errorf("ParseShorthand(%q).Refs = %v, want %v", tt.in, got.Refs, tt.want.Refs)
		}
	}
}

func TestResolve_SectionExcludesOwnHeading(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, "section:Definitions", Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	got := refsOf(res.Nodes)
	want := []string{"p:1", "p:2"}
	if len(got) != len(want) {
		t.Fatalf("section matches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("match %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolve_SectionIncludeHeadings(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, "section:Definitions", Options{IncludeHeadings: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	got := refsOf(res.Nodes)
	if len(got) == 0 || got[0] != "p:0" {
		t.Errorf("with IncludeHeadings the heading should lead the matches, got %v", got)
	}
	for _, r := range got {
		if r == "p:3" {
			t.Error("the heading that ends the section must not join it")
		}
	}
}

func TestResolve_SectionNameIsCaseInsensitive(t *testing.T) {
	tree := contractTree()
	// Section names fold case even when text matching is case-sensitive.
	res, err := Resolve(tree, "section:payment terms", Options{CaseSensitive: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	got := refsOf(res.Nodes)
	if len(got) == 0 {
		t.Fatal("case-folded section name matched nothing")
	}
	if got[0] != "p:4" {
		t.Errorf("first match = %s, want p:4", got[0])
	}
}

func TestResolve_SectionEndsAtNextHeading(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, "section:Definitions", Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	for _, n := range res.Nodes {
		if n.Ref == "p:4" {
			t.Error("p:4 belongs to Payment Terms, not Definitions")
		}
	}
}

func TestResolve_RoleHeadingCaseInsensitive(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, "role:HEADING", Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 2 {
		t.Errorf("heading matches = %d, want 2", len(res.Nodes))
	}
}

func TestResolve_HasChanges(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, "changes", Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Ref != "p:4" {
		t.Errorf("changes matches = %v, want [p:4]", refsOf(res.Nodes))
	}
}

func TestResolve_ContainsDefaultCaseInsensitive(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, "CUSTOMER", Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Ref != "p:1" {
		t.Errorf("contains matches = %v, want [p:1]", refsOf(res.Nodes))
	}

	res, err = Resolve(tree, "CUSTOMER", Options{CaseSensitive: true})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 0 {
		t.Errorf("case-sensitive contains should not match, got %v", refsOf(res.Nodes))
	}
}

func TestResolve_FilterCombination(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, Filter{Section: "Definitions", Contains: "Supplier"}, Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Ref != "p:2" {
		t.Errorf("combined filter = %v, want [p:2]", refsOf(res.Nodes))
	}
}

func TestResolve_Pattern(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, Filter{Pattern: `\d+ days`}, Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Ref != "p:4" {
		t.Errorf("pattern matches = %v, want [p:4]", refsOf(res.Nodes))
	}

	if _, err := Resolve(tree, Filter{Pattern: `[`}, Options{}); err == nil {
		t.Error("invalid pattern should fail resolution")
	}
}

func TestResolve_Predicate(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, func(n *doctree.Node) bool {
		return n.Role == doctree.RoleCell
	}, Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != 1 || res.Nodes[0].Ref != "tbl:0/row:0/cell:0" {
		t.Errorf("predicate matches = %v", refsOf(res.Nodes))
	}
	if res.Filter == nil || !res.Filter.Opaque {
		t.Error("predicate scope should normalize to an opaque filter")
	}
}

func TestResolve_NilMatchesAll(t *testing.T) {
	tree := contractTree()
	res, err := Resolve(tree, nil, Options{})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Nodes) != res.TotalEvaluated {
		t.Errorf("nil scope matched %d of %d", len(res.Nodes), res.TotalEvaluated)
	}
}

func TestNormalize_UnsupportedType(t *testing.T) {
	if _, _, err := Normalize(42); err == nil {
		t.Error("int scope spec should be rejected")
	}
}
