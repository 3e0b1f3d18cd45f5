package ref

import (
	"errors"
	"testing"
)

func TestParse_Simple(t *testing.T) {
	r, err := Parse("p:3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Type != "p" || r.Index != 3 {
		t.Errorf("expected p:3, got %s:%d", r.Type, r.Index)
	}
	if len(r.Subrefs) != 0 {
		t.Errorf("expected no subrefs, got %v", r.Subrefs)
	}
}

func TestParse_Compound(t *testing.T) {
	r, err := Parse("tbl:0/row:2/cell:1/p:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Type != "tbl" || r.Index != 0 {
		t.Errorf("expected tbl:0 head, got %s:%d", r.Type, r.Index)
	}
	want := []Segment{{"row", 2}, {"cell", 1}, {"p", 0}}
	if len(r.Subrefs) != len(want) {
		t.Fatalf("expected %d subrefs, got %d", len(want), len(r.Subrefs))
	}
	for i, s := range want {
		if r.Subrefs[i] != s {
			t.Errorf("subref %d: expected %v, got %v", i, s, r.Subrefs[i])
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	cases := []string{
		"",
		"p",
		"p:",
		":3",
		"p:abc",
		"p:-1",
		"P:3",
		"p:3/",
		"/p:3",
		"tbl:0//cell:1",
		"p:3 ",
	}
	for _, c := range cases {
		if _, err := Parse(c); !errors.Is(err, ErrMalformed) {
			t.Errorf("Parse(%q): expected ErrMalformed, got %v", c, err)
		}
	}
}

func TestParse_FingerprintRejected(t *testing.T) {
	_, err := Parse("p:~xK4mNp2q")
	if !errors.Is(err, ErrFingerprint) {
		t.Fatalf("expected ErrFingerprint, got %v", err)
	}
	// A fingerprint anywhere in the path is rejected the same way.
	_, err = Parse("tbl:0/cell:~abc")
	if !errors.Is(err, ErrFingerprint) {
		t.Errorf("expected ErrFingerprint for nested fingerprint, got %v", err)
	}
	// Empty or non-alphanumeric fingerprint tokens are plain malformed.
	if _, err := Parse("p:~"); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed for p:~, got %v", err)
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	cases := []string{
		"p:0",
		"p:42",
		"tbl:0/row:2/cell:1",
		"tbl:0/row:2/cell:1/p:0",
		"fn:2",
		"cmt:7",
	}
	for _, c := range cases {
		r, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c, err)
		}
		if got := r.String(); got != c {
			t.Errorf("round trip %q: got %q", c, got)
		}
		r2, err := Parse(r.String())
		if err != nil {
			t.Fatalf("re-parse %q: %v", r.String(), err)
		}
		if r2.Type != r.Type || r2.Index != r.Index || len(r2.Subrefs) != len(r.Subrefs) {
			t.Errorf("parse(encode(parse(%q))) differs: %+v vs %+v", c, r2, r)
		}
	}
}

func TestLeaf(t *testing.T) {
	r, err := Parse("tbl:0/row:2/cell:1/p:0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leaf := r.Leaf(); leaf.Type != "p" || leaf.Index != 0 {
		t.Errorf("expected leaf p:0, got %s:%d", leaf.Type, leaf.Index)
	}

	r, err = Parse("p:5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leaf := r.Leaf(); leaf.Type != "p" || leaf.Index != 5 {
		t.Errorf("expected leaf p:5, got %s:%d", leaf.Type, leaf.Index)
	}
}
