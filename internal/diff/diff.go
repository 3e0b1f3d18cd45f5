// Package diff reconstructs tracked changes for one paragraph by
// comparing a baseline text snapshot against the current text. The host
// does not expose a reliable revision API, so insertions and deletions
// are synthesized from a word-level longest common subsequence. Records
// produced here are heuristic and must not be confused with native
// revision IDs.
package diff

import "strings"

// Kind is the direction of one synthesized change.
type Kind string

const (
	Insertion Kind = "insertion"
	Deletion  Kind = "deletion"
)

// Change is one run of inserted or deleted words. Position is the word
// offset in the text the run belongs to (original for deletions,
// current for insertions).
type Change struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// Result holds the synthesized changes for one paragraph. It is
// consumed once to annotate tree nodes and not persisted.
type Result struct {
	OriginalText string   `json:"originalText"`
	CurrentText  string   `json:"currentText"`
	HasChanges   bool     `json:"hasChanges"`
	Changes      []Change `json:"changes,omitempty"`
	MarkedUpText string   `json:"markedUpText"`

	tokens []token
}

type tokenKind int

const (
	tokKeep tokenKind = iota
	tokIns
	tokDel
)

type token struct {
	kind tokenKind
	word string
}

// Compare diffs two text snapshots of the same paragraph. Identical
// inputs short-circuit to a zero-change result.
func Compare(original, current string) Result {
	res := Result{OriginalText: original, CurrentText: current}
	if original == current {
		res.MarkedUpText = current
		return res
	}

	a := strings.Fields(original)
	b := strings.Fields(current)
	lcs := wordLCS(a, b)

	// Walk original and current against the LCS, emitting deletions for
	// original words that miss the next common word and insertions for
	// current words that miss it. All three pointers advance on a match.
	var toks []token
	i, j, k := 0, 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case k < len(lcs) && i < len(a) && j < len(b) && a[i] == lcs[k] && b[j] == lcs[k]:
			toks = append(toks, token{tokKeep, lcs[k]})
			i++
			j++
			k++
		case i < len(a) && (k >= len(lcs) || a[i] != lcs[k]):
			toks = append(toks, token{tokDel, a[i]})
			i++
		case j < len(b) && (k >= len(lcs) || b[j] != lcs[k]):
			toks = append(toks, token{tokIns, b[j]})
			j++
		default:
			// Both sides sit on the common word but only one pointer can
			// be here; consume it to guarantee progress.
			if i < len(a) {
				toks = append(toks, token{tokDel, a[i]})
				i++
			} else {
				toks = append(toks, token{tokIns, b[j]})
				j++
			}
		}
	}

	res.tokens = toks
	res.Changes = groupChanges(toks)
	res.HasChanges = len(res.Changes) > 0
	res.MarkedUpText = markup(toks)
	return res
}

// wordLCS computes the longest common subsequence of two word slices
// with the classic O(n*m) dynamic-programming table.
func wordLCS(a, b []string) []string {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	out := make([]string, 0, dp[0][0])
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return out
}

// groupChanges merges consecutive words of the same direction into one
// record, so "30" -> "45" yields one deletion and one insertion.
func groupChanges(toks []token) []Change {
	var out []Change
	origPos, curPos := 0, 0
	for idx := 0; idx < len(toks); {
		t := toks[idx]
		switch t.kind {
		case tokKeep:
			origPos++
			curPos++
			idx++
		case tokDel:
			start := origPos
			var words []string
			for idx < len(toks) && toks[idx].kind == tokDel {
				words = append(words, toks[idx].word)
				origPos++
				idx++
			}
			out = append(out, Change{Kind: Deletion, Text: strings.Join(words, " "), Position: start})
		case tokIns:
			start := curPos
			var words []string
			for idx < len(toks) && toks[idx].kind == tokIns {
				words = append(words, toks[idx].word)
				curPos++
				idx++
			}
			out = append(out, Change{Kind: Insertion, Text: strings.Join(words, " "), Position: start})
		}
	}
	return out
}

// markup renders the token stream with {--deleted--} / {++inserted++}
// wrapping. Adjacent markup groups join without a space so a one-word
// swap reads {--old--}{++new++}.
func markup(toks []token) string {
	type group struct {
		kind  tokenKind
		words []string
	}
	var groups []group
	for _, t := range toks {
		if len(groups) > 0 && groups[len(groups)-1].kind == t.kind {
			g := &groups[len(groups)-1]
			g.words = append(g.words, t.word)
			continue
		}
		groups = append(groups, group{kind: t.kind, words: []string{t.word}})
	}

	var sb strings.Builder
	for i, g := range groups {
		text := strings.Join(g.words, " ")
		if i > 0 {
			prev := groups[i-1]
			if !(prev.kind != tokKeep && g.kind != tokKeep) {
				sb.WriteByte(' ')
			}
		}
		switch g.kind {
		case tokKeep:
			sb.WriteString(text)
		case tokDel:
			sb.WriteString("{--")
			sb.WriteString(text)
			sb.WriteString("--}")
		case tokIns:
			sb.WriteString("{++")
			sb.WriteString(text)
			sb.WriteString("++}")
		}
	}
	return sb.String()
}

// ApplyInsertions renders the diffed text keeping insertions and
// dropping deletions; it reproduces the current text word sequence.
func (r Result) ApplyInsertions() string {
	if !r.HasChanges {
		return r.CurrentText
	}
	return joinTokens(r.tokens, tokIns)
}

// ApplyDeletions renders the diffed text keeping deletions and dropping
// insertions; it reproduces the original text word sequence.
func (r Result) ApplyDeletions() string {
	if !r.HasChanges {
		return r.OriginalText
	}
	return joinTokens(r.tokens, tokDel)
}

func joinTokens(toks []token, keepAlso tokenKind) string {
	var words []string
	for _, t := range toks {
		if t.kind == tokKeep || t.kind == keepAlso {
			words = append(words, t.word)
		}
	}
	return strings.Join(words, " ")
}
