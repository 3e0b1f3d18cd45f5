package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docnav/internal/builder"
	"github.com/dgallion1/docnav/internal/editor"
	"github.com/dgallion1/docnav/internal/host"
	"github.com/dgallion1/docnav/internal/scope"
)

type editRequest struct {
	Operations []editOperation `json:"operations,omitempty"`

	// Scoped form: apply one operation to every scope match.
	Scope           string      `json:"scope,omitempty"`
	Operation       editor.Kind `json:"operation,omitempty"`
	Text            string      `json:"text,omitempty"`
	Style           string      `json:"style,omitempty"`
	Format          *runFormat  `json:"format,omitempty"`
	CaseSensitive   bool        `json:"caseSensitive,omitempty"`
	IncludeHeadings bool        `json:"includeHeadings,omitempty"`
}

type editOperation struct {
	Ref       string      `json:"ref"`
	Operation editor.Kind `json:"operation"`
	Text      string      `json:"text,omitempty"`
	Style     string      `json:"style,omitempty"`
	Format    *runFormat  `json:"format,omitempty"`

	// Accepted aliases for clients speaking the older envelope.
	NewText    string `json:"newText,omitempty"`
	InsertText string `json:"insertText,omitempty"`
}

func (op editOperation) text() string {
	if op.Text != "" {
		return op.Text
	}
	if op.NewText != "" {
		return op.NewText
	}
	return op.InsertText
}

type runFormat struct {
	Bold      *bool   `json:"bold,omitempty"`
	Italic    *bool   `json:"italic,omitempty"`
	Underline *bool   `json:"underline,omitempty"`
	Font      string  `json:"font,omitempty"`
	Size      float64 `json:"size,omitempty"`
}

func (f *runFormat) toHost() *host.RunFormat {
	if f == nil {
		return nil
	}
	return &host.RunFormat{
		Bold:      f.Bold,
		Italic:    f.Italic,
		Underline: f.Underline,
		Font:      f.Font,
		Size:      f.Size,
	}
}

func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if sess == nil {
		return
	}

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Operations) == 0 && req.Scope == "" {
		jsonError(w, "operations or scope is required", http.StatusBadRequest)
		return
	}

	var res *editor.Result
	err := sess.Do(func(doc host.Document) error {
		if len(req.Operations) > 0 {
			ops := make([]editor.Operation, len(req.Operations))
			for i, op := range req.Operations {
				ops[i] = editor.Operation{
					Ref:   op.Ref,
					Kind:  op.Operation,
					Text:  op.text(),
					Style: op.Style,
					Runs:  op.Format.toHost(),
				}
			}
			var applyErr error
			res, applyErr = s.editor.Apply(r.Context(), doc, ops)
			return applyErr
		}

		// Scoped form needs a tree snapshot to resolve matches against.
		tree, buildErr := s.builder.Build(r.Context(), doc, builder.Options{})
		if buildErr != nil {
			return buildErr
		}
		var applyErr error
		res, applyErr = s.editor.ApplyScoped(r.Context(), doc, tree, req.Scope,
			scope.Options{CaseSensitive: req.CaseSensitive, IncludeHeadings: req.IncludeHeadings},
			req.Operation, req.Text, req.Style, req.Format.toHost())
		return applyErr
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if !res.Success && res.SuccessCount == 0 {
		status = http.StatusUnprocessableEntity
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(res)
}
