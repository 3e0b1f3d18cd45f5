package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docnav/internal/builder"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/dgallion1/docnav/internal/host"
	"github.com/dgallion1/docnav/internal/scope"
	"github.com/dgallion1/docnav/internal/serialize"
	"github.com/dgallion1/docnav/internal/session"
	"github.com/go-chi/chi/v5"
)

// sessionFor resolves the sessionID path param, replying 404 itself when
// the session is gone.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return sess
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if sess == nil {
		return
	}

	q := r.URL.Query()
	opts := builder.Options{
		Verbosity:       doctree.ParseVerbosity(q.Get("verbosity")),
		IncludeChanges:  q.Get("changes") == "true",
		IncludeComments: q.Get("comments") == "true",
		ScopeOptions: scope.Options{
			CaseSensitive:   q.Get("case_sensitive") == "true",
			IncludeHeadings: q.Get("include_headings") == "true",
		},
	}
	if sc := q.Get("scope"); sc != "" {
		opts.Scope = sc
	}

	var tree *doctree.Tree
	err := sess.Do(func(doc host.Document) error {
		var buildErr error
		tree, buildErr = s.builder.Build(r.Context(), doc, opts)
		return buildErr
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if q.Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(tree)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(serialize.Tree(tree, opts.Verbosity)))
}

type resolveRequest struct {
	// Scope is either a shorthand string or a structured filter; the
	// structured form wins when both are present.
	Scope  string        `json:"scope,omitempty"`
	Filter *scope.Filter `json:"filter,omitempty"`

	CaseSensitive   bool `json:"caseSensitive,omitempty"`
	IncludeHeadings bool `json:"includeHeadings,omitempty"`

	Verbosity string `json:"verbosity,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if sess == nil {
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Filter != nil && req.Filter.Opaque {
		jsonError(w, "opaque scope filters cannot be evaluated remotely", http.StatusBadRequest)
		return
	}

	var spec any
	if req.Filter != nil {
		spec = req.Filter
	} else if req.Scope != "" {
		spec = req.Scope
	}

	buildOpts := builder.Options{
		Verbosity:      doctree.ParseVerbosity(req.Verbosity),
		IncludeChanges: true,
	}
	var res *scope.Result
	err := sess.Do(func(doc host.Document) error {
		tree, buildErr := s.builder.Build(r.Context(), doc, buildOpts)
		if buildErr != nil {
			return buildErr
		}
		var resolveErr error
		res, resolveErr = scope.Resolve(tree, spec, scope.Options{
			CaseSensitive:   req.CaseSensitive,
			IncludeHeadings: req.IncludeHeadings,
		})
		return resolveErr
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if sess == nil {
		return
	}

	var tree *doctree.Tree
	err := sess.Do(func(doc host.Document) error {
		var buildErr error
		tree, buildErr = s.builder.Build(r.Context(), doc, builder.Options{
			IncludeChanges:  true,
			IncludeComments: true,
		})
		return buildErr
	})
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"tracked_changes": tree.TrackedChanges,
		"comments":        tree.Comments,
		"stats": map[string]int{
			"tracked_changes": tree.Stats.TrackedChanges,
			"comments":        tree.Stats.Comments,
		},
	})
}
