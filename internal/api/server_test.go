package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docnav/internal/config"
	"github.com/dgallion1/docnav/internal/session"
)

const testKey = "test-key"

func testServer() *Server {
	cfg := config.Config{
		DocnavAPIKey:    testKey,
		MaxUploadBytes:  1 << 20,
		SessionTTL:      time.Hour,
		MaxOpenSessions: 8,
	}
	log := slog.New(slog.DiscardHandler)
	return NewServer(session.NewStore(cfg.SessionTTL, cfg.MaxOpenSessions), log, cfg)
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testKey)
	return req
}

func uploadDocument(t *testing.T, srv *Server, filename, content string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := authed(httptest.NewRequest("POST", "/api/documents", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("upload response unmarshal failed: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("upload returned no session_id")
	}
	return resp.SessionID
}

func TestHealth_NoAuth(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	srv := testServer()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/documents", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
		t.Errorf("401 body should be a json error object, got %q", rec.Body.String())
	}

	req := httptest.NewRequest("GET", "/api/documents", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key status = %d, want 401", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != "invalid api key" {
		t.Errorf("bad key body = %q", rec.Body.String())
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	srv := testServer()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "image.png")
	fw.Write([]byte("not a document"))
	mw.Close()

	req := authed(httptest.NewRequest("POST", "/api/documents", &buf))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsupported upload status = %d, want 400", rec.Code)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	srv := testServer()
	id := uploadDocument(t, srv, "notes.md", "# Payment Terms\n\nPayment is due in 30 days.\n")

	// Tree as text.
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest("GET", "/api/documents/"+id+"/tree", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("tree status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "heading[1] Payment Terms") {
		t.Errorf("tree output missing heading:\n%s", body)
	}
	if !strings.Contains(body, "p:1 paragraph Payment is due in 30 days.") {
		t.Errorf("tree output missing paragraph:\n%s", body)
	}

	// Tree as JSON with scope.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest("GET", "/api/documents/"+id+"/tree?format=json&scope=role:heading", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("scoped tree status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("scoped tree content type = %s", ct)
	}

	// Edit.
	editBody := `{"operations":[{"ref":"p:1","operation":"replace","text":"Payment is due in 45 days."}]}`
	req := authed(httptest.NewRequest("POST", "/api/documents/"+id+"/edits", strings.NewReader(editBody)))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest("GET", "/api/documents/"+id+"/tree", nil)))
	if !strings.Contains(rec.Body.String(), "45 days") {
		t.Errorf("edit not visible in rebuilt tree:\n%s", rec.Body.String())
	}

	// Close.
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest("DELETE", "/api/documents/"+id, nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("close status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest("GET", "/api/documents/"+id+"/tree", nil)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("closed session tree status = %d, want 404", rec.Code)
	}
}

func TestResolve(t *testing.T) {
	srv := testServer()
	id := uploadDocument(t, srv, "doc.txt", "The supplier ships widgets.\n\nThe customer pays invoices.\n")

	body := `{"scope":"paragraph_containing:customer"}`
	req := authed(httptest.NewRequest("POST", "/api/documents/"+id+"/resolve", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Nodes []struct {
			Ref string `json:"ref"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("resolve response unmarshal failed: %v", err)
	}
	if len(resp.Nodes) != 1 || resp.Nodes[0].Ref != "p:1" {
		t.Errorf("resolve nodes = %+v, want single p:1", resp.Nodes)
	}
}

func TestResolve_RejectsOpaqueFilter(t *testing.T) {
	srv := testServer()
	id := uploadDocument(t, srv, "doc.txt", "text\n")

	body := `{"filter":{"opaque":true}}`
	req := authed(httptest.NewRequest("POST", "/api/documents/"+id+"/resolve", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("opaque filter status = %d, want 400", rec.Code)
	}
}

func TestEdits_BestEffortStatus(t *testing.T) {
	srv := testServer()
	id := uploadDocument(t, srv, "doc.txt", "only paragraph\n")

	// All operations fail: unprocessable.
	body := `{"operations":[{"ref":"p:9","operation":"delete"}]}`
	req := authed(httptest.NewRequest("POST", "/api/documents/"+id+"/edits", strings.NewReader(body)))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("all-failed edit status = %d, want 422", rec.Code)
	}

	// Mixed outcome still returns 200 with per-item results.
	body = `{"operations":[{"ref":"p:0","operation":"replace","text":"new"},{"ref":"p:9","operation":"delete"}]}`
	req = authed(httptest.NewRequest("POST", "/api/documents/"+id+"/edits", strings.NewReader(body)))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("mixed edit status = %d", rec.Code)
	}
	var res struct {
		Success      bool `json:"success"`
		SuccessCount int  `json:"successCount"`
		FailedCount  int  `json:"failedCount"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("edit response unmarshal failed: %v", err)
	}
	if res.Success || res.SuccessCount != 1 || res.FailedCount != 1 {
		t.Errorf("edit result = %+v", res)
	}
}

func TestChanges(t *testing.T) {
	srv := testServer()
	id := uploadDocument(t, srv, "doc.txt", "stable text\n")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, authed(httptest.NewRequest("GET", "/api/documents/"+id+"/changes", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("changes status = %d", rec.Code)
	}
	var resp struct {
		Stats map[string]int `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("changes response unmarshal failed: %v", err)
	}
	if resp.Stats["tracked_changes"] != 0 {
		t.Errorf("fresh document reports %d tracked changes", resp.Stats["tracked_changes"])
	}
}
