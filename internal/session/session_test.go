package session

import (
	"testing"
	"time"

	"github.com/dgallion1/docnav/internal/host"
)

func TestStore_OpenAndGet(t *testing.T) {
	st := NewStore(time.Hour, 0)
	doc := host.NewMemoryDocument("Contract")
	s, err := st.Open("contract.docx", doc)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if s.ID == "" {
		t.Fatal("session has no ID")
	}
	if s.Title != "Contract" || s.Filename != "contract.docx" {
		t.Errorf("session metadata = %+v", s.Snapshot())
	}
	if got := st.Get(s.ID); got != s {
		t.Error("Get did not return the opened session")
	}
	if st.Get("missing") != nil {
		t.Error("Get on unknown ID should return nil")
	}
}

func TestStore_MaxSessions(t *testing.T) {
	st := NewStore(time.Hour, 2)
	for i := 0; i < 2; i++ {
		if _, err := st.Open("f", host.NewMemoryDocument("d")); err != nil {
			t.Fatalf("Open %d failed: %v", i, err)
		}
	}
	if _, err := st.Open("f", host.NewMemoryDocument("d")); err == nil {
		t.Error("third open should exceed the session cap")
	}
}

func TestStore_CloseFreesSlot(t *testing.T) {
	st := NewStore(time.Hour, 1)
	s, err := st.Open("f", host.NewMemoryDocument("d"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !st.Close(s.ID) {
		t.Error("Close should report the session existed")
	}
	if st.Close(s.ID) {
		t.Error("double Close should report false")
	}
	if _, err := st.Open("f", host.NewMemoryDocument("d")); err != nil {
		t.Errorf("slot not freed after Close: %v", err)
	}
}

func TestStore_CleanupEvictsIdle(t *testing.T) {
	st := NewStore(10*time.Millisecond, 0)
	s, err := st.Open("f", host.NewMemoryDocument("d"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	fresh, err := st.Open("g", host.NewMemoryDocument("d"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	fresh.Touch()

	if removed := st.Cleanup(); removed != 1 {
		t.Errorf("Cleanup removed %d sessions, want 1", removed)
	}
	if st.Get(s.ID) != nil {
		t.Error("idle session survived cleanup")
	}
	if st.Get(fresh.ID) == nil {
		t.Error("touched session was evicted")
	}
}

func TestSession_DoSerializesAccess(t *testing.T) {
	st := NewStore(time.Hour, 0)
	s, err := st.Open("f", host.NewMemoryDocument("d"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Do(func(doc host.Document) error { return nil })
	}()
	if err := s.Do(func(doc host.Document) error {
		if doc.Title() != "d" {
			t.Errorf("Title = %q", doc.Title())
		}
		return nil
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	<-done
}

func TestNewID_UniqueAndSorted(t *testing.T) {
	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 1000; i++ {
		id := NewID()
		if len(id) != 26 {
			t.Fatalf("ID length = %d, want 26", len(id))
		}
		if seen[id] {
			t.Fatalf("duplicate ID %s", id)
		}
		seen[id] = true
		if prev != "" && id < prev {
			// Same-millisecond IDs order by sequence; later IDs never
			// sort before earlier ones.
			t.Fatalf("IDs not monotonic: %s < %s", id, prev)
		}
		prev = id
	}
}
