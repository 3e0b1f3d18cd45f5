package host

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryDocument_LoadBodyOrdering(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("first", "Normal")
	doc.AppendTable(2, 2)
	doc.AppendParagraph("second", "Normal")

	batch := doc.NewBatch()
	body := batch.LoadBody(LoadOptions{})
	if body.Ready() {
		t.Fatal("result reported ready before Sync")
	}
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !body.Ready() {
		t.Fatal("result not ready after Sync")
	}

	if len(body.Items) != 3 {
		t.Fatalf("expected 3 body items, got %d", len(body.Items))
	}
	if body.Items[0].Kind != ItemParagraph || body.Items[0].Paragraph.Text != "first" {
		t.Errorf("item 0 = %+v, want paragraph 'first'", body.Items[0])
	}
	if body.Items[1].Kind != ItemTable {
		t.Errorf("item 1 kind = %v, want table", body.Items[1].Kind)
	}
	if body.Items[1].Table.Rows != 2 || body.Items[1].Table.Cols != 2 {
		t.Errorf("table dims = %dx%d, want 2x2", body.Items[1].Table.Rows, body.Items[1].Table.Cols)
	}
	if body.Items[2].Paragraph.Index != 1 {
		t.Errorf("paragraph index = %d, want 1 (tables do not consume paragraph ordinals)", body.Items[2].Paragraph.Index)
	}
}

func TestMemoryDocument_SyncCountsBarriers(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("a", "")
	doc.AppendParagraph("b", "")

	batch := doc.NewBatch()
	batch.LoadBody(LoadOptions{})
	batch.LoadFootnotes()
	batch.LoadBookmarks()
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if got := doc.SyncCount(); got != 1 {
		t.Errorf("SyncCount = %d, want 1 (queued loads share one barrier)", got)
	}

	if err := batch.Sync(context.Background()); err == nil {
		t.Error("second Sync on the same batch should fail")
	}
}

func TestMemoryDocument_WritesApplyInQueueOrder(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("alpha", "")
	doc.AppendParagraph("beta", "")
	doc.AppendParagraph("gamma", "")

	batch := doc.NewBatch()
	batch.ReplaceParagraphText(Location{Paragraph: 0}, "ALPHA")
	del := batch.DeleteParagraph(Location{Paragraph: 2})
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if del.Err != nil {
		t.Fatalf("delete failed: %v", del.Err)
	}

	check := doc.NewBatch()
	body := check.LoadBody(LoadOptions{})
	if err := check.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(body.Items) != 2 {
		t.Fatalf("expected 2 paragraphs after delete, got %d", len(body.Items))
	}
	if body.Items[0].Paragraph.Text != "ALPHA" {
		t.Errorf("paragraph 0 = %q, want replaced text", body.Items[0].Paragraph.Text)
	}
	if body.Items[1].Paragraph.Text != "beta" {
		t.Errorf("paragraph 1 = %q, want 'beta'", body.Items[1].Paragraph.Text)
	}
}

func TestMemoryDocument_InsertReportsNewIndex(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("one", "")
	doc.AppendParagraph("two", "")

	batch := doc.NewBatch()
	after := batch.InsertParagraph(Location{Paragraph: 0}, "between", false)
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if after.Err != nil {
		t.Fatalf("insert failed: %v", after.Err)
	}
	if after.NewIndex != 1 {
		t.Errorf("NewIndex = %d, want 1", after.NewIndex)
	}

	batch = doc.NewBatch()
	before := batch.InsertParagraph(Location{Paragraph: 0}, "head", true)
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if before.NewIndex != 0 {
		t.Errorf("NewIndex = %d, want 0 for insert-before", before.NewIndex)
	}
}

func TestMemoryDocument_ReadOnlyRejectsWrites(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("locked", "")
	doc.SetReadOnly()

	batch := doc.NewBatch()
	res := batch.ReplaceParagraphText(Location{Paragraph: 0}, "nope")
	body := batch.LoadBody(LoadOptions{})
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if !errors.Is(res.Err, ErrReadOnly) {
		t.Errorf("write error = %v, want ErrReadOnly", res.Err)
	}
	// Reads still work on a read-only document.
	if len(body.Items) != 1 || body.Items[0].Paragraph.Text != "locked" {
		t.Errorf("read-only document should still load, got %+v", body.Items)
	}
}

func TestMemoryDocument_CellParagraphWrites(t *testing.T) {
	doc := NewMemoryDocument("Test")
	tbl := doc.AppendTable(1, 2)
	tbl.Row(0).Cell(0).SetCellText("left")
	tbl.Row(0).Cell(1).SetCellText("right")

	loc := Location{InCell: true, Table: 0, Row: 0, Cell: 1, Paragraph: 0}
	batch := doc.NewBatch()
	res := batch.ReplaceParagraphText(loc, "edited")
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if res.Err != nil {
		t.Fatalf("cell replace failed: %v", res.Err)
	}

	check := doc.NewBatch()
	cell := check.LoadCellParagraphs(0, 0, 1, LoadOptions{})
	if err := check.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if len(cell.Paragraphs) != 1 || cell.Paragraphs[0].Text != "edited" {
		t.Errorf("cell paragraphs = %+v, want single 'edited'", cell.Paragraphs)
	}
}

func TestMemoryDocument_OutOfRangeWriteFailsPerItem(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("only", "")

	batch := doc.NewBatch()
	good := batch.ReplaceParagraphText(Location{Paragraph: 0}, "fixed")
	bad := batch.DeleteParagraph(Location{Paragraph: 9})
	if err := batch.Sync(context.Background()); err != nil {
		t.Fatalf("Sync should not fail for per-item errors: %v", err)
	}
	if good.Err != nil {
		t.Errorf("valid write failed: %v", good.Err)
	}
	if bad.Err == nil {
		t.Error("out-of-range delete should fail")
	}
}

func TestMemoryDocument_SyncHonorsContext(t *testing.T) {
	doc := NewMemoryDocument("Test")
	doc.AppendParagraph("a", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	batch := doc.NewBatch()
	batch.LoadBody(LoadOptions{})
	if err := batch.Sync(ctx); err == nil {
		t.Error("Sync with canceled context should fail")
	}
	if doc.SyncCount() != 0 {
		t.Errorf("canceled Sync must not count as a barrier, got %d", doc.SyncCount())
	}
}
