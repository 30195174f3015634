package fetchlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestInsertAndHistory(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := time.Now()

	entries := []*Entry{
		{ID: "a1", RunID: "run1", URL: "https://example.com/a.png", Kind: "image", Status: "fetched", LocalPath: "/tmp/a.png", DurationMs: 120, FetchedAt: base},
		{ID: "a2", RunID: "run1", URL: "https://example.com/b.mp4", Kind: "video", Status: "failed", ErrorMessage: "all strategies exhausted", DurationMs: 9000, FetchedAt: base.Add(time.Second)},
		{ID: "b1", RunID: "run2", URL: "https://example.com/c.png", Kind: "image", Status: "skipped", FetchedAt: base},
	}
	for _, e := range entries {
		if err := s.Insert(ctx, e); err != nil {
			t.Fatalf("Insert %s: %v", e.ID, err)
		}
	}

	got, err := s.History(ctx, "run1", 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	if got[0].ID != "a2" || got[1].ID != "a1" {
		t.Errorf("order = %s, %s; want newest first", got[0].ID, got[1].ID)
	}
	if got[0].ErrorMessage != "all strategies exhausted" {
		t.Errorf("error message = %q", got[0].ErrorMessage)
	}
	if got[1].FetchedAt.UnixMilli() != base.UnixMilli() {
		t.Errorf("fetched_at round trip lost precision")
	}
}

func TestHistoryLimit(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		e := &Entry{
			ID: string(rune('a' + i)), RunID: "run1", URL: "u", Kind: "image",
			Status: "fetched", FetchedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := s.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.History(ctx, "run1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("entries = %d, want 3", len(got))
	}
}
