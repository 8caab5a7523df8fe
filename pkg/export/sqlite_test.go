package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Sternrassler/omnivore-export/pkg/client"
)

func newTestSQLiteSink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "export.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSink() error = %v", err)
	}
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestSQLiteSink_Write(t *testing.T) {
	sink := newTestSQLiteSink(t)
	ctx := context.Background()

	item := client.Item{
		ID:      "id-1",
		Slug:    "first",
		Title:   "First",
		Content: "  body with leading spaces",
		Highlights: []client.Highlight{
			{ID: "h1", Quote: "q1", Annotation: "a1"},
			{ID: "h2", Quote: "q2"},
		},
	}

	if _, err := sink.Write(ctx, item); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	items, highlights, err := sink.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if items != 1 || highlights != 2 {
		t.Errorf("Count() = (%d, %d), want (1, 2)", items, highlights)
	}

	content, err := sink.Content(ctx, "id-1")
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if content != item.Content {
		t.Errorf("Content() = %q, want %q", content, item.Content)
	}
}

func TestSQLiteSink_Upsert(t *testing.T) {
	sink := newTestSQLiteSink(t)
	ctx := context.Background()

	first := client.Item{ID: "id-1", Slug: "s", Content: "v1", Highlights: []client.Highlight{{ID: "h1", Quote: "a"}, {ID: "h2", Quote: "b"}}}
	second := client.Item{ID: "id-1", Slug: "s", Content: "v2", Highlights: []client.Highlight{{ID: "h3", Quote: "c"}}}

	if _, err := sink.Write(ctx, first); err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Write(ctx, second); err != nil {
		t.Fatal(err)
	}

	items, highlights, err := sink.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if items != 1 || highlights != 1 {
		t.Errorf("Count() = (%d, %d), want (1, 1)", items, highlights)
	}
	if content, _ := sink.Content(ctx, "id-1"); content != "v2" {
		t.Errorf("Content() = %q, want v2", content)
	}
}

func TestSQLiteSink_FallbackIDs(t *testing.T) {
	sink := newTestSQLiteSink(t)
	ctx := context.Background()

	item := client.Item{Slug: "slug-only", Highlights: []client.Highlight{{Quote: "x"}, {Quote: "y"}}}
	if _, err := sink.Write(ctx, item); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	items, highlights, _ := sink.Count(ctx)
	if items != 1 || highlights != 2 {
		t.Errorf("Count() = (%d, %d), want (1, 2)", items, highlights)
	}

	if _, err := sink.Write(ctx, client.Item{}); err == nil {
		t.Error("Write() of an item without id or slug should fail")
	}
}

func TestSQLiteSink_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.db")
	ctx := context.Background()

	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatal(err)
	}
	sink.Write(ctx, client.Item{ID: "a", Content: "x"})
	sink.Close()

	sink, err = NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer sink.Close()

	items, _, _ := sink.Count(ctx)
	if items != 1 {
		t.Errorf("items after reopen = %d, want 1", items)
	}
}
