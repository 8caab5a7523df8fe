package export

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Sternrassler/omnivore-export/pkg/client"
)

func TestConsoleSink_Write(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := NewConsoleSink(buf)

	item := client.Item{
		ID:                 "id-1",
		Slug:               "go-iterators",
		Title:              "Go Iterators",
		OriginalArticleURL: "https://go.dev/blog/range-functions",
		Highlights: []client.Highlight{
			{ID: "h1", Quote: "range over function types", Annotation: "new in 1.23"},
			{ID: "h2", Quote: "push and pull"},
		},
	}

	n, err := sink.Write(context.Background(), item)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != buf.Len() {
		t.Errorf("Write() = %d, buffer has %d bytes", n, buf.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"Go Iterators (go-iterators)\n",
		"  https://go.dev/blog/range-functions\n",
		"  > range over function types\n",
		"    new in 1.23\n",
		"  > push and pull\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleSink_WrapsLongQuotes(t *testing.T) {
	buf := &bytes.Buffer{}
	sink := NewConsoleSink(buf)

	quote := strings.TrimSpace(strings.Repeat("word ", 40))
	sink.Write(context.Background(), client.Item{Slug: "s", Highlights: []client.Highlight{{Quote: quote}}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected wrapped output, got %q", buf.String())
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  > ") {
			t.Errorf("quote line %q is not prefixed", line)
		}
	}
}

func TestConsoleSink_TitleFallback(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleSink(buf).Write(context.Background(), client.Item{Slug: "only-slug"})

	if got := buf.String(); got != "only-slug\n\n" {
		t.Errorf("output = %q", got)
	}
}
