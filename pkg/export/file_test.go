package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Sternrassler/omnivore-export/pkg/client"
)

func TestNewFileSink_ExistingDirectory(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewFileSink(dir); err != nil {
		t.Fatalf("NewFileSink(existing) error = %v", err)
	}
	if _, err := NewFileSink(dir); err != nil {
		t.Fatalf("NewFileSink(existing, again) error = %v", err)
	}
}

func TestNewFileSink_PathIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileSink(path); err == nil {
		t.Error("NewFileSink() should fail when the path is a regular file")
	}
}

func TestFileSink_Write(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	content := "# Title\n\n\tindented\r\nunicode: ✓\n"
	item := client.Item{Slug: "my-article-1a2b", Content: content}

	n, err := sink.Write(context.Background(), item)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(content) {
		t.Errorf("Write() = %d bytes, want %d", n, len(content))
	}

	data, err := os.ReadFile(filepath.Join(sink.Dir(), "my-article-1a2b.md"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", data, content)
	}
}

func TestFileSink_OverwritesExisting(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	sink.Write(ctx, client.Item{Slug: "a", Content: "first version, longer"})
	sink.Write(ctx, client.Item{Slug: "a", Content: "second"})

	data, _ := os.ReadFile(filepath.Join(sink.Dir(), "a.md"))
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name    string
		item    client.Item
		want    string
		wantErr bool
	}{
		{name: "plain slug", item: client.Item{Slug: "how-to-go-18c5a9"}, want: "how-to-go-18c5a9"},
		{name: "slug kept verbatim", item: client.Item{Slug: "Mixed_Case.v2"}, want: "Mixed_Case.v2"},
		{name: "falls back to id", item: client.Item{ID: "0f3c"}, want: "0f3c"},
		{name: "path separator", item: client.Item{Slug: "../../etc/passwd"}, want: "etc-passwd"},
		{name: "backslash", item: client.Item{Slug: `a\b`}, want: "a-b"},
		{name: "dot dot", item: client.Item{Slug: ".."}, wantErr: true},
		{name: "empty", item: client.Item{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fileName(tt.item)
			if (err != nil) != tt.wantErr {
				t.Fatalf("fileName() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMissingSlug) {
					t.Errorf("error = %v, want ErrMissingSlug", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("fileName() = %q, want %q", got, tt.want)
			}
		})
	}
}
