package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	"github.com/kr/text"
)

const consoleWrap = 76

// ConsoleSink prints a readable listing of items and their highlights.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink returns a sink printing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Name implements Sink.
func (s *ConsoleSink) Name() string {
	return "console"
}

// Write implements Sink.
func (s *ConsoleSink) Write(_ context.Context, item client.Item) (int, error) {
	var b strings.Builder

	title := item.Title
	if title == "" {
		title = item.Key()
	}
	b.WriteString(title)
	if item.Slug != "" && item.Slug != title {
		fmt.Fprintf(&b, " (%s)", item.Slug)
	}
	b.WriteByte('\n')

	if item.OriginalArticleURL != "" {
		fmt.Fprintf(&b, "  %s\n", item.OriginalArticleURL)
	}

	for _, h := range item.Highlights {
		b.WriteString(text.Indent(text.Wrap(h.Quote, consoleWrap), "  > "))
		b.WriteByte('\n')
		if h.Annotation != "" {
			b.WriteString(text.Indent(text.Wrap(h.Annotation, consoleWrap), "    "))
			b.WriteByte('\n')
		}
	}
	b.WriteByte('\n')

	return io.WriteString(s.w, b.String())
}

// Close implements Sink.
func (s *ConsoleSink) Close() error {
	return nil
}
