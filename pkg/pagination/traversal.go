package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize matches the page size the export tool has always requested.
const DefaultPageSize = 10

var (
	// ErrMaxPagesExceeded is returned when Config.MaxPages pages were fetched
	// and the service still reports more.
	ErrMaxPagesExceeded = errors.New("maximum page count exceeded")

	// ErrNilPage is returned when a fetcher returns neither a page nor an error.
	ErrNilPage = errors.New("fetcher returned nil page")
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omnivore_pages_fetched_total",
		Help: "Total number of search pages fetched by traversals",
	})

	itemsYieldedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "omnivore_items_yielded_total",
		Help: "Total number of items yielded by traversals",
	})

	pageErrorCodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnivore_page_error_codes_total",
		Help: "Total number of errorCodes reported in search pages by code",
	}, []string{"code"})
)

// PageFetcher is the interface the Omnivore client implements for single-page fetching.
type PageFetcher interface {
	// FetchPage fetches up to limit items after cursor (nil = start of results).
	FetchPage(ctx context.Context, cursor *string, limit int, searchQuery string) (*client.Page, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, cursor *string, limit int, searchQuery string) (*client.Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, cursor *string, limit int, searchQuery string) (*client.Page, error) {
	return f(ctx, cursor, limit, searchQuery)
}

// Config holds traversal configuration.
type Config struct {
	// PageSize is the number of items requested per page.
	PageSize int

	// SearchQuery filters results. Empty means no filter.
	SearchQuery string

	// Start is the cursor of the first fetch. Nil starts at the beginning.
	Start *string

	// MaxPages stops traversal with ErrMaxPagesExceeded once this many pages
	// were fetched and more remain. Zero means unlimited.
	MaxPages int
}

// DefaultConfig returns the default traversal configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: DefaultPageSize,
	}
}

// State is the position of a Traversal in its fetch/drain cycle.
type State int

const (
	// StateAwaitingFetch means the next Next call fetches a page.
	StateAwaitingFetch State = iota

	// StateBuffered means items of the last page are being drained.
	StateBuffered

	// StateDone is terminal.
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateAwaitingFetch:
		return "awaiting_fetch"
	case StateBuffered:
		return "buffered"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Traversal is a lazy, single-pass sequence of items across all pages of a search.
// It is not safe for concurrent use.
type Traversal struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger

	state  State
	cursor *string
	buffer []client.Edge
	last   *client.Page
	pages  int
}

// New creates a traversal over fetcher.
func New(fetcher PageFetcher, config Config) *Traversal {
	if fetcher == nil {
		panic("page fetcher cannot be nil")
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	var cursor *string
	if config.Start != nil {
		start := *config.Start
		cursor = &start
	}

	return &Traversal{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "pagination").Logger(),
		state:   StateAwaitingFetch,
		cursor:  cursor,
	}
}

// Next returns the next item. It returns ok=false once the traversal is done.
// A fetch error is returned once and ends the traversal.
func (t *Traversal) Next(ctx context.Context) (item client.Item, ok bool, err error) {
	for {
		switch t.state {
		case StateDone:
			return client.Item{}, false, nil

		case StateBuffered:
			if len(t.buffer) > 0 {
				item = t.buffer[0].Node
				t.buffer = t.buffer[1:]
				itemsYieldedTotal.Inc()
				return item, true, nil
			}

			if !t.last.PageInfo.HasNextPage {
				t.finish()
				return client.Item{}, false, nil
			}

			next := t.last.PageInfo.EndCursor
			t.cursor = &next
			t.state = StateAwaitingFetch

		case StateAwaitingFetch:
			if err := t.fetch(ctx); err != nil {
				t.state = StateDone
				t.buffer = nil
				return client.Item{}, false, err
			}
		}
	}
}

// fetch loads the page at the current cursor into the buffer.
func (t *Traversal) fetch(ctx context.Context) error {
	if t.config.MaxPages > 0 && t.pages >= t.config.MaxPages {
		t.logger.Warn().
			Int("max_pages", t.config.MaxPages).
			Msg("Page guard reached while service reports more pages")
		return fmt.Errorf("%w: fetched %d pages", ErrMaxPagesExceeded, t.pages)
	}

	page, err := t.fetcher.FetchPage(ctx, t.cursor, t.config.PageSize, t.config.SearchQuery)
	if err != nil {
		return fmt.Errorf("fetch page %d: %w", t.pages+1, err)
	}
	if page == nil {
		return fmt.Errorf("fetch page %d: %w", t.pages+1, ErrNilPage)
	}

	t.pages++
	pagesFetchedTotal.Inc()

	if page.HasErrorCodes() {
		for _, code := range page.ErrorCodes {
			pageErrorCodesTotal.WithLabelValues(code).Inc()
		}
		t.logger.Warn().
			Int("page", t.pages).
			Strs("error_codes", page.ErrorCodes).
			Bool("has_next_page", page.PageInfo.HasNextPage).
			Msg("Search page reported error codes")
	}

	t.logger.Debug().
		Int("page", t.pages).
		Int("edges", len(page.Edges)).
		Bool("has_next_page", page.PageInfo.HasNextPage).
		Str("end_cursor", page.PageInfo.EndCursor).
		Msg("Page fetched")

	t.last = page
	t.buffer = page.Edges
	t.state = StateBuffered
	return nil
}

func (t *Traversal) finish() {
	t.state = StateDone
	t.buffer = nil
	t.logger.Debug().
		Int("pages", t.pages).
		Msg("Traversal complete")
}

// All returns the remaining items as a range-over-func sequence. Breaking out
// of the loop leaves the traversal where it stopped; no further page is fetched.
// A fetch error is yielded once as the final element.
func (t *Traversal) All(ctx context.Context) iter.Seq2[client.Item, error] {
	return func(yield func(client.Item, error) bool) {
		for {
			item, ok, err := t.Next(ctx)
			if err != nil {
				yield(client.Item{}, err)
				return
			}
			if !ok {
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// State returns the current traversal state.
func (t *Traversal) State() State {
	return t.state
}

// Pages returns the number of pages fetched so far.
func (t *Traversal) Pages() int {
	return t.pages
}

// Cursor returns the cursor of the most recent or upcoming fetch; nil before
// the first page when no start cursor was given.
func (t *Traversal) Cursor() *string {
	return t.cursor
}

// Walk is shorthand for New(fetcher, config).All(ctx).
func Walk(ctx context.Context, fetcher PageFetcher, config Config) iter.Seq2[client.Item, error] {
	return New(fetcher, config).All(ctx)
}
