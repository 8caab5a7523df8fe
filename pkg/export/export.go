// Package export drains a stream of items into a Sink.
//
// Run owns the stop decision: it stops pulling once MaxItems items were
// written, which is the only cancellation mechanism the traversal needs.
// Anything already written stays written when a later item fails.
package export

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// DefaultMaxItems is the file export cap: the tool has always stopped right
// after the write that took it past 20 items.
const DefaultMaxItems = 21

var (
	itemsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnivore_items_written_total",
		Help: "Total number of items written by sink",
	}, []string{"sink"})

	bytesWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "omnivore_bytes_written_total",
		Help: "Total number of bytes written by sink",
	}, []string{"sink"})
)

// Sink persists items.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Write persists one item and returns the number of bytes written.
	Write(ctx context.Context, item client.Item) (int, error)

	// Close releases resources held by the sink.
	Close() error
}

// Options controls a Run.
type Options struct {
	// MaxItems stops the run after this many writes. Zero means no cap.
	MaxItems int
}

// Stats summarizes a Run.
type Stats struct {
	Written int
	Bytes   int64
}

// Run writes items to sink until the sequence ends, MaxItems is reached, or an
// error occurs. Sequence and sink errors end the run and are returned with the
// stats gathered so far.
func Run(ctx context.Context, items iter.Seq2[client.Item, error], sink Sink, opts Options) (Stats, error) {
	logger := log.With().Str("component", "export").Str("sink", sink.Name()).Logger()
	start := time.Now()

	var stats Stats
	for item, err := range items {
		if err != nil {
			return stats, fmt.Errorf("read items: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		n, err := sink.Write(ctx, item)
		if err != nil {
			return stats, fmt.Errorf("write %q: %w", item.Key(), err)
		}

		stats.Written++
		stats.Bytes += int64(n)
		itemsWrittenTotal.WithLabelValues(sink.Name()).Inc()
		bytesWrittenTotal.WithLabelValues(sink.Name()).Add(float64(n))

		logger.Debug().
			Str("key", item.Key()).
			Int("bytes", n).
			Int("written", stats.Written).
			Msg("Item written")

		if opts.MaxItems > 0 && stats.Written >= opts.MaxItems {
			logger.Debug().Int("max_items", opts.MaxItems).Msg("Item cap reached")
			break
		}
	}

	logger.Info().
		Int("written", stats.Written).
		Str("size", humanize.Bytes(uint64(stats.Bytes))).
		Dur("duration", time.Since(start)).
		Msg("Export complete")

	return stats, nil
}
