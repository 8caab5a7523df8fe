package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	"github.com/Sternrassler/omnivore-export/pkg/export"
	"github.com/Sternrassler/omnivore-export/pkg/logging"
	"github.com/Sternrassler/omnivore-export/pkg/metrics"
	"github.com/Sternrassler/omnivore-export/pkg/pagination"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Error().Err(err).Msg("Export failed")
		stop()
		os.Exit(1)
	}
}

var errNoSubcommand = errors.New("a subcommand is required: files, list, redis or sqlite")

// rootConfig holds the flags shared by every subcommand.
type rootConfig struct {
	searchTerm  string
	apiURL      string
	authToken   string
	logLevel    string
	logPretty   bool
	metricsAddr string
	pageSize    int
	maxPages    int
	timeout     time.Duration

	stdout io.Writer
	stderr io.Writer
}

func (c *rootConfig) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.searchTerm, "search-term", "", "Omnivore search filter, empty for all items")
	fs.StringVar(&c.apiURL, "omnivore-api-url", client.DefaultAPIURL, "API base URL, /graphql is appended")
	fs.StringVar(&c.authToken, "omnivore-auth-token", "", "auth cookie value (required)")
	fs.StringVar(&c.logLevel, "log-level", string(logging.LevelInfo), "debug, info, warn or error")
	fs.BoolVar(&c.logPretty, "log-pretty", false, "human-readable log output")
	fs.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while exporting")
	fs.IntVar(&c.pageSize, "page-size", pagination.DefaultPageSize, "items requested per page")
	fs.IntVar(&c.maxPages, "max-pages", 0, "stop after this many pages, 0 for no limit")
	fs.DurationVar(&c.timeout, "timeout", 0, "per-request timeout, 0 for none")
}

func newRootCommand(stdout, stderr io.Writer) *ffcli.Command {
	cfg := &rootConfig{stdout: stdout, stderr: stderr}

	rootFs := flag.NewFlagSet("omnivore-export", flag.ContinueOnError)
	rootFs.SetOutput(stderr)
	cfg.registerFlags(rootFs)

	root := &ffcli.Command{
		Name:       "omnivore-export",
		ShortUsage: "omnivore-export [flags] <subcommand> [flags]",
		ShortHelp:  "Export an Omnivore reading list",
		LongHelp: `Export an Omnivore reading list.
Pages through the GraphQL search query and hands every item to the
selected output. Every root flag can also be set through the environment
variable of the same name in upper case, e.g. OMNIVORE_AUTH_TOKEN.`,
		FlagSet: rootFs,
		Options: []ff.Option{ff.WithEnvVarNoPrefix()},
	}
	root.Exec = func(ctx context.Context, args []string) error {
		fmt.Fprintln(stderr, ffcli.DefaultUsageFunc(root))
		return errNoSubcommand
	}

	root.Subcommands = []*ffcli.Command{
		newFilesCommand(cfg),
		newListCommand(cfg),
		newRedisCommand(cfg),
		newSQLiteCommand(cfg),
	}
	return root
}

func newFilesCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("files", flag.ContinueOnError)
	fs.SetOutput(cfg.stderr)
	dir := fs.String("dir", "documents", "output directory")
	maxItems := fs.Int("max", export.DefaultMaxItems, "stop after this many files, 0 for no limit")

	return &ffcli.Command{
		Name:       "files",
		ShortUsage: "files [-dir documents] [-max 21]",
		ShortHelp:  "Write the markdown content of each item to <dir>/<slug>.md",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return cfg.export(ctx, client.ShapeContent, export.Options{MaxItems: *maxItems}, func(context.Context) (export.Sink, error) {
				return export.NewFileSink(*dir)
			})
		},
	}
}

func newListCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(cfg.stderr)

	return &ffcli.Command{
		Name:       "list",
		ShortUsage: "list",
		ShortHelp:  "Print every item with its highlights",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return cfg.export(ctx, client.ShapeHighlights, export.Options{}, func(context.Context) (export.Sink, error) {
				return export.NewConsoleSink(cfg.stdout), nil
			})
		},
	}
}

func newRedisCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("redis", flag.ContinueOnError)
	fs.SetOutput(cfg.stderr)
	addr := fs.String("redis-addr", "localhost:6379", "Redis address")
	prefix := fs.String("redis-prefix", export.DefaultRedisPrefix, "key prefix")
	shapeName := fs.String("shape", client.ShapeHighlights.Name, "query shape: content or highlights")

	return &ffcli.Command{
		Name:       "redis",
		ShortUsage: "redis [-redis-addr localhost:6379] [-redis-prefix omnivore] [-shape highlights]",
		ShortHelp:  "Store every item as JSON in Redis",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			shape, err := client.ShapeByName(*shapeName)
			if err != nil {
				return err
			}
			return cfg.export(ctx, shape, export.Options{}, func(ctx context.Context) (export.Sink, error) {
				rdb := redis.NewClient(&redis.Options{Addr: *addr})
				if err := rdb.Ping(ctx).Err(); err != nil {
					rdb.Close()
					return nil, fmt.Errorf("connect to redis at %s: %w", *addr, err)
				}
				return &ownedRedisSink{RedisSink: export.NewRedisSink(rdb, *prefix), rdb: rdb}, nil
			})
		},
	}
}

// ownedRedisSink closes the client it was opened with.
type ownedRedisSink struct {
	*export.RedisSink
	rdb *redis.Client
}

func (s *ownedRedisSink) Close() error {
	return s.rdb.Close()
}

func newSQLiteCommand(cfg *rootConfig) *ffcli.Command {
	fs := flag.NewFlagSet("sqlite", flag.ContinueOnError)
	fs.SetOutput(cfg.stderr)
	db := fs.String("db", "omnivore.db", "database path")
	shapeName := fs.String("shape", client.ShapeHighlights.Name, "query shape: content or highlights")

	return &ffcli.Command{
		Name:       "sqlite",
		ShortUsage: "sqlite [-db omnivore.db] [-shape highlights]",
		ShortHelp:  "Store items and highlights in an sqlite3 database",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			shape, err := client.ShapeByName(*shapeName)
			if err != nil {
				return err
			}
			return cfg.export(ctx, shape, export.Options{}, func(context.Context) (export.Sink, error) {
				return export.NewSQLiteSink(*db)
			})
		},
	}
}

// export runs one traversal into the sink returned by open.
func (c *rootConfig) export(ctx context.Context, shape client.Shape, opts export.Options, open func(context.Context) (export.Sink, error)) error {
	level, err := logging.ParseLogLevel(c.logLevel)
	if err != nil {
		return err
	}
	logging.Setup(logging.Config{Level: level, Pretty: c.logPretty, Output: c.stderr})
	logger := logging.NewLogger("cli")

	clientCfg := client.DefaultConfig(c.authToken)
	clientCfg.APIURL = c.apiURL
	clientCfg.SearchQuery = c.searchTerm
	clientCfg.Shape = shape
	clientCfg.Timeout = c.timeout

	omnivore, err := client.New(clientCfg)
	if err != nil {
		return err
	}

	if c.metricsAddr != "" {
		ms, err := startMetrics(c.metricsAddr, logger)
		if err != nil {
			return err
		}
		defer ms.Close()
	}

	sink, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Warn().Err(err).Str("sink", sink.Name()).Msg("Failed to close sink")
		}
	}()

	pageCfg := pagination.DefaultConfig()
	pageCfg.PageSize = c.pageSize
	pageCfg.SearchQuery = omnivore.SearchQuery()
	pageCfg.MaxPages = c.maxPages

	_, err = export.Run(ctx, pagination.Walk(ctx, omnivore, pageCfg), sink, opts)
	return err
}

// metricsServer serves /metrics for the duration of one export.
type metricsServer struct {
	srv             *http.Server
	ln              net.Listener
	logger          zerolog.Logger
	shutdownTimeout time.Duration
}

func startMetrics(addr string, logger zerolog.Logger) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	ms := &metricsServer{
		srv:             &http.Server{Handler: mux},
		ln:              ln,
		logger:          logger,
		shutdownTimeout: 5 * time.Second,
	}

	go func() {
		if err := ms.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn().Err(err).Str("addr", ms.Addr()).Msg("Metrics listener failed")
		}
	}()
	logger.Info().Str("addr", ms.Addr()).Msg("Serving metrics")

	return ms, nil
}

// Addr returns the address the listener is bound to.
func (m *metricsServer) Addr() string {
	return m.ln.Addr().String()
}

// Close stops the listener, waiting up to shutdownTimeout for open connections.
func (m *metricsServer) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), m.shutdownTimeout)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		m.logger.Warn().Err(err).Str("addr", m.Addr()).Msg("Failed to stop metrics listener")
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	if err := root.Parse(args); err != nil {
		return err
	}
	return root.Run(ctx)
}
