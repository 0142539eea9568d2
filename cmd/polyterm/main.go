// Command polyterm browses Polymarket prediction markets. It loads
// configuration, wires the source adapters and response cache into the
// aggregation client, and starts either the interactive terminal UI or,
// with --agent, performs a single operation and prints one JSON document.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ssarlove/polyterm/internal/agent"
	"github.com/ssarlove/polyterm/internal/cache"
	"github.com/ssarlove/polyterm/internal/client"
	"github.com/ssarlove/polyterm/internal/config"
	"github.com/ssarlove/polyterm/internal/domain"
	"github.com/ssarlove/polyterm/internal/platform/polymarket"
	"github.com/ssarlove/polyterm/internal/tui"
)

type flags struct {
	configPath string
	agentMode  bool

	list      bool
	market    string
	book      string
	price     string
	positions string

	limit   int
	offset  int
	filter  string
	active  bool
	noCache bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to configuration file (optional)")
	flag.BoolVar(&f.agentMode, "agent", false, "run one operation and print a JSON document")

	flag.BoolVar(&f.list, "list", false, "agent: list markets")
	flag.StringVar(&f.market, "market", "", "agent: show one market by condition id")
	flag.StringVar(&f.book, "book", "", "agent: show the order book for a token id")
	flag.StringVar(&f.price, "price", "", "agent: show the price for a token id")
	flag.StringVar(&f.positions, "positions", "", "agent: show positions for a wallet address")

	flag.IntVar(&f.limit, "limit", 0, "maximum number of markets to list")
	flag.IntVar(&f.offset, "offset", 0, "number of markets to skip")
	flag.StringVar(&f.filter, "filter", "", "substring filter over question and category")
	flag.BoolVar(&f.active, "active", true, "restrict listing to active markets")
	flag.BoolVar(&f.noCache, "no-cache", false, "bypass the response cache")
	flag.Parse()
	return f
}

func main() {
	os.Exit(run())
}

func run() int {
	f := parseFlags()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polyterm: load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "polyterm: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg, f.agentMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polyterm: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, closeCache, err := buildClient(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "polyterm: %v\n", err)
		return 1
	}
	defer closeCache()

	if f.agentMode {
		return runAgent(ctx, c, f, logger)
	}

	var svc tui.Service = c
	if f.noCache {
		svc = c.Fresh()
	}
	err = tui.Run(svc, c.Fresh(), tui.Options{
		RefreshEvery: cfg.UI.RefreshInterval.Duration,
		PageSize:     cfg.UI.PageSize,
		ActiveOnly:   cfg.UI.ActiveOnly,
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "polyterm: %v\n", err)
		return 1
	}
	return 0
}

func runAgent(ctx context.Context, c *client.Client, f flags, logger *slog.Logger) int {
	runner := agent.New(serviceFor(c, f.noCache), os.Stdout, logger)

	req, err := buildRequest(f)
	if err != nil {
		return runner.Fail(err)
	}
	return runner.Run(ctx, req)
}

func serviceFor(c *client.Client, noCache bool) agent.Service {
	if noCache {
		return c.Fresh()
	}
	return c
}

// buildRequest maps command-line selectors onto exactly one operation.
// Zero or multiple selectors is a usage error caught before any network
// activity.
func buildRequest(f flags) (agent.Request, error) {
	req := agent.Request{
		Query: client.Query{
			Filter:     f.filter,
			ActiveOnly: f.active,
			Limit:      f.limit,
			Offset:     f.offset,
		},
	}

	selected := 0
	if f.list {
		selected++
		req.Op = agent.OpListMarkets
	}
	if f.market != "" {
		selected++
		req.Op = agent.OpGetMarket
		req.ConditionID = f.market
	}
	if f.book != "" {
		selected++
		req.Op = agent.OpGetBook
		req.TokenID = f.book
	}
	if f.price != "" {
		selected++
		req.Op = agent.OpGetPrice
		req.TokenID = f.price
	}
	if f.positions != "" {
		selected++
		req.Op = agent.OpPositions
		req.Address = f.positions
	}
	switch selected {
	case 0:
		return req, fmt.Errorf("%w: one of --list, --market, --book, --price or --positions is required", domain.ErrUsage)
	case 1:
		return req, nil
	default:
		return req, fmt.Errorf("%w: --list, --market, --book, --price and --positions are mutually exclusive", domain.ErrUsage)
	}
}

func buildClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*client.Client, func(), error) {
	timeout := cfg.HTTP.Timeout.Duration

	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost, timeout)
	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, timeout)
	data := polymarket.NewDataClient(cfg.Polymarket.DataHost, timeout, polymarket.Credentials{
		APIKey:     cfg.Credentials.APIKey,
		Secret:     cfg.Credentials.Secret,
		Passphrase: cfg.Credentials.Passphrase,
		Address:    cfg.Credentials.Address,
	})

	store, closeCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	c := client.New(gamma, clob, data, client.Options{
		Cache:       store,
		TTL:         cfg.Cache.TTL.Duration,
		MaxRetries:  cfg.HTTP.MaxRetries,
		BackoffBase: cfg.HTTP.BackoffBase.Duration,
		Logger:      logger,
	})
	return c, closeCache, nil
}

func buildCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func(), error) {
	switch cfg.Cache.Backend {
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			TLS:      cfg.Cache.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("cache: %w", err)
		}
		logger.Info("using redis cache", slog.String("addr", cfg.Cache.Redis.Addr))
		return r, func() { _ = r.Close() }, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

// newLogger builds the structured JSON logger. Agent mode logs to stderr so
// stdout stays a clean JSON document; interactive mode logs to a file
// because the renderer owns the terminal.
func newLogger(cfg *config.Config, agentMode bool) (*slog.Logger, func(), error) {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if agentMode {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), func() {}, nil
	}

	var w io.Writer = io.Discard
	closeLog := func() {}
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = file
		closeLog = func() { _ = file.Close() }
	}
	return slog.New(slog.NewJSONHandler(w, opts)), closeLog, nil
}
