package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/baggage"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/config"
	"github.com/ryanm101/gameshelf/internal/kvstore"
	"github.com/ryanm101/gameshelf/internal/library"
	"github.com/ryanm101/gameshelf/internal/logging"
	"github.com/ryanm101/gameshelf/internal/metrics"
	"github.com/ryanm101/gameshelf/internal/safety"
	"github.com/ryanm101/gameshelf/internal/tracing"
)

const version = "0.1.0"

var (
	cfg     *config.Config
	cfgPath string
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute sets up the process and runs one command. Deferred shutdowns run
// before main exits with the returned code.
func execute(argv []string) int {
	ctx := context.Background()

	m, _ := baggage.NewMember("app.version", version)
	b, _ := baggage.New(m)
	ctx = baggage.ContextWithBaggage(ctx, b)

	cfg, cfgPath = loadConfig(os.Stderr)

	args := parseGlobalFlags(argv)
	if outputCfg.MetricsAddr != "" {
		cfg.Metrics.Addr = outputCfg.MetricsAddr
	}

	logging.Setup(cfg.LoggingConfig())
	defer func() { _ = logging.Close() }()

	shutdown, err := tracing.Setup(ctx, cfg.TracingConfig())
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
		shutdown = func(context.Context) error { return nil }
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			logging.Error("failed to shutdown tracing", "error", err)
		}
	}()

	if cfg.Metrics.Addr != "" {
		stop := serveMetrics(cfg.Metrics.Addr)
		defer stop()
	}

	return run(ctx, args)
}

// loadConfig reads the configuration, falling back to defaults when it cannot
// be loaded. Load and validation problems are written to w as warnings.
func loadConfig(w io.Writer) (*config.Config, string) {
	c, path, err := config.LoadWithPath()
	if err != nil {
		_, _ = fmt.Fprintf(w, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig(), ""
	}
	if err := c.Validate(); err != nil {
		_, _ = fmt.Fprintf(w, "Warning: invalid config: %v\n", err)
	}
	return c, path
}

// run dispatches a command and returns the process exit code.
func run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "search":
		return handleSearchCommand(ctx, args[1:])
	case "show":
		return handleShowCommand(ctx, args[1:])
	case "genres":
		return handleGenresCommand()
	case "sorts":
		return handleSortsCommand()
	case "library":
		if len(args) < 2 {
			fmt.Println("Usage: gameshelf library <command>")
			fmt.Println("Commands: list, show, add, edit, remove")
			return 1
		}
		return handleLibraryCommand(ctx, args[1:])
	case "stats":
		return handleStatsCommand(ctx)
	case "config":
		return handleConfigCommand(args[1:])
	case "help", "-h", "--help":
		printUsage()
		return 0
	case "version", "--version":
		fmt.Println("gameshelf", version)
		return 0
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Println("gameshelf - game catalog browser and personal library")
	fmt.Println()
	fmt.Println("Usage: gameshelf [global options] <command> [options]")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --json                              Output in JSON format")
	fmt.Println("  --quiet, -q                         Suppress non-error output")
	fmt.Println("  --metrics-addr=<addr>               Serve Prometheus metrics while running")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  search [text] [--genre=g] [--sort=k] [--pages=n]")
	fmt.Println("                                      Browse the catalog (popular when no text)")
	fmt.Println("  show <game_id>                      Show one catalog game")
	fmt.Println("  genres                              List genre filters")
	fmt.Println("  sorts                               List sort keys")
	fmt.Println("  library list [--status=s]           List library entries")
	fmt.Println("  library show <game_id>              Show one library entry")
	fmt.Println("  library add <game_id> <status> [--rating=r] [--comment=c]")
	fmt.Println("                                      Add a catalog game to the library")
	fmt.Println("  library edit <game_id> [--status=s] [--rating=r|--clear-rating] [--comment=c]")
	fmt.Println("                                      Edit a library entry")
	fmt.Println("  library remove <game_id>            Remove a library entry")
	fmt.Println("  stats                               Show library statistics")
	fmt.Println("  config show                         Show active configuration")
	fmt.Println("  config init                         Initialize example config")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Statuses: played, playing, backlog, dropped")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GAMESHELF_CONFIG                    Config file path")
	fmt.Println("  GAMESHELF_DB                        Library location (default: gameshelf.db)")
	fmt.Println("  GAMESHELF_API_KEY                   RAWG API key")
	fmt.Println("  IGDB_CLIENT_ID, IGDB_CLIENT_SECRET  IGDB credentials")
}

// newCatalogClient builds the configured catalog provider.
func newCatalogClient(ctx context.Context) (catalog.Client, error) {
	opts := []catalog.Option{
		catalog.WithPageSize(cfg.GetPageSize()),
		catalog.WithTimeout(cfg.GetTimeout()),
	}
	if cfg.Catalog.RateLimit > 0 {
		opts = append(opts, catalog.WithRateLimit(cfg.Catalog.RateLimit, 1))
	}

	switch cfg.GetProvider() {
	case "igdb":
		id, secret := cfg.Catalog.IGDB.ClientID, cfg.Catalog.IGDB.ClientSecret
		if id == "" || secret == "" {
			return nil, errors.New("IGDB_CLIENT_ID and IGDB_CLIENT_SECRET are required for the igdb provider")
		}
		return catalog.NewIGDBClient(ctx, id, secret, opts...)
	case "rawg":
		if cfg.Catalog.BaseURL != "" {
			opts = append(opts, catalog.WithBaseURL(cfg.Catalog.BaseURL))
		}
		if cfg.Catalog.APIKey == "" {
			logging.Warn("no catalog API key configured; set GAMESHELF_API_KEY")
		}
		return catalog.NewRAWGClient(cfg.Catalog.APIKey, opts...), nil
	default:
		return nil, fmt.Errorf("unknown catalog provider %q", cfg.Catalog.Provider)
	}
}

func newContentFilter() func([]catalog.Item) []catalog.Item {
	if len(cfg.Safety.ExtraTags) == 0 {
		return safety.Filter
	}
	return safety.NewFilter(cfg.Safety.ExtraTags...).Apply
}

// openLibrary opens the configured backend and loads the collection. A
// corrupted collection is reported and the library starts empty.
func openLibrary(ctx context.Context) (*library.Store, func(), error) {
	kv, err := kvstore.Open(ctx, cfg.GetBackend(), cfg.GetLibraryPath())
	if err != nil {
		return nil, nil, err
	}
	store := library.NewStore(kv, library.WithKey(cfg.GetLibraryKey()))
	if _, err := store.Load(ctx); err != nil {
		if !errors.Is(err, library.ErrPersistenceRead) {
			_ = kv.Close()
			return nil, nil, err
		}
		PrintError("Warning: %v (starting with an empty library)\n", err)
	}
	return store, func() { _ = kv.Close() }, nil
}

func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logging.Debug("serving metrics", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// flagValue returns the value of --name=value in flags.
func flagValue(flags []string, name string) (string, bool) {
	prefix := "--" + name + "="
	for _, f := range flags {
		if strings.HasPrefix(f, prefix) {
			return strings.TrimPrefix(f, prefix), true
		}
	}
	return "", false
}

// splitArgs separates --flags from positional arguments.
func splitArgs(args []string) (positional, flags []string) {
	for _, a := range args {
		if strings.HasPrefix(a, "--") {
			flags = append(flags, a)
		} else {
			positional = append(positional, a)
		}
	}
	return positional, flags
}
