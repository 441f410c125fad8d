// Command oceanpost synchronizes engagement counters with a
// content-addressed store and an on-chain ledger.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	oceanpost "github.com/driftlabs/oceanpost"
	"github.com/driftlabs/oceanpost/cache"
	"github.com/driftlabs/oceanpost/ledger"
	"github.com/driftlabs/oceanpost/ledger/evm"
	"github.com/driftlabs/oceanpost/promote"
	"github.com/driftlabs/oceanpost/store"
	"github.com/driftlabs/oceanpost/syncer"
	"github.com/driftlabs/oceanpost/telemetry"
	"github.com/driftlabs/oceanpost/tracker"
)

var version = "dev"

type cli struct {
	LogLevel      string `help:"Log level (debug, info, warn, error)." default:"info" enum:"debug,info,warn,error"`
	LogFormat     string `help:"Log format (text, json)." default:"text" enum:"text,json"`
	MetricsListen string `help:"Address to serve Prometheus metrics on (empty disables)." default:""`
	OTLPEndpoint  string `help:"OTLP gRPC endpoint for metric export (empty disables)." default:""`

	Demo    demoCmd    `cmd:"" help:"Run an end-to-end flow against in-memory backends."`
	Sync    syncCmd    `cmd:"" help:"Publish counters as a snapshot and advance the ledger pointer."`
	Promote promoteCmd `cmd:"" help:"Evaluate promotion thresholds and request promotion if earned."`

	Version kong.VersionFlag `help:"Print version and exit."`
}

// chainFlags are shared by the commands that talk to real infrastructure.
type chainFlags struct {
	StoreURL   string `help:"Content-store node API URL." default:"http://127.0.0.1:5001"`
	StoreToken string `help:"Bearer token for the content-store API." env:"OCEANPOST_STORE_TOKEN"`

	RPCURL     string `help:"EVM JSON-RPC endpoint." default:"http://127.0.0.1:8545"`
	Contract   string `help:"Ledger contract address." required:""`
	PrivateKey string `help:"Hex-encoded signing key." env:"OCEANPOST_PRIVATE_KEY" required:""`
	ChainID    int64  `help:"Chain ID (0 queries the node)." default:"0"`
	GasLimit   uint64 `help:"Gas limit per transaction (0 estimates)." default:"0"`
}

func (c *chainFlags) dial(ctx context.Context, logger *slog.Logger) (store.Store, ledger.Ledger, func(), error) {
	gw, err := store.NewGateway(
		store.WithAPIURL(c.StoreURL),
		store.WithBearerToken(c.StoreToken),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating store client: %w", err)
	}

	chain, err := evm.Dial(ctx, evm.Config{
		RPCURL:          c.RPCURL,
		ContractAddress: c.Contract,
		PrivateKeyHex:   c.PrivateKey,
		ChainID:         c.ChainID,
		GasLimit:        c.GasLimit,
		Logger:          logger,
	})
	if err != nil {
		gw.Close()
		return nil, nil, nil, fmt.Errorf("dialing ledger: %w", err)
	}

	cleanup := func() {
		chain.Close()
		gw.Close()
	}
	return store.NewInstrumented(gw, "gateway"), ledger.NewInstrumented(chain), cleanup, nil
}

type runContext struct {
	ctx    context.Context
	logger *slog.Logger
}

type syncCmd struct {
	chainFlags

	EntityID uint64 `help:"Entity to synchronize." required:""`
	Hash     string `help:"Current content hash of the entity's snapshot." required:""`
	Likes    int64  `help:"Current like count." required:""`
	Comments int64  `help:"Current comment count." required:""`
}

func (c *syncCmd) Run(rc *runContext) error {
	st, led, cleanup, err := c.dial(rc.ctx, rc.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tr := tracker.New(tracker.WithLogger(rc.logger))
	tr.Load(c.EntityID, oceanpost.ContentHash(c.Hash), c.Likes, c.Comments)

	loader := cache.NewLoader(cache.New(), st, cache.WithLogger(rc.logger))
	s := syncer.New(tr, st, led, loader, syncer.WithLogger(rc.logger))

	newHash, err := s.SyncCounts(rc.ctx, c.EntityID)
	if err != nil {
		return err
	}

	rc.logger.Info("counts synchronized",
		"entity_id", c.EntityID,
		"hash", newHash.String(),
		"likes", c.Likes,
		"comments", c.Comments,
	)
	fmt.Println(newHash.String())
	return nil
}

type promoteCmd struct {
	chainFlags

	EntityID         uint64 `help:"Entity to evaluate." required:""`
	Likes            int64  `help:"Current like count." required:""`
	Comments         int64  `help:"Current comment count." required:""`
	LikeThreshold    int64  `help:"Likes required for promotion." default:"100"`
	CommentThreshold int64  `help:"Comments required for promotion." default:"4"`
}

func (c *promoteCmd) Run(rc *runContext) error {
	_, led, cleanup, err := c.dial(rc.ctx, rc.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	tr := tracker.New(tracker.WithLogger(rc.logger))
	tr.Load(c.EntityID, "", c.Likes, c.Comments)

	e := promote.New(tr, led,
		promote.WithThresholds(promote.Thresholds{Likes: c.LikeThreshold, Comments: c.CommentThreshold}),
		promote.WithLogger(rc.logger),
	)
	return e.Evaluate(rc.ctx, c.EntityID)
}

type demoCmd struct {
	Likes    int           `help:"Number of likes to simulate." default:"101"`
	Comments int           `help:"Number of comments to simulate." default:"5"`
	Unlikes  int           `help:"Number of unlikes to simulate." default:"1"`
	TTL      time.Duration `help:"Cache TTL." default:"5m"`
}

func (c *demoCmd) Run(rc *runContext) error {
	ctx := rc.ctx
	logger := rc.logger

	mem := store.NewInstrumented(store.NewMemory(), "memory")
	led := ledger.NewInstrumented(ledger.NewMemory())

	tr := tracker.New(tracker.WithLogger(logger))
	loader := cache.NewLoader(cache.New(cache.WithTTL(c.TTL)), mem, cache.WithLogger(logger))
	s := syncer.New(tr, mem, led, loader, syncer.WithLogger(logger))
	e := promote.New(tr, led, promote.WithLogger(logger))

	// Seed a bottle snapshot the way a publisher would.
	now := time.Now().UTC()
	seed := &oceanpost.BottlePayload{
		Kind:          oceanpost.KindBottle,
		Text:          "a message set adrift",
		AuthorID:      uuid.NewString(),
		CreatedAtUnix: now.Unix(),
		CreatedAtISO:  now.Format(time.RFC3339),
	}
	data, err := oceanpost.EncodePayload(seed)
	if err != nil {
		return err
	}
	hash, err := mem.Upload(ctx, data)
	if err != nil {
		return err
	}
	logger.Info("seed snapshot uploaded", "hash", hash.ShortString())

	const entityID = 1
	tr.Load(entityID, hash, 0, 0)

	for i := 0; i < c.Likes; i++ {
		if _, err := tr.IncrementLikes(entityID); err != nil {
			return err
		}
		if err := led.RecordEngagement(ctx, entityID, uuid.NewString()); err != nil {
			return err
		}
	}
	for i := 0; i < c.Unlikes; i++ {
		if _, err := tr.DecrementLikes(entityID); err != nil {
			return err
		}
	}
	for i := 0; i < c.Comments; i++ {
		if _, err := tr.IncrementComments(entityID); err != nil {
			return err
		}
		if err := led.RecordEngagement(ctx, entityID, uuid.NewString()); err != nil {
			return err
		}
	}

	counts, _ := tr.ReadCounts(entityID)
	logger.Info("engagement simulated", "likes", counts.Likes, "comments", counts.Comments)

	newHash, err := s.SyncCounts(ctx, entityID)
	if err != nil {
		return err
	}
	logger.Info("counts synchronized", "hash", newHash.ShortString())

	if err := e.Evaluate(ctx, entityID); err != nil {
		return err
	}

	// Read the snapshot back through the cache to show the final state.
	payload, err := loader.Load(ctx, newHash)
	if err != nil {
		return err
	}
	bottle := payload.(*oceanpost.BottlePayload)
	stats := loader.Cache().Stats()

	logger.Info("demo complete",
		"hash", newHash.ShortString(),
		"likes", bottle.LikeCount,
		"comments", bottle.CommentCount,
		"cache_entries", stats.Count,
		"cache_bytes", stats.ApproxBytes,
	)
	return nil
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("oceanpost"),
		kong.Description("Engagement counter synchronization for content-addressed snapshots."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	if err := run(&c, kctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli, kctx *kong.Context) error {
	logger, err := newLogger(c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := telemetry.InitMetrics(ctx, telemetry.MetricsConfig{
		ServiceName:      "oceanpost",
		ServiceVersion:   version,
		OTLPEndpoint:     c.OTLPEndpoint,
		EnablePrometheus: c.MetricsListen != "",
	})
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}()

	if c.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.PrometheusHandler())
		go func() {
			logger.Info("metrics listening", "address", c.MetricsListen)
			if err := http.ListenAndServe(c.MetricsListen, mux); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	return kctx.Run(&runContext{ctx: ctx, logger: logger})
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	var handler slog.Handler
	switch format {
	case "text":
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: lvl, TimeFormat: time.Kitchen})
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	return slog.New(handler), nil
}
