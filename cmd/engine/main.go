// Command engine is the anomaly-detection pipeline's process entrypoint
// (spec §1, §9). Adapted from the teacher's cmd/trader/main.go: the same
// flag-parsed config path and signal-based graceful shutdown, but the
// maker/taker order-placement select loop is replaced by
// constructing internal/engine.Engine and running it alongside the minimal
// health/readiness HTTP server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	polymarket "github.com/GoPolymarket/polymarket-go-sdk"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/marketwatch/anomaly-engine/internal/adapter"
	"github.com/marketwatch/anomaly-engine/internal/api"
	"github.com/marketwatch/anomaly-engine/internal/clock"
	"github.com/marketwatch/anomaly-engine/internal/config"
	"github.com/marketwatch/anomaly-engine/internal/engine"
	"github.com/marketwatch/anomaly-engine/internal/model"
	"github.com/marketwatch/anomaly-engine/internal/notify"
	"github.com/marketwatch/anomaly-engine/internal/store"
)

// shutdownGrace bounds how long the API server waits for in-flight requests
// to drain before Shutdown gives up.
const shutdownGrace = 10 * time.Second

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	phase := flag.String("rollout-phase", "", "rollout phase override: paper|shadow|live-small|live")
	flag.Parse()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		log.Printf("warning: config file: %v, using defaults", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv()
	if *phase != "" {
		if err := config.ApplyRolloutPhase(&cfg, *phase); err != nil {
			log.Fatalf("rollout phase: %v", err)
		}
	}
	cfg.ResolvePredicate()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	log.Printf("anomaly-engine starting (trading_mode=%s)", cfg.TradingMode)

	// The engine only ever reads market/orderbook/trade data to score and
	// decide; it never places an order, so the CLOB client stays
	// unauthenticated (spec's Non-goals exclude order execution).
	sdkClient := polymarket.NewClient()
	markets := adapter.NewGammaMarketsFeed(sdkClient.Gamma)
	orderbook := adapter.NewClobOrderbookFeed(sdkClient.CLOB)
	trades := adapter.NewClobTradeFeed(sdkClient.CLOB)

	var explorer adapter.BlockExplorer
	if strings.TrimSpace(cfg.PolygonRPCURL) != "" {
		chainClient, err := ethclient.Dial(cfg.PolygonRPCURL)
		if err != nil {
			log.Fatalf("polygon rpc dial: %v", err)
		}
		explorer = adapter.NewChainExplorer(chainClient)
	} else {
		log.Println("no POLYGON_RPC_URL configured: wallet enrichment degrades to neutral profiles")
		explorer = neutralExplorer{}
	}

	st := mustStore(cfg)

	notifier := notify.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if !notifier.Enabled() {
		log.Println("telegram not configured: decision/risk alerts are disabled")
	}

	eng := engine.New(cfg, engine.Deps{
		Store:     st,
		Clock:     clock.System{},
		Markets:   markets,
		Orderbook: orderbook,
		Trades:    trades,
		Explorer:  explorer,
		Notifier:  notifier,
	})

	apiServer := api.NewServer(cfg.APIAddr, eng)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := apiServer.Start(ctx); err != nil {
		log.Fatalf("api server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	runErrCh := make(chan error, 1)
	go func() { runErrCh <- eng.Run(ctx) }()

	select {
	case <-sigCh:
		log.Println("shutdown signal received")
	case err := <-runErrCh:
		if err != nil {
			log.Printf("engine run exited: %v", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("api server shutdown: %v", err)
	}
	<-runErrCh
	log.Println("anomaly-engine stopped")
}

// mustStore wires the shared store: Redis when an address is configured,
// the in-process memory store otherwise (single-instance/dev use only —
// spec §5 assumes a shared store when the engine is horizontally scaled).
func mustStore(cfg config.Config) store.Store {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		log.Println("no redis_addr configured: using in-process memory store (single instance only)")
		return store.NewMemoryStore()
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return store.NewRedisStore(rdb)
}

// neutralExplorer is used only when no Polygon RPC endpoint is configured;
// every lookup reports "unknown", which internal/wallet.Enricher already
// treats as a neutral profile (spec §4.9, §7).
type neutralExplorer struct{}

func (neutralExplorer) EarliestTx(context.Context, model.Address) (uint64, time.Time, bool, error) {
	return 0, time.Time{}, false, nil
}

func (neutralExplorer) TxCount(context.Context, model.Address) (uint64, error) { return 0, nil }

func (neutralExplorer) IsContract(context.Context, model.Address) (bool, error) { return false, nil }
