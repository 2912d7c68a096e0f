package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"buyScope/internal/chain"
	"buyScope/internal/classify"
	"buyScope/internal/config"
	"buyScope/internal/dedupe"
	"buyScope/internal/dex"
	"buyScope/internal/metrics"
	"buyScope/internal/notify"
	"buyScope/internal/oracle"
	"buyScope/internal/pipeline"
	"buyScope/internal/registry"
	"buyScope/internal/storage/postgres"
)

// app holds the wired pipeline shared by process and backfill.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	registry  *registry.Registry
	processor *pipeline.Processor
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	clients   map[uint64]*chain.Client
	closers   []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, clients: make(map[uint64]*chain.Client)}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	cfg := a.cfg
	if len(cfg.Token.Addresses) == 0 {
		return fmt.Errorf("token-address is required")
	}

	reg, err := loadRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	a.registry = reg

	if cfg.MetricsAddr != "" {
		a.metrics = metrics.New(nil)
		a.serveMetrics(cfg.MetricsAddr)
	}

	var rdb *redis.Client
	if cfg.DedupeBackend == "redis" || cfg.PriceSource == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: ping: %w", err)
		}
	}

	var guard dedupe.Guard
	switch cfg.DedupeBackend {
	case "redis":
		guard = dedupe.NewRedisWithClient(rdb, "", cfg.DedupeTTL)
	default:
		memory, err := dedupe.NewMemory(cfg.DedupeCapacity, cfg.DedupeTTL)
		if err != nil {
			return err
		}
		guard = memory
	}

	var prices oracle.PriceOracle
	switch cfg.PriceSource {
	case "redis":
		prices = oracle.NewRedisPrice(rdb, cfg.PriceMaxAge)
	case "static":
		if cfg.Price > 0 {
			prices = oracle.StaticPrice(cfg.Price)
		}
	}

	readers := make(map[uint64]oracle.BalanceReader, len(cfg.RPC))
	for chainID, url := range cfg.RPC {
		client, err := a.client(ctx, chainID, url)
		if err != nil {
			return err
		}
		readers[chainID] = client
	}
	var balances oracle.BalanceOracle
	if len(readers) > 0 {
		balances = oracle.NewChainBalances(cfg.Token, readers, cfg.MaxRetries, cfg.RetryBackoff)
	}

	decoder, err := dex.NewDecoder(dex.Config{
		Pools:   reg,
		Token:   cfg.Token,
		Logger:  a.logger,
		Workers: cfg.DecodeWorkers,
	})
	if err != nil {
		return err
	}
	classifier, err := classify.New(classify.Config{
		Token:          cfg.Token,
		Threshold:      cfg.Threshold,
		WhaleThreshold: cfg.WhaleThreshold,
		Prices:         prices,
		Balances:       balances,
		Timeout:        cfg.EnrichTimeout,
		Concurrency:    cfg.EnrichConcurrency,
		Logger:         a.logger,
		Metrics:        a.metrics,
	})
	if err != nil {
		return err
	}
	a.processor, err = pipeline.NewProcessor(pipeline.Config{
		Decoder:    decoder,
		Guard:      guard,
		Classifier: classifier,
		Token:      cfg.Token,
		Logger:     a.logger,
		Metrics:    a.metrics,
	})
	if err != nil {
		return err
	}

	notifiers := notify.Multi{notify.NewJSONL(cfg.Out)}
	if cfg.NotifyWebhook != "" {
		webhook, err := notify.NewWebhook(cfg.NotifyWebhook, nil)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, webhook)
	}
	a.notifier = notifiers

	a.logger.Info("pipeline ready",
		zap.String("token", cfg.Token.Symbol),
		zap.Int("pools", len(reg.Pools())),
		zap.String("dedupe", cfg.DedupeBackend),
		zap.String("price_source", cfg.PriceSource),
		zap.Int("rpc_chains", len(readers)),
		zap.Float64("threshold", cfg.Threshold),
	)
	return nil
}

// client dials one RPC per chain and checks it serves the expected chain.
func (a *app) client(ctx context.Context, chainID uint64, url string) (*chain.Client, error) {
	if client, ok := a.clients[chainID]; ok {
		return client, nil
	}
	client, err := chain.NewClient(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect rpc for chain %d: %w", chainID, err)
	}
	a.closers = append(a.closers, client.Close)

	served, err := client.GetChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !served.IsUint64() || served.Uint64() != chainID {
		return nil, fmt.Errorf("rpc for chain %d serves chain %s", chainID, served)
	}
	a.clients[chainID] = client
	return client, nil
}

// handle processes one payload and delivers its alerts.
func (a *app) handle(ctx context.Context, payload []byte) (int, error) {
	alerts := a.processor.Process(ctx, payload)
	if len(alerts) == 0 {
		return 0, nil
	}
	if err := a.notifier.Notify(ctx, alerts); err != nil {
		a.metrics.NotifyError()
		return len(alerts), fmt.Errorf("notify: %w", err)
	}
	return len(alerts), nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(nil))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", zap.Error(err))
		}
	}()
	a.closers = append(a.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	a.logger.Info("metrics enabled", zap.String("addr", addr))
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// loadRegistry reads the YAML registry when configured, else the pools
// table in Postgres.
func loadRegistry(ctx context.Context, cfg config.Config) (*registry.Registry, error) {
	if cfg.Pools != "" {
		return registry.LoadFile(cfg.Pools)
	}
	if cfg.PgDSN == "" {
		return nil, fmt.Errorf("pools file or pg-dsn is required")
	}
	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	pools, err := store.LoadPools(ctx)
	if err != nil {
		return nil, err
	}
	return registry.New(pools)
}
