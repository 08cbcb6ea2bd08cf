package app

import (
	"context"
	"fmt"
	"net/http"

	"cryptodash/config"
	"cryptodash/internal/dashboard"
	"cryptodash/internal/market/poller"
	"cryptodash/internal/market/source"
	"cryptodash/internal/server"
	"cryptodash/pkg/coingecko"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const provider = "CoinGecko"

// App holds the wired dashboard pipeline: REST client, query cache,
// refetch timer, view owner and display surface.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	key       source.Key
	source    *source.QuerySource
	dashboard *dashboard.Dashboard
	hub       *server.Hub
	server    *server.Server
	poller    *poller.Poller
	closeFn   func() error
}

// New builds the pipeline described by cfg. Nothing runs until Run.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	// Create REST client for coins/markets
	var opts []coingecko.Option
	if cfg.CoinGecko.REST.APIKey != "" {
		opts = append(opts, coingecko.WithAPIKey(cfg.CoinGecko.REST.APIKeyHeader, cfg.CoinGecko.REST.APIKey))
	}
	restClient := coingecko.NewRESTClient(cfg.CoinGecko.REST.BaseURL, cfg.CoinGecko.REST.Timeout, opts...)

	loader := &source.MarketLoader{
		Client: restClient,
		Query: coingecko.MarketsQuery{
			VsCurrency: cfg.CoinGecko.Markets.VsCurrency,
			Order:      cfg.CoinGecko.Markets.Order,
			PerPage:    cfg.CoinGecko.Markets.PerPage,
			Page:       1,
			Sparkline:  true,
			Periods:    coingecko.Periods,
		},
		Timeout: cfg.CoinGecko.REST.Timeout,
		Logger:  logger,
	}

	store, closeFn, err := newStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	key := loader.Key()
	qs := source.NewQuerySource(store, cfg.Poll.StaleTime, logger)
	qs.Register(key, loader.Load)

	dash := dashboard.New(qs, dashboard.Options{
		Key:             key,
		StableColors:    cfg.Chart.StableColors,
		Provider:        provider,
		RefreshInterval: cfg.Poll.Interval,
	}, logger)

	hub := server.NewHub(logger)
	// Every completed fetch, failed or not, is pushed to connected clients.
	qs.Subscribe(func(source.Key, source.Result) { hub.Notify() })

	a := &App{
		cfg:       cfg,
		logger:    logger,
		key:       key,
		source:    qs,
		dashboard: dash,
		hub:       hub,
		server:    server.New(cfg.Server, cfg.Chart, dash, hub, logger),
		closeFn:   closeFn,
	}
	a.poller = &poller.Poller{
		Interval: cfg.Poll.Interval,
		Refresh:  a.refetch,
		Logger:   logger,
	}
	return a, nil
}

// Handler exposes the HTTP surface without starting a listener.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Run starts the refetch timer and serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pollDone := a.poller.Start(ctx)

	err := a.server.Start(ctx)
	cancel()
	<-pollDone
	return err
}

func (a *App) refetch(ctx context.Context) {
	res := a.source.Refetch(ctx, a.key)
	a.logger.Debug("refetch finished",
		zap.String("state", res.State.String()),
		zap.Int("count", len(res.Snapshots)))
}

func (a *App) close() {
	if a.closeFn == nil {
		return
	}
	if err := a.closeFn(); err != nil {
		a.logger.Warn("failed to close cache store", zap.Error(err))
	}
}

// newStore picks the cache backend. Redis keys live under a fresh session
// namespace and expire after cache.redis.ttl.
func newStore(cfg *config.Config, logger *zap.Logger) (source.Store, func() error, error) {
	switch cfg.Cache.Backend {
	case "redis":
		namespace := uuid.NewString()
		rc := cfg.Cache.Redis
		store, err := source.NewRedisStore(rc.Addr, rc.Password, rc.DB, namespace, rc.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open cache: %w", err)
		}
		logger.Info("using redis cache", zap.String("addr", rc.Addr), zap.String("namespace", namespace))
		return store, store.Close, nil
	default:
		logger.Info("using in-memory cache")
		return source.NewMemoryStore(), nil, nil
	}
}
