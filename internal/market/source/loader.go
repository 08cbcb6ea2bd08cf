package source

import (
	"context"
	"fmt"
	"time"

	"cryptodash/internal/market/snapshot"
	"cryptodash/pkg/coingecko"

	"go.uber.org/zap"
)

// MarketsClient is the part of the CoinGecko REST client the loader needs.
type MarketsClient interface {
	GetMarkets(ctx context.Context, q coingecko.MarketsQuery) ([]coingecko.MarketRecord, error)
}

// MarketLoader fetches the configured coins/markets page and normalizes it.
type MarketLoader struct {
	Client  MarketsClient
	Query   coingecko.MarketsQuery
	Timeout time.Duration
	Logger  *zap.Logger
}

// Key derives the cache key from the request parameters. Every period is
// requested at once, so the displayed period is not part of the key.
func (l *MarketLoader) Key() Key {
	return Key(fmt.Sprintf("markets:%s:%s:%d", l.Query.VsCurrency, l.Query.Order, l.Query.PerPage))
}

// Load is a Fetcher.
func (l *MarketLoader) Load(ctx context.Context) (snapshot.Collection, error) {
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	records, err := l.Client.GetMarkets(ctx, l.Query)
	if err != nil {
		l.Logger.Error("failed to load markets", zap.Error(err))
		return nil, err
	}
	l.Logger.Info("loaded markets", zap.Int("count", len(records)))

	return snapshot.FromRecords(records), nil
}
