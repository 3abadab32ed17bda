// Package pricing resolves current prices for a scan cycle.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout   = 5 * time.Second
	defaultMaxConcurrency = 8
)

// QuoteSource 取得單一 ticker 的目前價格。
type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// Oracle 併發查價，每個 ticker 只查一次；失敗的 ticker 不出現在結果中。
type Oracle struct {
	source         QuoteSource
	fetchTimeout   time.Duration
	maxConcurrency int
	logger         *zap.Logger
}

// Option 調整 Oracle 設定。
type Option func(*Oracle)

// WithFetchTimeout 設定單次查價逾時。
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.fetchTimeout = d
		}
	}
}

// WithMaxConcurrency 設定同時對外請求上限。
func WithMaxConcurrency(n int) Option {
	return func(o *Oracle) {
		if n > 0 {
			o.maxConcurrency = n
		}
	}
}

// WithLogger 注入 logger。
func WithLogger(l *zap.Logger) Option {
	return func(o *Oracle) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOracle 建立查價器。
func NewOracle(source QuoteSource, opts ...Option) *Oracle {
	o := &Oracle{
		source:         source,
		fetchTimeout:   defaultFetchTimeout,
		maxConcurrency: defaultMaxConcurrency,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetPrices 不重試；下一輪排程即為重試機制。
func (o *Oracle) GetPrices(ctx context.Context, tickers map[string]struct{}) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(tickers))
	if len(tickers) == 0 {
		return out
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(o.maxConcurrency)
	for ticker := range tickers {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			price, err := o.fetch(ctx, ticker)
			if err == nil && !price.IsPositive() {
				err = fmt.Errorf("non-positive price %s", price)
			}
			if err != nil {
				o.logger.Warn("quote unavailable", zap.String("ticker", ticker), zap.Error(err))
				return nil
			}
			mu.Lock()
			out[ticker] = price
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (o *Oracle) fetch(ctx context.Context, ticker string) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
	defer cancel()
	return o.source.Quote(ctx, ticker)
}
