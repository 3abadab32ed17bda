package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDeliveryConcurrency = 8

// 沒有推播就不 claim，避免警示被標記 triggered 卻無法送出。
var errNoPusher = errors.New("push delivery is not configured")

// CycleOptions 控制單輪掃描的行為。
type CycleOptions struct {
	// Concurrency 同時處理的警示數上限（claim + 推播）。
	Concurrency int
	// ClickURL 通知點擊後導向的 URL 樣板，可含 {ticker}。
	ClickURL string
	Logger   *zap.Logger
}

// CycleStats 為單輪掃描的統計。
type CycleStats struct {
	Active     int
	Tickers    int
	Priced     int
	NoPrice    int
	Triggered  int
	LostClaims int
	Abandoned  int
	Errors     int
	Delivery   DeliveryReport
	Duration   time.Duration
}

// RunOneCycle 執行一輪掃描。只有載入 active 警示失敗會中止整輪；
// 其他錯誤以單一警示為界隔離處理。正確性只依賴 Store.TryMarkTriggered。
func RunOneCycle(ctx context.Context, store Store, oracle PriceOracle, pusher Pusher, opts CycleOptions) (CycleStats, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats CycleStats
	if pushDisabled(pusher) {
		return stats, errNoPusher
	}

	alerts, err := store.ListActiveAlerts(ctx)
	if err != nil {
		return stats, fmt.Errorf("list active alerts: %w", err)
	}
	stats.Active = len(alerts)
	if len(alerts) == 0 {
		stats.Duration = time.Since(start)
		return stats, nil
	}

	tickers := make(map[string]struct{}, len(alerts))
	for _, a := range alerts {
		tickers[a.Ticker] = struct{}{}
	}
	stats.Tickers = len(tickers)

	prices := oracle.GetPrices(ctx, tickers)
	stats.Priced = len(prices)

	limit := opts.Concurrency
	if limit <= 0 {
		limit = defaultDeliveryConcurrency
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)
	for _, a := range alerts {
		price, ok := prices[a.Ticker]
		if !ok {
			stats.NoPrice++
			continue
		}
		if !a.Evaluable() || !a.Satisfied(price) {
			continue
		}
		if ctx.Err() != nil {
			logger.Warn("scan cycle deadline reached, abandoning remaining alerts", zap.Error(ctx.Err()))
			break
		}
		g.Go(func() error {
			out := processAlert(ctx, store, pusher, logger, opts.ClickURL, a, price)
			mu.Lock()
			stats.Triggered += out.triggered
			stats.LostClaims += out.lost
			stats.Abandoned += out.abandoned
			stats.Errors += out.errors
			stats.Delivery.add(out.delivery)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = time.Since(start)
	return stats, nil
}

type alertOutcome struct {
	triggered int
	lost      int
	abandoned int
	errors    int
	delivery  DeliveryReport
}

func processAlert(ctx context.Context, store Store, pusher Pusher, logger *zap.Logger, clickURL string, a alertDomain.Alert, price decimal.Decimal) alertOutcome {
	var out alertOutcome
	// g.Go 可能排隊到期限之後才執行；逾時就不 claim，留給下一輪。
	if ctx.Err() != nil {
		out.abandoned++
		return out
	}
	claimed, err := store.TryMarkTriggered(ctx, a.ID)
	if err != nil {
		out.errors++
		logger.Error("claim alert failed", zap.String("alert_id", a.ID), zap.Error(err))
		return out
	}
	if !claimed {
		out.lost++
		logger.Debug("alert already resolved elsewhere", zap.String("alert_id", a.ID))
		return out
	}
	out.triggered++
	logger.Info("alert triggered",
		zap.String("alert_id", a.ID),
		zap.String("owner", a.Owner),
		zap.String("ticker", a.Ticker),
		zap.String("condition", string(a.Condition)),
		zap.String("target_price", a.TargetPrice.String()),
		zap.String("price", price.String()))

	subs, err := store.ListSubscriptions(ctx, a.Owner)
	if err != nil {
		out.errors++
		logger.Error("list subscriptions failed", zap.String("alert_id", a.ID), zap.String("owner", a.Owner), zap.Error(err))
		return out
	}
	if len(subs) == 0 {
		logger.Debug("owner has no push subscriptions", zap.String("owner", a.Owner))
		return out
	}
	body, err := alertDomain.TriggeredPayload(a, price, clickURL).Marshal()
	if err != nil {
		out.errors++
		logger.Error("encode payload failed", zap.String("alert_id", a.ID), zap.Error(err))
		return out
	}
	out.delivery = deliverAll(ctx, store, pusher, logger, subs, body)
	return out
}

// Scanner 綁定掃描所需依賴，供排程器呼叫。
type Scanner struct {
	store  Store
	oracle PriceOracle
	pusher Pusher
	opts   CycleOptions
	logger *zap.Logger
}

// NewScanner 建立掃描器。
func NewScanner(store Store, oracle PriceOracle, pusher Pusher, opts CycleOptions) *Scanner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scanner{store: store, oracle: oracle, pusher: pusher, opts: opts, logger: opts.Logger}
}

// RunOnce 執行一輪並記錄結果。
func (s *Scanner) RunOnce(ctx context.Context) (CycleStats, error) {
	stats, err := RunOneCycle(ctx, s.store, s.oracle, s.pusher, s.opts)
	if err != nil {
		s.logger.Error("scan cycle aborted", zap.Error(err))
		return stats, err
	}
	if stats.Active == 0 {
		s.logger.Debug("scan cycle: no active alerts")
		return stats, nil
	}
	s.logger.Info("scan cycle completed",
		zap.Int("active", stats.Active),
		zap.Int("tickers", stats.Tickers),
		zap.Int("priced", stats.Priced),
		zap.Int("no_price", stats.NoPrice),
		zap.Int("triggered", stats.Triggered),
		zap.Int("lost_claims", stats.LostClaims),
		zap.Int("abandoned", stats.Abandoned),
		zap.Int("errors", stats.Errors),
		zap.Int("delivered", stats.Delivery.Delivered),
		zap.Int("gone", stats.Delivery.Gone),
		zap.Int("transient", stats.Delivery.Transient),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}
