package main

import (
	"database/sql"
	"fmt"

	alertApp "price-alert/internal/application/alert"
	"price-alert/internal/application/pricing"
	"price-alert/internal/infra/memory"
	"price-alert/internal/infrastructure/config"
	"price-alert/internal/infrastructure/external/quote"
	"price-alert/internal/infrastructure/notify"
	"price-alert/internal/infrastructure/persistence/postgres"
	httpapi "price-alert/internal/interface/http"

	"go.uber.org/zap"
)

// app 組裝 API 與背景掃描器。未設定 VAPID 金鑰時 scanner 與 worker 為 nil。
type app struct {
	server  *httpapi.Server
	scanner *alertApp.Scanner
	worker  *alertApp.BackgroundWorker
}

func newApp(cfg config.Config, pool *sql.DB, logger *zap.Logger) (*app, error) {
	var store alertApp.Store
	if pool != nil {
		store = postgres.NewRepo(pool)
	} else {
		store = memory.NewStore()
	}

	quoteClient, err := quote.NewClient(quote.Provider(cfg.Quote.Provider), cfg.Quote.BaseURL, cfg.Quote.APIKey, cfg.Quote.Timeout)
	if err != nil {
		return nil, fmt.Errorf("init quote client: %w", err)
	}

	var (
		pusher    *notify.WebPusher
		publicKey string
	)
	if cfg.Push.Enabled() {
		keys, err := notify.NewVAPIDKeys(cfg.Push.VAPIDPrivateKey, cfg.Push.VAPIDPublicKey, cfg.Push.Subject, cfg.Push.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("init vapid keys: %w", err)
		}
		pusher = notify.NewWebPusher(keys, cfg.Push.TTL, cfg.Push.Timeout)
		publicKey = keys.PublicKey()
	}

	svc := alertApp.NewService(store, pusher, cfg.Push.ClickURL, logger)
	a := &app{server: httpapi.NewServer(pool, svc, publicKey, logger)}
	if pusher == nil {
		logger.Warn("VAPID_PRIVATE_KEY not set; push delivery and alert scanning are disabled")
		return a, nil
	}

	oracle := pricing.NewOracle(quoteClient,
		pricing.WithFetchTimeout(cfg.Quote.Timeout),
		pricing.WithMaxConcurrency(cfg.Quote.MaxConcurrency),
		pricing.WithLogger(logger),
	)
	a.scanner = alertApp.NewScanner(store, oracle, pusher, alertApp.CycleOptions{
		Concurrency: cfg.Scanner.DeliveryConcurrency,
		ClickURL:    cfg.Push.ClickURL,
		Logger:      logger,
	})
	a.worker = alertApp.NewBackgroundWorker(a.scanner, cfg.Scanner.Interval, cfg.Scanner.CycleTimeout, logger)
	return a, nil
}
