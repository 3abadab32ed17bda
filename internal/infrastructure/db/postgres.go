package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"price-alert/internal/infrastructure/config"

	"github.com/codeGROOVE-dev/retry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

var (
	pingTimeout = 5 * time.Second
	retryDelay  = time.Second
)

// Connect 建立 PostgreSQL 連線池；若未設定 DSN 則回傳 nil。
// 啟動時資料庫可能尚未就緒，ping 失敗會依 ConnectAttempts 重試。
func Connect(ctx context.Context, cfg config.DBConfig, logger *zap.Logger) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)

	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = 1
	}
	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			return db.PingContext(pingCtx)
		},
		retry.Attempts(attempts),
		retry.Delay(retryDelay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database ping failed, retrying", zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
