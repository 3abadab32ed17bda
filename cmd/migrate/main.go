package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"price-alert/internal/infrastructure/config"
	"price-alert/internal/infrastructure/logging"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	migrationsPath := flag.String("dir", "db/migrations", "path to migrations directory")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall migration timeout")
	flag.Parse()

	cfg, err := config.LoadFromFile(*cfgPath)
	if err != nil {
		log.Fatalf("讀取組態失敗: %v", err)
	}
	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化 logger 失敗: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DB.DSN == "" {
		logger.Fatal("config.db.dsn 未設定，無法執行 migration")
	}

	files, err := migrationFiles(*migrationsPath)
	if err != nil {
		logger.Fatal("讀取 migrations 失敗", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Fatal("連線資料庫失敗", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	for _, f := range files {
		if err := applyFile(ctx, db, f); err != nil {
			logger.Fatal("migration failed", zap.String("file", filepath.Base(f)), zap.Error(err))
		}
		logger.Info("migration applied", zap.String("file", filepath.Base(f)))
	}
	fmt.Println("Migration 完成")
}

// migrationFiles 依檔名排序回傳目錄下所有 .sql。
func migrationFiles(dir string) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("解析 migrations 路徑失敗: %w", err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, fmt.Errorf("migrations 目錄不存在: %w", err)
	}
	files, err := filepath.Glob(filepath.Join(absDir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("找不到任何 .sql migration 檔案: %s", absDir)
	}
	sort.Strings(files)
	return files, nil
}

// applyFile 在單一交易內執行整個檔案。
func applyFile(ctx context.Context, db *sql.DB, path string) error {
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
