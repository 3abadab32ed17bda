package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultScanInterval = time.Minute
	defaultCycleTimeout = 45 * time.Second
)

// CycleRunner 為排程器每次 tick 呼叫的單輪工作。
type CycleRunner interface {
	RunOnce(ctx context.Context) (CycleStats, error)
}

// BackgroundWorker 定期執行掃描；同一行程內不會重疊執行。
type BackgroundWorker struct {
	runner       CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration
	logger       *zap.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewBackgroundWorker 建立背景工作者。
func NewBackgroundWorker(runner CycleRunner, interval, cycleTimeout time.Duration, logger *zap.Logger) *BackgroundWorker {
	if interval <= 0 {
		interval = defaultScanInterval
	}
	if cycleTimeout <= 0 {
		cycleTimeout = defaultCycleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackgroundWorker{
		runner:       runner,
		interval:     interval,
		cycleTimeout: cycleTimeout,
		logger:       logger,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start 啟動迴圈；ctx 取消或呼叫 Stop 時結束。
func (w *BackgroundWorker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	w.logger.Info("starting alert scanner", zap.Duration("interval", w.interval), zap.Duration("cycle_timeout", w.cycleTimeout))
	ticker := time.NewTicker(w.interval)
	go func() {
		defer close(w.done)
		defer ticker.Stop()

		// 啟動後立即執行一次
		w.runOnce(ctx)

		for {
			select {
			case <-ticker.C:
				w.runOnce(ctx)
			case <-w.stopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止迴圈並等待進行中的一輪結束。
func (w *BackgroundWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	if w.started.Load() {
		<-w.done
	}
}

func (w *BackgroundWorker) runOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, w.cycleTimeout)
	defer cancel()
	if _, err := w.runner.RunOnce(ctx); err != nil {
		w.logger.Warn("scan cycle failed, will retry next tick", zap.Error(err))
	}
}
