package pricing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type fakeSource struct {
	mu       sync.Mutex
	prices   map[string]decimal.Decimal
	fail     map[string]bool
	slow     map[string]bool
	calls    map[string]int
	inflight atomic.Int32
	peak     atomic.Int32
	hold     time.Duration
}

func (f *fakeSource) Quote(ctx context.Context, ticker string) (decimal.Decimal, error) {
	cur := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[ticker]++
	f.mu.Unlock()

	if f.hold > 0 {
		time.Sleep(f.hold)
	}
	if f.slow[ticker] {
		<-ctx.Done()
		return decimal.Zero, ctx.Err()
	}
	if f.fail[ticker] {
		return decimal.Zero, errors.New("upstream 500")
	}
	p, ok := f.prices[ticker]
	if !ok {
		return decimal.Zero, errors.New("unknown ticker")
	}
	return p, nil
}

func set(tickers ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(tickers))
	for _, t := range tickers {
		out[t] = struct{}{}
	}
	return out
}

func TestOracle_PartialFailure(t *testing.T) {
	src := &fakeSource{
		prices: map[string]decimal.Decimal{"A": decimal.NewFromInt(10), "C": decimal.NewFromInt(30)},
		fail:   map[string]bool{"B": true},
	}
	o := NewOracle(src)

	got := o.GetPrices(context.Background(), set("A", "B", "C"))
	if len(got) != 2 {
		t.Fatalf("expected 2 prices, got %d: %v", len(got), got)
	}
	if _, ok := got["B"]; ok {
		t.Fatal("failed ticker must be absent")
	}
	if !got["A"].Equal(decimal.NewFromInt(10)) || !got["C"].Equal(decimal.NewFromInt(30)) {
		t.Fatalf("unexpected prices: %v", got)
	}
	for _, tk := range []string{"A", "B", "C"} {
		if src.calls[tk] != 1 {
			t.Fatalf("expected one fetch for %s, got %d", tk, src.calls[tk])
		}
	}
}

func TestOracle_TimeoutIsAbsent(t *testing.T) {
	src := &fakeSource{
		prices: map[string]decimal.Decimal{"FAST": decimal.NewFromInt(1)},
		slow:   map[string]bool{"SLOW": true},
	}
	o := NewOracle(src, WithFetchTimeout(20*time.Millisecond))

	start := time.Now()
	got := o.GetPrices(context.Background(), set("FAST", "SLOW"))
	if time.Since(start) > 2*time.Second {
		t.Fatal("slow upstream stalled the batch")
	}
	if _, ok := got["SLOW"]; ok {
		t.Fatal("timed out ticker must be absent")
	}
	if _, ok := got["FAST"]; !ok {
		t.Fatal("fast ticker should resolve")
	}
}

func TestOracle_NonPositivePriceIsAbsent(t *testing.T) {
	src := &fakeSource{prices: map[string]decimal.Decimal{"ZERO": decimal.Zero}}
	got := NewOracle(src).GetPrices(context.Background(), set("ZERO"))
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestOracle_BoundedConcurrency(t *testing.T) {
	prices := map[string]decimal.Decimal{}
	tickers := []string{}
	for _, tk := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		prices[tk] = decimal.NewFromInt(1)
		tickers = append(tickers, tk)
	}
	src := &fakeSource{prices: prices, hold: 10 * time.Millisecond}
	o := NewOracle(src, WithMaxConcurrency(2))

	got := o.GetPrices(context.Background(), set(tickers...))
	if len(got) != len(tickers) {
		t.Fatalf("expected %d prices, got %d", len(tickers), len(got))
	}
	if peak := src.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent fetches, saw %d", peak)
	}
}

func TestOracle_EmptySet(t *testing.T) {
	got := NewOracle(&fakeSource{}).GetPrices(context.Background(), nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil map, got %v", got)
	}
}
