package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store 為記憶體版警示儲存，併發安全；未設定 DB_DSN 時與測試使用。
type Store struct {
	mu            sync.RWMutex
	alerts        map[string]alertRecord
	subscriptions map[string]alertDomain.PushSubscription // endpoint -> subscription
	now           func() time.Time
	seq           int64
}

type alertRecord struct {
	alert alertDomain.Alert
	seq   int64
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		alerts:        make(map[string]alertRecord),
		subscriptions: make(map[string]alertDomain.PushSubscription),
		now:           time.Now,
	}
}

// CreateAlert 建立 active 警示。
func (s *Store) CreateAlert(ctx context.Context, owner, ticker string, targetPrice decimal.Decimal, cond alertDomain.Condition) (alertDomain.Alert, error) {
	if err := alertDomain.ValidateNew(owner, ticker, targetPrice, cond); err != nil {
		return alertDomain.Alert{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a := alertDomain.Alert{
		ID:          uuid.NewString(),
		Owner:       owner,
		Ticker:      ticker,
		TargetPrice: targetPrice,
		Condition:   cond,
		Status:      alertDomain.StatusActive,
		CreatedAt:   s.now().UTC(),
	}
	s.seq++
	s.alerts[a.ID] = alertRecord{alert: a, seq: s.seq}
	return a, nil
}

// ListAlerts 回傳擁有者的所有警示，新到舊。
func (s *Store) ListAlerts(ctx context.Context, owner string) ([]alertDomain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []alertRecord
	for _, r := range s.alerts {
		if r.alert.Owner == owner {
			recs = append(recs, r)
		}
	}
	return newestFirst(recs), nil
}

// ListActiveAlerts 跨擁有者列出 active 警示。
func (s *Store) ListActiveAlerts(ctx context.Context) ([]alertDomain.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []alertRecord
	for _, r := range s.alerts {
		if r.alert.Status == alertDomain.StatusActive {
			recs = append(recs, r)
		}
	}
	return newestFirst(recs), nil
}

// GetAlert 主要用於測試檢查狀態。
func (s *Store) GetAlert(id string) (alertDomain.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.alerts[id]
	return r.alert, ok
}

// DeleteAlert 不存在或不屬於 owner 時視為成功。
func (s *Store) DeleteAlert(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.alerts[id]; ok && r.alert.Owner == owner {
		delete(s.alerts, id)
	}
	return nil
}

// TryMarkTriggered 在寫鎖內做 compare-and-swap；ctx 已結束時不翻轉。
func (s *Store) TryMarkTriggered(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.alerts[id]
	if !ok || r.alert.Status != alertDomain.StatusActive {
		return false, nil
	}
	now := s.now().UTC()
	r.alert.Status = alertDomain.StatusTriggered
	r.alert.TriggeredAt = &now
	s.alerts[id] = r
	return true, nil
}

// SetStatus 模擬外部動作（例如使用者停用）。
func (s *Store) SetStatus(id string, status alertDomain.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.alerts[id]
	if !ok {
		return false
	}
	r.alert.Status = status
	s.alerts[id] = r
	return true
}

// UpsertSubscription 以 endpoint 為唯一鍵。
func (s *Store) UpsertSubscription(ctx context.Context, owner, endpoint string, keys alertDomain.SubscriptionKeys) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	sub, ok := s.subscriptions[endpoint]
	if !ok {
		sub.CreatedAt = now
	}
	sub.Owner = owner
	sub.Endpoint = endpoint
	sub.Keys = keys
	sub.UpdatedAt = now
	s.subscriptions[endpoint] = sub
	return nil
}

// DeleteSubscriptionByEndpoint 冪等。
func (s *Store) DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, endpoint)
	return nil
}

// ListSubscriptions 回傳擁有者的所有裝置。
func (s *Store) ListSubscriptions(ctx context.Context, owner string) ([]alertDomain.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []alertDomain.PushSubscription
	for _, sub := range s.subscriptions {
		if sub.Owner == owner {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out, nil
}

func newestFirst(recs []alertRecord) []alertDomain.Alert {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].alert.CreatedAt.Equal(recs[j].alert.CreatedAt) {
			return recs[i].alert.CreatedAt.After(recs[j].alert.CreatedAt)
		}
		return recs[i].seq > recs[j].seq
	})
	out := make([]alertDomain.Alert, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.alert)
	}
	return out
}
