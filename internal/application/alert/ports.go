package alert

import (
	"context"
	"reflect"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/shopspring/decimal"
)

// Store 為警示與推播訂閱的持久化介面，也是唯一的共享可變資源。
type Store interface {
	CreateAlert(ctx context.Context, owner, ticker string, targetPrice decimal.Decimal, cond alertDomain.Condition) (alertDomain.Alert, error)
	ListAlerts(ctx context.Context, owner string) ([]alertDomain.Alert, error)
	ListActiveAlerts(ctx context.Context) ([]alertDomain.Alert, error)
	DeleteAlert(ctx context.Context, owner, id string) error
	// TryMarkTriggered 以 CAS 將 active 轉為 triggered；只有成功翻轉的呼叫回傳 true。
	TryMarkTriggered(ctx context.Context, id string) (bool, error)

	UpsertSubscription(ctx context.Context, owner, endpoint string, keys alertDomain.SubscriptionKeys) error
	DeleteSubscriptionByEndpoint(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context, owner string) ([]alertDomain.PushSubscription, error)
}

// PriceOracle 依 ticker 集合回傳目前價格；取不到的 ticker 不會出現在結果中。
type PriceOracle interface {
	GetPrices(ctx context.Context, tickers map[string]struct{}) map[string]decimal.Decimal
}

// Pusher 將一則訊息送到單一訂閱端點。
type Pusher interface {
	Deliver(ctx context.Context, sub alertDomain.PushSubscription, payload []byte) (alertDomain.DeliveryResult, error)
}

// pushDisabled 判斷 pusher 是否缺席；介面內包著 nil 指標
// （例如未設定 VAPID 金鑰時的 *notify.WebPusher）也視為缺席。
func pushDisabled(p Pusher) bool {
	if p == nil {
		return true
	}
	switch v := reflect.ValueOf(p); v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Chan, reflect.Slice:
		return v.IsNil()
	}
	return false
}
