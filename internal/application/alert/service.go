package alert

import (
	"context"
	"strings"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAlertInput 為建立警示的輸入。
type CreateAlertInput struct {
	Owner       string
	Ticker      string
	TargetPrice decimal.Decimal
	Condition   string
}

// Service 提供 API 層使用的警示與訂閱操作。
type Service struct {
	store    Store
	pusher   Pusher
	clickURL string
	logger   *zap.Logger
}

// NewService 建立服務；pusher 可為 nil（未設定 VAPID 金鑰時）。
func NewService(store Store, pusher Pusher, clickURL string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pushDisabled(pusher) {
		pusher = nil
	}
	return &Service{store: store, pusher: pusher, clickURL: clickURL, logger: logger}
}

// CreateAlert 正規化 ticker 與條件後寫入，狀態為 active。
func (s *Service) CreateAlert(ctx context.Context, input CreateAlertInput) (alertDomain.Alert, error) {
	cond, err := alertDomain.ParseCondition(input.Condition)
	if err != nil {
		return alertDomain.Alert{}, err
	}
	ticker := alertDomain.NormalizeTicker(input.Ticker)
	if err := alertDomain.ValidateNew(input.Owner, ticker, input.TargetPrice, cond); err != nil {
		return alertDomain.Alert{}, err
	}
	a, err := s.store.CreateAlert(ctx, strings.TrimSpace(input.Owner), ticker, input.TargetPrice, cond)
	if err != nil {
		return alertDomain.Alert{}, err
	}
	s.logger.Info("alert created", zap.String("alert_id", a.ID), zap.String("owner", a.Owner), zap.String("ticker", a.Ticker))
	return a, nil
}

// ListAlerts 回傳擁有者的所有警示（新到舊）。
func (s *Service) ListAlerts(ctx context.Context, owner string) ([]alertDomain.Alert, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, &alertDomain.ValidationError{Field: "owner", Reason: "is required"}
	}
	return s.store.ListAlerts(ctx, owner)
}

// DeleteAlert 冪等刪除，只作用於擁有者自己的警示。
func (s *Service) DeleteAlert(ctx context.Context, owner, id string) error {
	if strings.TrimSpace(owner) == "" {
		return &alertDomain.ValidationError{Field: "owner", Reason: "is required"}
	}
	if strings.TrimSpace(id) == "" {
		return &alertDomain.ValidationError{Field: "id", Reason: "is required"}
	}
	return s.store.DeleteAlert(ctx, owner, id)
}

// Subscribe 以 endpoint 為鍵 upsert 推播訂閱。
func (s *Service) Subscribe(ctx context.Context, sub alertDomain.PushSubscription) error {
	sub.Owner = strings.TrimSpace(sub.Owner)
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if err := sub.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertSubscription(ctx, sub.Owner, sub.Endpoint, sub.Keys); err != nil {
		return err
	}
	s.logger.Info("push subscription saved", zap.String("owner", sub.Owner), zap.String("endpoint", sub.Endpoint))
	return nil
}

// Unsubscribe 冪等刪除。
func (s *Service) Unsubscribe(ctx context.Context, endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return &alertDomain.ValidationError{Field: "endpoint", Reason: "is required"}
	}
	return s.store.DeleteSubscriptionByEndpoint(ctx, endpoint)
}

// PushEnabled 回報是否已設定推播。
func (s *Service) PushEnabled() bool {
	return s.pusher != nil
}

// SendTest 對擁有者所有裝置送出測試通知，失效端點同樣會被清除。
func (s *Service) SendTest(ctx context.Context, owner string) (DeliveryReport, error) {
	if strings.TrimSpace(owner) == "" {
		return DeliveryReport{}, &alertDomain.ValidationError{Field: "owner", Reason: "is required"}
	}
	if s.pusher == nil {
		return DeliveryReport{}, &alertDomain.ValidationError{Reason: "push delivery is not configured"}
	}
	subs, err := s.store.ListSubscriptions(ctx, owner)
	if err != nil {
		return DeliveryReport{}, err
	}
	body, err := alertDomain.EnabledPayload(s.clickURL).Marshal()
	if err != nil {
		return DeliveryReport{}, err
	}
	return deliverAll(ctx, s.store, s.pusher, s.logger, subs, body), nil
}
