package httpapi

import (
	"time"

	alertDomain "price-alert/internal/domain/alert"

	"github.com/shopspring/decimal"
)

type createAlertRequest struct {
	Ticker      string          `json:"ticker"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Condition   string          `json:"condition"`
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

type alertResponse struct {
	ID          string          `json:"id"`
	Owner       string          `json:"owner"`
	Ticker      string          `json:"ticker"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Condition   string          `json:"condition"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	TriggeredAt *time.Time      `json:"triggered_at,omitempty"`
}

func toAlertResponse(a alertDomain.Alert) alertResponse {
	return alertResponse{
		ID:          a.ID,
		Owner:       a.Owner,
		Ticker:      a.Ticker,
		TargetPrice: a.TargetPrice,
		Condition:   string(a.Condition),
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		TriggeredAt: a.TriggeredAt,
	}
}
