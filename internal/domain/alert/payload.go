package alert

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// PayloadData 供前端 service worker 點擊通知時導頁。
type PayloadData struct {
	URL         string `json:"url"`
	Ticker      string `json:"ticker,omitempty"`
	AlertID     string `json:"alert_id,omitempty"`
	Price       string `json:"price,omitempty"`
	TargetPrice string `json:"target_price,omitempty"`
	Condition   string `json:"condition,omitempty"`
}

// Payload 為推播訊息本體，前端以 title/body 顯示。
type Payload struct {
	Title  string      `json:"title"`
	Body   string      `json:"body"`
	Ticker string      `json:"ticker,omitempty"`
	URL    string      `json:"url,omitempty"`
	Data   PayloadData `json:"data"`
}

// Marshal 轉為 JSON bytes。
func (p Payload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// TriggeredPayload 建立警示觸發通知。clickURL 可含 {ticker} 佔位字。
func TriggeredPayload(a Alert, price decimal.Decimal, clickURL string) Payload {
	verb := "rose to"
	if a.Condition == ConditionBelow {
		verb = "fell to"
	}
	link := ClickURL(clickURL, a.Ticker)
	return Payload{
		Title:  fmt.Sprintf("Price alert: %s", a.Ticker),
		Body:   fmt.Sprintf("%s %s %s (target %s %s)", a.Ticker, verb, price.String(), a.Condition, a.TargetPrice.String()),
		Ticker: a.Ticker,
		URL:    link,
		Data: PayloadData{
			URL:         link,
			Ticker:      a.Ticker,
			AlertID:     a.ID,
			Price:       price.String(),
			TargetPrice: a.TargetPrice.String(),
			Condition:   string(a.Condition),
		},
	}
}

// EnabledPayload 供使用者確認裝置可收到推播。
func EnabledPayload(clickURL string) Payload {
	link := ClickURL(clickURL, "")
	return Payload{
		Title: "Notifications enabled",
		Body:  "You will be notified here when one of your price alerts triggers.",
		URL:   link,
		Data:  PayloadData{URL: link},
	}
}

// ClickURL 套用 ticker 到 URL 樣板。
func ClickURL(template, ticker string) string {
	if template == "" {
		template = "/"
	}
	if ticker == "" {
		return strings.ReplaceAll(template, "{ticker}", "")
	}
	return strings.ReplaceAll(template, "{ticker}", url.QueryEscape(ticker))
}
