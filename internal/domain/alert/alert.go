package alert

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Condition 列舉觸發方向。
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// Status 列舉警示狀態；只有 active 會被掃描。
type Status string

const (
	StatusActive    Status = "active"
	StatusTriggered Status = "triggered"
	StatusDisabled  Status = "disabled"
)

const maxTickerLen = 20

// 價格欄位為 NUMERIC(30,10)：整數最多 20 位、小數最多 10 位。
const maxPriceScale = 10

var maxTargetPrice = decimal.New(1, 30-maxPriceScale)

// Alert 代表「當 ticker 價格穿越 target 時通知我」的規則。
type Alert struct {
	ID          string
	Owner       string
	Ticker      string
	TargetPrice decimal.Decimal
	Condition   Condition
	Status      Status
	CreatedAt   time.Time
	TriggeredAt *time.Time
}

// ParseCondition 接受大小寫不敏感的 above/below。
func ParseCondition(raw string) (Condition, error) {
	switch c := Condition(strings.ToLower(strings.TrimSpace(raw))); c {
	case ConditionAbove, ConditionBelow:
		return c, nil
	default:
		return "", &ValidationError{Field: "condition", Reason: "must be one of above, below"}
	}
}

// NormalizeTicker 轉大寫並去除空白。
func NormalizeTicker(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidateTicker 檢查已正規化的 ticker。
func ValidateTicker(ticker string) error {
	if ticker == "" {
		return &ValidationError{Field: "ticker", Reason: "is required"}
	}
	if len(ticker) > maxTickerLen {
		return &ValidationError{Field: "ticker", Reason: "is too long"}
	}
	for _, r := range ticker {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune(".-^=:", r):
		default:
			return &ValidationError{Field: "ticker", Reason: "contains invalid characters"}
		}
	}
	return nil
}

// ValidateNew 驗證建立警示所需的欄位。
func ValidateNew(owner, ticker string, target decimal.Decimal, cond Condition) error {
	if strings.TrimSpace(owner) == "" {
		return &ValidationError{Field: "owner", Reason: "is required"}
	}
	if err := ValidateTicker(ticker); err != nil {
		return err
	}
	if !target.IsPositive() {
		return &ValidationError{Field: "target_price", Reason: "must be greater than 0"}
	}
	if target.Cmp(maxTargetPrice) >= 0 {
		return &ValidationError{Field: "target_price", Reason: "is too large"}
	}
	if !target.Equal(target.Truncate(maxPriceScale)) {
		return &ValidationError{Field: "target_price", Reason: "must have at most 10 decimal places"}
	}
	switch cond {
	case ConditionAbove, ConditionBelow:
	default:
		return &ValidationError{Field: "condition", Reason: "must be one of above, below"}
	}
	return nil
}

// Satisfied 判斷價格是否滿足條件，兩個方向都包含邊界。
func (a Alert) Satisfied(price decimal.Decimal) bool {
	switch a.Condition {
	case ConditionAbove:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case ConditionBelow:
		return price.LessThanOrEqual(a.TargetPrice)
	default:
		return false
	}
}

// Evaluable 只有 active 的警示會進入評估。
func (a Alert) Evaluable() bool {
	return a.Status == StatusActive
}
