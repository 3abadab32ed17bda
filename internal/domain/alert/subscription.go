package alert

import (
	"encoding/base64"
	"net"
	"net/url"
	"strings"
	"time"
)

const (
	p256dhKeyLen  = 65
	authSecretLen = 16
)

// SubscriptionKeys 為瀏覽器提供的金鑰材料（base64url）。
type SubscriptionKeys struct {
	P256dh string
	Auth   string
}

// PushSubscription 為一個裝置/瀏覽器的推播端點，endpoint 全域唯一。
type PushSubscription struct {
	Owner     string
	Endpoint  string
	Keys      SubscriptionKeys
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate 基本欄位檢查。
func (s PushSubscription) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return &ValidationError{Field: "owner", Reason: "is required"}
	}
	if err := ValidateEndpoint(s.Endpoint); err != nil {
		return err
	}
	p256dh, err := DecodeKey(s.Keys.P256dh)
	if err != nil || len(p256dh) != p256dhKeyLen {
		return &ValidationError{Field: "keys.p256dh", Reason: "must be a base64url uncompressed P-256 point"}
	}
	auth, err := DecodeKey(s.Keys.Auth)
	if err != nil || len(auth) != authSecretLen {
		return &ValidationError{Field: "keys.auth", Reason: "must be a base64url 16-byte secret"}
	}
	return nil
}

// ValidateEndpoint 僅接受 https；本機位址允許 http 方便開發。
func ValidateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return &ValidationError{Field: "endpoint", Reason: "is required"}
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return &ValidationError{Field: "endpoint", Reason: "must be an absolute URL"}
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
	}
	return &ValidationError{Field: "endpoint", Reason: "must use https"}
}

// DecodeKey 接受有無 padding 的 base64url 以及標準 base64。
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "=")); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
