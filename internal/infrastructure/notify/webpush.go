package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	alertDomain "price-alert/internal/domain/alert"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const (
	defaultSendTimeout = 10 * time.Second
	defaultMessageTTL  = 24 * time.Hour
)

// WebPusher 以 VAPID 金鑰加密並送出 Web Push 訊息（aes128gcm）。
type WebPusher struct {
	keys       *VAPIDKeys
	ttl        time.Duration
	urgency    webpush.Urgency
	timeout    time.Duration
	httpClient *http.Client
}

// NewWebPusher 建立推播 client；ttl 為推播服務保留訊息的時間。
func NewWebPusher(keys *VAPIDKeys, ttl, timeout time.Duration) *WebPusher {
	if ttl <= 0 {
		ttl = defaultMessageTTL
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &WebPusher{
		keys:    keys,
		ttl:     ttl,
		urgency: webpush.UrgencyHigh,
		timeout: timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PublicKey 回傳 VAPID 公鑰。
func (p *WebPusher) PublicKey() string {
	if p == nil || p.keys == nil {
		return ""
	}
	return p.keys.PublicKey()
}

// Deliver 送出一則訊息。2xx 為 Delivered，404/410 為 Gone，其餘皆為 TransientError。
func (p *WebPusher) Deliver(ctx context.Context, sub alertDomain.PushSubscription, payload []byte) (alertDomain.DeliveryResult, error) {
	if p == nil || p.keys == nil {
		return alertDomain.TransientError, fmt.Errorf("web pusher is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			Auth:   sub.Keys.Auth,
			P256dh: sub.Keys.P256dh,
		},
	}, &webpush.Options{
		HTTPClient:      p.httpClient,
		Subscriber:      p.keys.subscriber(),
		TTL:             int(p.ttl.Seconds()),
		Urgency:         p.urgency,
		VAPIDPublicKey:  p.keys.publicKey,
		VAPIDPrivateKey: p.keys.privateKey,
		VapidExpiration: p.keys.expiration(),
	})
	if err != nil {
		return alertDomain.TransientError, fmt.Errorf("send web push: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return alertDomain.Delivered, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return alertDomain.Gone, nil
	default:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return alertDomain.TransientError, fmt.Errorf("push send failed status=%d body=%s", resp.StatusCode, string(raw))
	}
}
