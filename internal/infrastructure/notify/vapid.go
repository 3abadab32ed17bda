package notify

import (
	"crypto/ecdh"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	alertDomain "price-alert/internal/domain/alert"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const (
	defaultTokenTTL = 12 * time.Hour
	// 推播服務拒絕超過 24 小時的 exp。
	maxTokenTTL = 24 * time.Hour
)

// VAPIDKeys 為行程層級的 VAPID 金鑰對與 subject。
type VAPIDKeys struct {
	privateKey string // base64url，32 bytes
	publicKey  string // base64url，未壓縮點
	subject    string
	tokenTTL   time.Duration
	now        func() time.Time
}

// NewVAPIDKeys 驗證 base64url 私鑰並推導公鑰。publicKey 可留空，
// 有提供時必須與私鑰相符。
func NewVAPIDKeys(privateKey, publicKey, subject string, tokenTTL time.Duration) (*VAPIDKeys, error) {
	if strings.TrimSpace(privateKey) == "" {
		return nil, errors.New("vapid private key is required")
	}
	if err := validateSubject(subject); err != nil {
		return nil, err
	}
	raw, err := alertDomain.DecodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decode vapid private key: %w", err)
	}
	if len(raw) < 32 {
		raw = append(make([]byte, 32-len(raw)), raw...)
	}
	priv, err := ecdh.P256().NewPrivateKey(raw)
	if err != nil {
		return nil, fmt.Errorf("parse vapid private key: %w", err)
	}
	encodedPub := base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes())
	if publicKey != "" {
		given, err := alertDomain.DecodeKey(publicKey)
		if err != nil || base64.RawURLEncoding.EncodeToString(given) != encodedPub {
			return nil, errors.New("vapid public key does not match private key")
		}
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultTokenTTL
	}
	if tokenTTL > maxTokenTTL {
		tokenTTL = maxTokenTTL
	}
	return &VAPIDKeys{
		privateKey: base64.RawURLEncoding.EncodeToString(priv.Bytes()),
		publicKey:  encodedPub,
		subject:    subject,
		tokenTTL:   tokenTTL,
		now:        time.Now,
	}, nil
}

// PublicKey 回傳 base64url 公鑰，前端以此作為 applicationServerKey。
func (k *VAPIDKeys) PublicKey() string {
	return k.publicKey
}

// subscriber 回傳 webpush 所需的聯絡資訊；非 https 的值會由 webpush 補上 mailto:。
func (k *VAPIDKeys) subscriber() string {
	return strings.TrimPrefix(k.subject, "mailto:")
}

func (k *VAPIDKeys) expiration() time.Time {
	return k.now().Add(k.tokenTTL)
}

// GenerateVAPIDKeys 產生新的 base64url 金鑰對。
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}

func validateSubject(subject string) error {
	if strings.HasPrefix(subject, "mailto:") || strings.HasPrefix(subject, "https://") {
		return nil
	}
	return fmt.Errorf("vapid subject must be a mailto: or https: URI, got %q", subject)
}
