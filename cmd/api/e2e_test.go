package main

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"price-alert/internal/infrastructure/config"
	"price-alert/internal/infrastructure/notify"

	"go.uber.org/zap"
)

const errUnauthorized = "AUTH_UNAUTHORIZED"

type pushRecorder struct {
	mu    sync.Mutex
	hits  map[string]int
	gone  map[string]bool
	auths []string
}

func (p *pushRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hits[r.URL.Path]++
	p.auths = append(p.auths, r.Header.Get("Authorization"))
	if p.gone[r.URL.Path] {
		w.WriteHeader(http.StatusGone)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (p *pushRecorder) count(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func newQuoteServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("symbol") {
		case "AAPL":
			_, _ = w.Write([]byte(`{"c":151,"h":152,"l":149}`))
		case "TSLA":
			_, _ = w.Write([]byte(`{"c":250}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func testConfig(t *testing.T, quoteURL string) config.Config {
	t.Helper()
	priv, pub, err := notify.GenerateVAPIDKeys()
	if err != nil {
		t.Fatal(err)
	}
	return config.Config{
		Quote: config.QuoteConfig{
			Provider:       "finnhub",
			BaseURL:        quoteURL,
			Timeout:        2 * time.Second,
			MaxConcurrency: 2,
		},
		Push: config.PushConfig{
			VAPIDPrivateKey: priv,
			VAPIDPublicKey:  pub,
			Subject:         "mailto:ops@example.com",
			ClickURL:        "/alerts?ticker={ticker}",
		},
	}
}

func subscriptionKeys(t *testing.T) map[string]string {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	auth := make([]byte, 16)
	_, _ = rand.Read(auth)
	return map[string]string{
		"p256dh": base64.RawURLEncoding.EncodeToString(priv.PublicKey().Bytes()),
		"auth":   base64.RawURLEncoding.EncodeToString(auth),
	}
}

// TestAlertE2EFlow 覆蓋建立警示、訂閱、掃描觸發、推播與失效訂閱清除。
func TestAlertE2EFlow(t *testing.T) {
	quoteSrv := newQuoteServer()
	defer quoteSrv.Close()
	push := &pushRecorder{hits: map[string]int{}, gone: map[string]bool{"/dead": true}}
	pushSrv := httptest.NewServer(push)
	defer pushSrv.Close()

	a, err := newApp(testConfig(t, quoteSrv.URL), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if a.scanner == nil || a.worker == nil {
		t.Fatal("scanner should be enabled when VAPID keys are configured")
	}
	ts := httptest.NewServer(a.server.Handler())
	defer ts.Close()

	keyResp := doJSON(t, ts, http.MethodGet, "/api/push/vapid-public-key", "", nil, http.StatusOK)
	if keyResp["public_key"] == "" {
		t.Fatal("expected vapid public key")
	}

	created := doJSON(t, ts, http.MethodPost, "/api/alerts", "u1", map[string]interface{}{
		"ticker": "aapl", "target_price": 150, "condition": "above",
	}, http.StatusCreated)
	alertID := created["alert"].(map[string]interface{})["id"].(string)

	doJSON(t, ts, http.MethodPost, "/api/alerts", "u1", map[string]interface{}{
		"ticker": "GOOG", "target_price": 100, "condition": "above",
	}, http.StatusCreated)
	doJSON(t, ts, http.MethodPost, "/api/alerts", "u2", map[string]interface{}{
		"ticker": "TSLA", "target_price": 200, "condition": "below",
	}, http.StatusCreated)

	for _, path := range []string{"/live", "/dead"} {
		doJSON(t, ts, http.MethodPost, "/api/push/subscribe", "u1", map[string]interface{}{
			"endpoint": pushSrv.URL + path,
			"keys":     subscriptionKeys(t),
		}, http.StatusOK)
	}

	stats, err := a.scanner.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if stats.Active != 3 || stats.Triggered != 1 || stats.NoPrice != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if push.count("/live") != 1 || push.count("/dead") != 1 {
		t.Fatalf("expected one delivery per endpoint, got %v", push.hits)
	}
	for _, h := range push.auths {
		if !strings.HasPrefix(h, "vapid t=") {
			t.Fatalf("unexpected authorization header %q", h)
		}
	}

	list := doJSON(t, ts, http.MethodGet, "/api/alerts", "u1", nil, http.StatusOK)
	for _, raw := range list["alerts"].([]interface{}) {
		item := raw.(map[string]interface{})
		want := "active"
		if item["id"] == alertID {
			want = "triggered"
		}
		if item["status"] != want {
			t.Fatalf("alert %v expected %s, got %v", item["ticker"], want, item["status"])
		}
	}

	// 第二輪不應重送，失效端點也已被移除。
	if _, err := a.scanner.RunOnce(context.Background()); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if push.count("/live") != 1 || push.count("/dead") != 1 {
		t.Fatalf("second cycle must not deliver again, got %v", push.hits)
	}

	report := doJSON(t, ts, http.MethodPost, "/api/push/test", "u1", nil, http.StatusOK)
	if report["attempted"] != float64(1) || report["delivered"] != float64(1) {
		t.Fatalf("gone subscription should have been removed, got %v", report)
	}

	health := doJSON(t, ts, http.MethodGet, "/api/health", "", nil, http.StatusOK)
	if health["db"] != "using_memory" || health["push_enabled"] != true {
		t.Fatalf("unexpected health %v", health)
	}
}

func TestOwnerRequired(t *testing.T) {
	quoteSrv := newQuoteServer()
	defer quoteSrv.Close()
	a, err := newApp(testConfig(t, quoteSrv.URL), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	ts := httptest.NewServer(a.server.Handler())
	defer ts.Close()

	resp := doJSON(t, ts, http.MethodGet, "/api/alerts", "", nil, http.StatusUnauthorized)
	if resp["error_code"] != errUnauthorized {
		t.Fatalf("expected error_code=%s got=%v", errUnauthorized, resp["error_code"])
	}
}

func TestNewApp_PushDisabled(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Push = config.PushConfig{}
	a, err := newApp(cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	if a.scanner != nil || a.worker != nil {
		t.Fatal("scanner must stay off without VAPID keys")
	}
}

func TestNewApp_ConfigErrors(t *testing.T) {
	t.Run("UnknownProvider", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Quote.Provider = "yahoo"
		if _, err := newApp(cfg, nil, zap.NewNop()); err == nil {
			t.Fatal("expected error for unknown provider")
		}
	})

	t.Run("BadVAPIDKey", func(t *testing.T) {
		cfg := testConfig(t, "")
		cfg.Push.VAPIDPrivateKey = "not-a-key"
		if _, err := newApp(cfg, nil, zap.NewNop()); err == nil {
			t.Fatal("expected error for bad vapid key")
		}
	})
}

// --- helpers ---

func doJSON(t *testing.T, ts *httptest.Server, method, path, owner string, payload interface{}, expect int) map[string]interface{} {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set("X-User-ID", owner)
	}
	client := &http.Client{Timeout: 5 * time.Second}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	var out map[string]interface{}
	_ = json.NewDecoder(res.Body).Decode(&out)
	if res.StatusCode != expect {
		t.Fatalf("%s %s expected %d got %d (%v)", method, path, expect, res.StatusCode, out)
	}
	return out
}
