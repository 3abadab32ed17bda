package httpapi

import (
	"context"
	"net/http"
	"testing"

	alertDomain "price-alert/internal/domain/alert"
	"price-alert/internal/infra/memory"
)

func TestVAPIDPublicKeyHandler(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		server := newTestServer(t, memory.NewStore(), nil, "")
		w, resp := doJSON(t, server, http.MethodGet, "/api/push/vapid-public-key", "", nil)
		if w.Code != http.StatusServiceUnavailable || resp["error_code"] != errCodeUnavailable {
			t.Errorf("expected 503, got %d %v", w.Code, resp)
		}
	})

	t.Run("Enabled", func(t *testing.T) {
		server := newTestServer(t, memory.NewStore(), &stubPusher{}, "BPubKey")
		w, resp := doJSON(t, server, http.MethodGet, "/api/push/vapid-public-key", "", nil)
		if w.Code != http.StatusOK || resp["public_key"] != "BPubKey" {
			t.Errorf("expected public key, got %d %v", w.Code, resp)
		}
	})
}

func TestSubscriptionHandlers(t *testing.T) {
	store := memory.NewStore()
	server := newTestServer(t, store, &stubPusher{}, "BPubKey")
	ctx := context.Background()
	endpoint := "https://fcm.googleapis.com/fcm/send/device-1"

	t.Run("Subscribe", func(t *testing.T) {
		w, _ := doJSON(t, server, http.MethodPost, "/api/push/subscribe", "u1", map[string]interface{}{
			"endpoint": endpoint,
			"keys":     testKeys(t),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d. body: %s", w.Code, w.Body.String())
		}
		subs, _ := store.ListSubscriptions(ctx, "u1")
		if len(subs) != 1 || subs[0].Endpoint != endpoint {
			t.Fatalf("expected stored subscription, got %+v", subs)
		}
	})

	t.Run("ResubscribeMovesOwner", func(t *testing.T) {
		w, _ := doJSON(t, server, http.MethodPost, "/api/push/subscribe", "u2", map[string]interface{}{
			"endpoint": endpoint,
			"keys":     testKeys(t),
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		u1, _ := store.ListSubscriptions(ctx, "u1")
		u2, _ := store.ListSubscriptions(ctx, "u2")
		if len(u1) != 0 || len(u2) != 1 {
			t.Fatalf("expected endpoint to move to u2, got u1=%d u2=%d", len(u1), len(u2))
		}
	})

	t.Run("SubscribeInvalid", func(t *testing.T) {
		cases := map[string]interface{}{
			"plain_http": map[string]interface{}{"endpoint": "http://push.example.com/x", "keys": testKeys(t)},
			"short_keys": map[string]interface{}{"endpoint": endpoint, "keys": map[string]string{"p256dh": "abc", "auth": "def"}},
			"no_keys":    map[string]interface{}{"endpoint": endpoint},
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				w, resp := doJSON(t, server, http.MethodPost, "/api/push/subscribe", "u1", body)
				if w.Code != http.StatusBadRequest || resp["error_code"] != errCodeBadRequest {
					t.Errorf("expected 400, got %d %v", w.Code, resp)
				}
			})
		}
	})

	t.Run("UnsubscribeIdempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			w, _ := doJSON(t, server, http.MethodPost, "/api/push/unsubscribe", "u2", map[string]string{"endpoint": endpoint})
			if w.Code != http.StatusOK {
				t.Fatalf("attempt %d: expected 200, got %d", i, w.Code)
			}
		}
		subs, _ := store.ListSubscriptions(ctx, "u2")
		if len(subs) != 0 {
			t.Fatalf("expected no subscriptions, got %d", len(subs))
		}
	})

	t.Run("UnsubscribeMissingEndpoint", func(t *testing.T) {
		w, _ := doJSON(t, server, http.MethodPost, "/api/push/unsubscribe", "u2", map[string]string{})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}

func TestPushTestHandler(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		server := newTestServer(t, memory.NewStore(), nil, "")
		w, _ := doJSON(t, server, http.MethodPost, "/api/push/test", "u1", nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", w.Code)
		}
	})

	t.Run("GoneCleanup", func(t *testing.T) {
		store := memory.NewStore()
		ctx := context.Background()
		keys := alertDomain.SubscriptionKeys{P256dh: "p", Auth: "a"}
		_ = store.UpsertSubscription(ctx, "u1", "https://push.example.com/alive", keys)
		_ = store.UpsertSubscription(ctx, "u1", "https://push.example.com/dead", keys)

		pusher := &stubPusher{results: map[string]alertDomain.DeliveryResult{
			"https://push.example.com/dead": alertDomain.Gone,
		}}
		server := newTestServer(t, store, pusher, "BPubKey")

		w, resp := doJSON(t, server, http.MethodPost, "/api/push/test", "u1", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d. body: %s", w.Code, w.Body.String())
		}
		if resp["attempted"] != float64(2) || resp["delivered"] != float64(1) || resp["gone"] != float64(1) {
			t.Errorf("unexpected report %v", resp)
		}
		subs, _ := store.ListSubscriptions(ctx, "u1")
		if len(subs) != 1 || subs[0].Endpoint != "https://push.example.com/alive" {
			t.Errorf("expected only the live endpoint to remain, got %+v", subs)
		}
	})
}
