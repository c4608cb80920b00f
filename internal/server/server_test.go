package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"castfeed/internal/hook"
	"castfeed/internal/identity"
	"castfeed/internal/metrics"
	"castfeed/internal/notify"
	"castfeed/internal/pipeline"
	"castfeed/internal/profile"
	kit "castfeed/internal/transport"
	"castfeed/pkg/logx"
)

type nullAdapter struct{}

func (nullAdapter) SendText(context.Context, kit.ChatTarget, string, *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

type nullFetcher struct{}

func (nullFetcher) LookupUsers(_ context.Context, fids []int64) ([]identity.Profile, error) {
	out := make([]identity.Profile, 0, len(fids))
	for _, fid := range fids {
		out = append(out, identity.Profile{FID: fid, Username: "u"})
	}
	return out, nil
}

func newTestServer(t *testing.T, secret string) *Server {
	t.Helper()

	cache := profile.NewCache(nullFetcher{}, time.Minute, 16, logx.Nop())
	diff := profile.NewEngine(cache, profile.NewLastKnown(), logx.Nop())
	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	svc := notify.New(notify.Config{Workers: 1, QueueSize: 16, RatePerSec: 1000}, nullAdapter{}, met, logx.Nop())
	svc.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		svc.Stop(ctx)
	})

	channels := pipeline.Channels{Follows: kit.ChatTarget{ChatID: -100}}
	pipe := pipeline.New(secret, channels, hook.NewDeduper(100), cache, diff, svc, met, logx.Nop())

	return New(Config{}, pipe, reg, logx.Nop())
}

func signBody(body, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func post(srv *Server, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func TestWebhookStatusCodes(t *testing.T) {
	srv := newTestServer(t, "secret")
	body := `{"id":"e1","type":"follow.created","data":{"actor_fid":3,"target_fid":42}}`

	tests := []struct {
		name     string
		body     string
		header   map[string]string
		wantCode int
		wantBody string
	}{
		{
			"valid delivery",
			body,
			map[string]string{"X-Provider-Signature": signBody(body, "secret")},
			http.StatusOK, "ok",
		},
		{
			"bad signature",
			body,
			map[string]string{"X-Provider-Signature": "deadbeef"},
			http.StatusUnauthorized, "invalid signature",
		},
		{
			"missing signature",
			body,
			nil,
			http.StatusUnauthorized, "invalid signature",
		},
		{
			"malformed body still 200",
			"not json",
			map[string]string{"X-Provider-Signature": signBody("not json", "secret")},
			http.StatusOK, "ok",
		},
		{
			"unknown type still 200",
			`{"id":"e9","type":"reaction.created","data":{}}`,
			map[string]string{"X-Provider-Signature": signBody(`{"id":"e9","type":"reaction.created","data":{}}`, "secret")},
			http.StatusOK, "ok",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := post(srv, "/webhook", tc.body, tc.header)
			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}
			if w.Body.String() != tc.wantBody {
				t.Fatalf("body = %q, want %q", w.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestWebhookDuplicate200(t *testing.T) {
	srv := newTestServer(t, "")
	body := `{"id":"dup-1","type":"follow.created","data":{"actor_fid":3,"target_fid":42}}`

	if w := post(srv, "/webhook", body, nil); w.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d", w.Code)
	}
	if w := post(srv, "/webhook", body, nil); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("redelivery = (%d,%q), want (200,ok)", w.Code, w.Body.String())
	}
}

func TestSetSignatureHeader(t *testing.T) {
	srv := newTestServer(t, "secret")
	body := `{"id":"e1","type":"follow.created","data":{"actor_fid":3,"target_fid":42}}`
	sig := signBody(body, "secret")

	srv.SetSignatureHeader("X-Custom-Sig")

	if w := post(srv, "/webhook", body, map[string]string{"X-Provider-Signature": sig}); w.Code != http.StatusUnauthorized {
		t.Fatalf("old header accepted after swap: %d", w.Code)
	}
	if w := post(srv, "/webhook", body, map[string]string{"X-Custom-Sig": sig}); w.Code != http.StatusOK {
		t.Fatalf("new header rejected: %d", w.Code)
	}
}

func TestHealthAndRoot(t *testing.T) {
	srv := newTestServer(t, "")

	if w := get(srv, "/health"); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("health = (%d,%q)", w.Code, w.Body.String())
	}
	if w := get(srv, "/"); w.Code != http.StatusOK {
		t.Fatalf("root = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	body := `{"id":"e1","type":"follow.created","data":{"actor_fid":3,"target_fid":42}}`
	post(srv, "/webhook", body, nil)

	w := get(srv, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "castfeed_webhooks_received_total 1") {
		t.Fatalf("metrics body missing counter:\n%s", w.Body.String())
	}
}
