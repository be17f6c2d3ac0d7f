package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"concierge/internal/tenant"
	"concierge/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
)

const samplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "WABA",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "390212345", "phone_number_id": "PNID"},
        "contacts": [{"wa_id": "393331234567", "profile": {"name": "Giulia"}}],
        "messages": [
          {"id": "wamid.1", "from": "393331234567", "timestamp": "1767085200", "type": "text", "text": {"body": "  vorrei una piega  "}},
          {"id": "wamid.2", "from": "393331234567", "timestamp": "1767085201", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "yes", "title": "Sì"}}},
          {"id": "wamid.3", "from": "393331234567", "timestamp": "1767085202", "type": "image", "image": {"id": "media"}}
        ]
      }
    }]
  }]
}`

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "info", Format: logger.JSON, Service: "test"})
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []string
	reads []string
}

func (s *recordingSender) SendText(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, to+":"+body)
	return nil
}

func (s *recordingSender) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, id)
	return nil
}

type echoReplier struct{}

func (echoReplier) Reply(_ context.Context, _ string, text string) string {
	return "echo: " + text
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func newTestServer(t *testing.T, h *Handler) *httptest.Server {
	t.Helper()
	router := httprouter.New()
	h.RegisterRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestInbound(t *testing.T) {
	var payload WebhookPayload
	if err := json.Unmarshal([]byte(samplePayload), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got := payload.Inbound()
	want := []Inbound{
		{ID: "wamid.1", From: "393331234567", Text: "vorrei una piega", Supported: true},
		{ID: "wamid.2", From: "393331234567", Text: "Sì", Supported: true},
		{ID: "wamid.3", From: "393331234567", Supported: false},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestVerify(t *testing.T) {
	h := NewHandler(echoReplier{}, &recordingSender{}, nil, nil, tenant.Default(), Config{VerifyToken: "s3cret"}, testLogger())
	srv := newTestServer(t, h)

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"valid", "?hub.mode=subscribe&hub.verify_token=s3cret&hub.challenge=42", http.StatusOK, "42"},
		{"wrong token", "?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=42", http.StatusForbidden, ""},
		{"wrong mode", "?hub.mode=unsubscribe&hub.verify_token=s3cret&hub.challenge=42", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(srv.URL + WebhookPath + tt.query)
			if err != nil {
				t.Fatalf("GET: %v", err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if string(body) != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestReceive(t *testing.T) {
	rdb, _ := newRedis(t)
	sender := &recordingSender{}
	tn := tenant.Default()
	h := NewHandler(echoReplier{}, sender, NewRedisDeduper(rdb, time.Hour), NewRedisRateLimiter(rdb, 10, time.Minute),
		tn, Config{MaxConcurrentTurns: 2}, testLogger())
	srv := newTestServer(t, h)

	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+WebhookPath, "application/json", strings.NewReader(samplePayload))
		if err != nil {
			t.Fatalf("POST: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Redelivery is deduplicated, so each message is handled exactly once.
	if len(sender.reads) != 3 {
		t.Errorf("reads = %v", sender.reads)
	}
	want := map[string]bool{
		"393331234567:echo: vorrei una piega":           true,
		"393331234567:echo: Sì":                         true,
		"393331234567:" + tn.Prompts.UnsupportedMessage: true,
	}
	if len(sender.sent) != len(want) {
		t.Fatalf("sent = %v", sender.sent)
	}
	for _, s := range sender.sent {
		if !want[s] {
			t.Errorf("unexpected reply %q", s)
		}
	}
}

func TestReceive_BadPayloads(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(echoReplier{}, sender, nil, nil, tenant.Default(), Config{}, testLogger())
	srv := newTestServer(t, h)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"not json", `{`, http.StatusBadRequest},
		{"other object", `{"object":"page","entry":[]}`, http.StatusOK},
		{"status update only", `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+WebhookPath, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	_ = h.Close(context.Background())
	if len(sender.sent) != 0 {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestRateLimitedReply(t *testing.T) {
	rdb, _ := newRedis(t)
	sender := &recordingSender{}
	tn := tenant.Default()
	now := time.Date(2026, time.January, 13, 10, 0, 0, 0, time.UTC)
	limiter := &redisRateLimiter{rdb: rdb, limit: 1, window: time.Minute, now: func() time.Time { return now }}
	h := NewHandler(echoReplier{}, sender, nil, limiter, tn, Config{}, testLogger())

	ctx := context.Background()
	h.process(ctx, Inbound{ID: "a", From: "39333", Text: "uno", Supported: true})
	h.process(ctx, Inbound{ID: "b", From: "39333", Text: "due", Supported: true})

	if len(sender.sent) != 2 || sender.sent[1] != "39333:"+tn.Prompts.RateLimited {
		t.Errorf("sent = %v", sender.sent)
	}
}

func TestRedisDeduper(t *testing.T) {
	rdb, mr := newRedis(t)
	d := NewRedisDeduper(rdb, time.Minute)
	ctx := context.Background()

	first, err := d.FirstSeen(ctx, "wamid.1")
	if err != nil || !first {
		t.Fatalf("first = %v, err = %v", first, err)
	}
	if again, _ := d.FirstSeen(ctx, "wamid.1"); again {
		t.Error("second sighting reported as first")
	}

	mr.FastForward(2 * time.Minute)
	if after, _ := d.FirstSeen(ctx, "wamid.1"); !after {
		t.Error("id should be forgotten after ttl")
	}

	down := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	defer down.Close()
	if _, err := NewRedisDeduper(down, time.Minute).FirstSeen(ctx, "wamid.2"); err == nil {
		t.Error("expected error with redis down")
	}
}

func TestRedisRateLimiter(t *testing.T) {
	rdb, mr := newRedis(t)
	now := time.Date(2026, time.January, 13, 10, 0, 0, 0, time.UTC)
	l := &redisRateLimiter{rdb: rdb, limit: 3, window: time.Minute, now: func() time.Time { return now }}
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		allowed, err := l.Allow(ctx, "39333")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if want := i <= 3; allowed != want {
			t.Errorf("call %d allowed = %v, want %v", i, allowed, want)
		}
	}

	if allowed, _ := l.Allow(ctx, "39444"); !allowed {
		t.Error("limit must be per phone")
	}

	now = now.Add(time.Minute)
	if allowed, _ := l.Allow(ctx, "39333"); !allowed {
		t.Error("new window should reset the count")
	}

	key := fmt.Sprintf("wa:rate:39333:%d", now.UnixNano()/int64(time.Minute))
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Minute {
		t.Errorf("window key ttl = %v", ttl)
	}
}

func TestSender(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PNID/messages" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		requests = append(requests, body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp"}`))
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "tok", "PNID", 5*time.Second)
	ctx := context.Background()

	if err := s.SendText(ctx, "393331234567", "Ciao!"); err != nil {
		t.Fatalf("SendText() error = %v", err)
	}
	if err := s.MarkRead(ctx, "wamid.1"); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	if len(requests) != 2 {
		t.Fatalf("requests = %d", len(requests))
	}
	text := requests[0]["text"].(map[string]any)
	if requests[0]["to"] != "393331234567" || requests[0]["type"] != "text" || text["body"] != "Ciao!" {
		t.Errorf("text message = %v", requests[0])
	}
	if requests[1]["status"] != "read" || requests[1]["message_id"] != "wamid.1" {
		t.Errorf("read receipt = %v", requests[1])
	}

	bad := NewSender(srv.URL, "wrong", "PNID", 5*time.Second)
	err := bad.SendText(ctx, "1", "x")
	if err == nil || !strings.Contains(err.Error(), "Invalid OAuth access token (code 190)") {
		t.Errorf("error = %v", err)
	}
}
