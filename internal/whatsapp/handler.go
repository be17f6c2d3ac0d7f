package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"concierge/internal/tenant"
	apperrors "concierge/pkg/errors"
	httputil "concierge/pkg/http"
	"concierge/pkg/logger"
	"concierge/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/semaphore"
)

const WebhookPath = "/webhook"

// Replier runs one conversational turn.
type Replier interface {
	Reply(ctx context.Context, phone, text string) string
}

type Config struct {
	VerifyToken        string
	MaxConcurrentTurns int
	TurnTimeout        time.Duration
}

// Handler receives Cloud API webhooks. Messages are acknowledged immediately
// and processed in the background, at most MaxConcurrentTurns at a time.
type Handler struct {
	assistant Replier
	sender    Sender
	dedup     Deduper
	limiter   RateLimiter
	prompts   tenant.Prompts
	cfg       Config
	turns     *semaphore.Weighted
	wg        sync.WaitGroup
	log       *logger.Logger
}

func NewHandler(
	assistant Replier,
	sender Sender,
	dedup Deduper,
	limiter RateLimiter,
	t *tenant.Tenant,
	cfg Config,
	log *logger.Logger,
) *Handler {
	if cfg.MaxConcurrentTurns <= 0 {
		cfg.MaxConcurrentTurns = 1
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 2 * time.Minute
	}
	return &Handler{
		assistant: assistant,
		sender:    sender,
		dedup:     dedup,
		limiter:   limiter,
		prompts:   t.Prompts,
		cfg:       cfg,
		turns:     semaphore.NewWeighted(int64(cfg.MaxConcurrentTurns)),
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET(WebhookPath, h.Verify)
	router.POST(WebhookPath, h.Receive)
}

// Verify answers the subscription handshake.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	if query.Get("hub.mode") != "subscribe" || h.cfg.VerifyToken == "" || query.Get("hub.verify_token") != h.cfg.VerifyToken {
		h.log.Warn("Webhook verification rejected", "handler", "Verify", "mode", query.Get("hub.mode"))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h.log.Info("Webhook verified", "handler", "Verify")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, query.Get("hub.challenge"))
}

func (h *Handler) Receive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Warn("Invalid webhook payload", "handler", "Receive", "operation", "Decode", "error", err)
		if writeErr := apperrors.WriteError(w, apperrors.InvalidInput("invalid webhook payload")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Receive", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if payload.Object != ObjectBusinessAccount {
		h.log.Warn("Ignoring webhook for unexpected object", "handler", "Receive", "object", payload.Object)
		h.writeStatus(w, http.StatusOK, "ignored")
		return
	}

	for _, msg := range payload.Inbound() {
		h.wg.Add(1)
		go func(msg Inbound) {
			defer h.wg.Done()
			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.cfg.TurnTimeout)
			defer cancel()
			h.process(ctx, msg)
		}(msg)
	}

	h.writeStatus(w, http.StatusOK, "received")
}

func (h *Handler) process(ctx context.Context, msg Inbound) {
	log := h.log.With("message_id", msg.ID, "phone", sanitizer.MaskPhone(msg.From))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic while processing message", "error", r)
		}
	}()

	if h.dedup != nil {
		first, err := h.dedup.FirstSeen(ctx, msg.ID)
		switch {
		case err != nil:
			log.Warn("Dedup check failed, processing anyway", "error", err)
		case !first:
			log.Info("Duplicate message skipped")
			return
		}
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, msg.From)
		switch {
		case err != nil:
			log.Warn("Rate limit check failed, processing anyway", "error", err)
		case !allowed:
			log.Warn("Rate limit exceeded")
			h.send(ctx, log, msg.From, h.prompts.RateLimited)
			return
		}
	}

	if err := h.sender.MarkRead(ctx, msg.ID); err != nil {
		log.Warn("Failed to mark message read", "error", err)
	}

	if !msg.Supported {
		h.send(ctx, log, msg.From, h.prompts.UnsupportedMessage)
		return
	}

	start := time.Now()
	reply, err := h.runTurn(ctx, msg)
	if err != nil {
		log.Error("Gave up waiting for a turn slot", "error", err)
		return
	}

	log.Info("Turn completed", "duration", time.Since(start))
	h.send(ctx, log, msg.From, reply)
}

func (h *Handler) runTurn(ctx context.Context, msg Inbound) (string, error) {
	if err := h.turns.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.turns.Release(1)

	return h.assistant.Reply(ctx, msg.From, msg.Text), nil
}

func (h *Handler) send(ctx context.Context, log *logger.Logger, to, text string) {
	if text == "" {
		return
	}
	if err := h.sender.SendText(ctx, to, text); err != nil {
		log.Error("Failed to send reply", "error", err)
	}
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, msg string) {
	if err := httputil.WriteJSON(w, status, httputil.StatusResponse{Status: msg}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Receive", "operation", "WriteJSON", "error", err)
	}
}

// Close waits for in-flight turns to finish or ctx to expire.
func (h *Handler) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
