package service

import (
	"context"
	"strings"
	"time"

	"concierge/internal/assistant/llm"
	"concierge/internal/assistant/tools"
	"concierge/internal/history"
	"concierge/internal/tenant"
	"concierge/pkg/logger"
	"concierge/pkg/model"
	"concierge/pkg/sanitizer"
)

const (
	DefaultRoundCap    = 3
	DefaultTemperature = 0.0
)

// Assistant produces one reply per inbound customer message.
type Assistant interface {
	Reply(ctx context.Context, phone, text string) string
}

// Dispatcher runs the tool calls emitted by the model.
type Dispatcher interface {
	Specs() []llm.ToolSpec
	Dispatch(ctx context.Context, phone string, call llm.ToolCall) tools.Result
}

type Config struct {
	RoundCap    int
	Temperature float64
}

// ProfileSource looks up what earlier bookings say about a customer. A nil
// profile means the phone never booked.
type ProfileSource interface {
	CustomerProfile(ctx context.Context, phone string) (*model.CustomerProfile, error)
}

type Option func(*assistant)

// WithProfiles greets returning customers with what their bookings tell.
func WithProfiles(src ProfileSource) Option {
	return func(a *assistant) {
		a.profiles = src
	}
}

// WithClock replaces the wall clock used for the prompt dates.
func WithClock(now func() time.Time) Option {
	return func(a *assistant) {
		a.now = now
	}
}

type assistant struct {
	model    llm.ChatModel
	tools    Dispatcher
	history  history.Store
	profiles ProfileSource
	prompt   *promptRenderer
	fallback string
	cfg      Config
	log      *logger.Logger
	now      func() time.Time
}

func NewAssistant(
	model llm.ChatModel,
	dispatcher Dispatcher,
	store history.Store,
	t *tenant.Tenant,
	cfg Config,
	log *logger.Logger,
	opts ...Option,
) (Assistant, error) {
	prompt, err := newPromptRenderer(t)
	if err != nil {
		return nil, err
	}
	if cfg.RoundCap <= 0 {
		cfg.RoundCap = DefaultRoundCap
	}

	a := &assistant{
		model:    model,
		tools:    dispatcher,
		history:  store,
		prompt:   prompt,
		fallback: t.Prompts.Fallback,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Reply runs one conversational turn. It never fails: model and transport
// errors end the turn with the tenant fallback reply.
func (a *assistant) Reply(ctx context.Context, phone, text string) string {
	// One conversation per number, however the channel formats it.
	if normalized := sanitizer.NormalizePhone(phone); normalized != "" {
		phone = normalized
	}
	log := a.log.With("phone", sanitizer.MaskPhone(phone))
	start := a.now()

	reply := a.converse(ctx, log, phone, text)

	if a.history != nil {
		err := a.history.Append(ctx, phone,
			history.Turn{Role: history.RoleUser, Text: text, Timestamp: start},
			history.Turn{Role: history.RoleAssistant, Text: reply, Timestamp: a.now()},
		)
		if err != nil {
			log.Error("Failed to append history", "error", err)
		}
	}
	return reply
}

func (a *assistant) converse(ctx context.Context, log *logger.Logger, phone, text string) string {
	system, err := a.prompt.render(a.now())
	if err != nil {
		log.Error("Failed to render system prompt", "error", err)
		return a.fallback
	}
	if profile := a.loadProfile(ctx, log, phone); profile.IsReturning() {
		system += "\n\n" + customerContext(profile)
	}

	msgs := a.loadHistory(ctx, log, phone)
	msgs = append(msgs, llm.UserMessage(text))

	req := llm.Request{
		System:      system,
		Tools:       a.tools.Specs(),
		AllowTools:  true,
		Temperature: a.cfg.Temperature,
	}

	for round := 1; round <= a.cfg.RoundCap; round++ {
		req.Messages = msgs
		resp, err := a.model.Complete(ctx, req)
		if err != nil {
			log.Error("Model request failed", "round", round, "error", err)
			return a.fallback
		}

		log.Info("Model round completed", "round", round, "tool_calls", len(resp.ToolCalls))

		if !resp.HasToolCalls() {
			return a.finalText(resp.Text)
		}

		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Text: resp.Text, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			result := a.tools.Dispatch(ctx, phone, call)
			msgs = append(msgs, llm.ToolResultMessage(call, result.JSON()))
		}
	}

	log.Warn("Round cap reached, requesting final answer without tools", "round_cap", a.cfg.RoundCap)

	req.Messages = msgs
	req.AllowTools = false
	resp, err := a.model.Complete(ctx, req)
	if err != nil {
		log.Error("Final model request failed", "error", err)
		return a.fallback
	}
	return a.finalText(resp.Text)
}

func (a *assistant) loadProfile(ctx context.Context, log *logger.Logger, phone string) *model.CustomerProfile {
	if a.profiles == nil {
		return nil
	}
	profile, err := a.profiles.CustomerProfile(ctx, phone)
	if err != nil {
		log.Warn("Failed to load customer profile, continuing without it", "error", err)
		return nil
	}
	return profile
}

// loadHistory degrades to an empty history when the store is unavailable.
func (a *assistant) loadHistory(ctx context.Context, log *logger.Logger, phone string) []llm.Message {
	if a.history == nil {
		return nil
	}

	turns, err := a.history.Load(ctx, phone)
	if err != nil {
		log.Warn("Failed to load history, continuing without it", "error", err)
		return nil
	}

	msgs := make([]llm.Message, 0, len(turns)+1)
	for _, turn := range turns {
		switch turn.Role {
		case history.RoleUser:
			msgs = append(msgs, llm.UserMessage(turn.Text))
		case history.RoleAssistant:
			msgs = append(msgs, llm.AssistantMessage(turn.Text))
		}
	}
	return msgs
}

func (a *assistant) finalText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return a.fallback
	}
	return text
}
