// Package llm is the provider-neutral contract between the tool-call loop
// and a chat model. Adapters live in the openai and gemini subpackages.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

var ErrEmptyResponse = errors.New("model returned no candidates")

// ToolCall is one function invocation requested by the model. ID is the
// provider's call id and must be echoed on the matching tool message.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Message is one entry of the conversation sent to the model. Assistant
// messages may carry ToolCalls; tool messages carry ToolCallID and ToolName
// with the JSON result in Text.
type Message struct {
	Role       Role
	Text       string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Text: text}
}

func ToolResultMessage(call ToolCall, result []byte) Message {
	return Message{Role: RoleTool, Text: string(result), ToolCallID: call.ID, ToolName: call.Name}
}

type Request struct {
	System   string
	Messages []Message
	Tools    []ToolSpec
	// AllowTools false asks for a plain-text answer even when Tools is set.
	AllowTools  bool
	Temperature float64
}

type Response struct {
	Text      string
	ToolCalls []ToolCall
}

func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

type ChatModel interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ChatModelFunc adapts a function to ChatModel.
type ChatModelFunc func(ctx context.Context, req Request) (*Response, error)

func (f ChatModelFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
