package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"concierge/internal/assistant/llm"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

type Client struct {
	models *genai.Models
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return NewWithClient(client, model), nil
}

func NewWithClient(client *genai.Client, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: client.Models, model: model}
}

func (c *Client) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	resp, err := c.models.GenerateContent(ctx, c.model, toContents(req.Messages), toConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return fromResponse(resp)
}

func toConfig(req llm.Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, spec := range req.Tools {
			decls = append(decls, toDeclaration(spec))
		}
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}

		// Declarations stay attached so earlier calls in the turn still
		// resolve; mode NONE forbids new ones.
		mode := genai.FunctionCallingConfigModeAuto
		if !req.AllowTools {
			mode = genai.FunctionCallingConfigModeNone
		}
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: mode},
		}
	}
	return cfg
}

func toDeclaration(spec llm.ToolSpec) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(spec.Params))
	var required []string
	for _, p := range spec.Params {
		s := &genai.Schema{
			Type:        schemaType(p.Type),
			Description: p.Description,
			Enum:        p.Enum,
		}
		if p.Nullable {
			s.Nullable = genai.Ptr(true)
		} else {
			required = append(required, p.Name)
		}
		props[p.Name] = s
	}

	return &genai.FunctionDeclaration{
		Name:        spec.Name,
		Description: spec.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   required,
		},
	}
}

func schemaType(t llm.ParamType) genai.Type {
	if t == llm.TypeInteger {
		return genai.TypeInteger
	}
	return genai.TypeString
}

// toContents maps the conversation onto Gemini roles. Consecutive tool
// results collapse into one user content of function responses.
func toContents(msgs []llm.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	var pending *genai.Content

	flush := func() {
		if pending != nil {
			contents = append(contents, pending)
			pending = nil
		}
	}

	for _, m := range msgs {
		if m.Role == llm.RoleTool {
			if pending == nil {
				pending = &genai.Content{Role: genai.RoleUser}
			}
			pending.Parts = append(pending.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       m.ToolCallID,
					Name:     m.ToolName,
					Response: responseMap(m.Text),
				},
			})
			continue
		}
		flush()

		switch m.Role {
		case llm.RoleUser:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))
		case llm.RoleAssistant:
			c := &genai.Content{Role: genai.RoleModel}
			if m.Text != "" {
				c.Parts = append(c.Parts, genai.NewPartFromText(m.Text))
			}
			for _, tc := range m.ToolCalls {
				c.Parts = append(c.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: argsMap(tc.Arguments),
					},
				})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		}
	}
	flush()
	return contents
}

func fromResponse(resp *genai.GenerateContentResponse) (*llm.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, llm.ErrEmptyResponse
	}

	out := &llm.Response{}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil || p.Thought {
			continue
		}
		if p.FunctionCall != nil {
			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil || p.FunctionCall.Args == nil {
				args = []byte("{}")
			}
			id := p.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        id,
				Name:      p.FunctionCall.Name,
				Arguments: args,
			})
			continue
		}
		text.WriteString(p.Text)
	}
	out.Text = strings.TrimSpace(text.String())
	return out, nil
}

func argsMap(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &args)
	}
	return args
}

func responseMap(text string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil || out == nil {
		return map[string]any{"output": text}
	}
	return out
}
