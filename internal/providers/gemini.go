package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

const (
	geminiAPIBase   = "https://generativelanguage.googleapis.com/v1beta"
	maxErrorBodyLen = 2048
)

type geminiProvider struct {
	cfg        Config
	httpClient *http.Client

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

func newGemini(cfg Config, o options) *geminiProvider {
	return &geminiProvider{cfg: cfg, httpClient: o.httpClient}
}

func (p *geminiProvider) Name() models.ProviderName { return p.cfg.Name }
func (p *geminiProvider) Model() string { return p.cfg.Model }
func (p *geminiProvider) BatchesToolResults() bool { return false }

func (p *geminiProvider) ToolCallID(index int) string {
	return formatID("fc", index)
}

func (p *geminiProvider) FormatToolResult(toolCallID, toolName, result string) Message {
	return toolResultMessage(toolCallID, toolName, result)
}

func (p *geminiProvider) FormatAssistantTurn(turn *models.Turn) Message {
	return assistantMessage(turn, p.ToolCallID)
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Tools             []geminiTool    `json:"tools,omitempty"`
	GenerationConfig  geminiGenConfig `json:"generationConfig"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDeclaration `json:"functionDeclarations"`
}

type geminiFunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

// endpoint returns the generateContent URL for the configured auth mode.
func (p *geminiProvider) endpoint() string {
	if p.cfg.Auth == AuthVertex {
		base := p.cfg.BaseURL
		if base == "" {
			host := "aiplatform.googleapis.com"
			if p.cfg.Region != vertexGlobalLocation {
				host = p.cfg.Region + "-" + host
			}
			base = "https://" + host
		}
		return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			strings.TrimSuffix(base, "/"), p.cfg.Project, p.cfg.Region, p.cfg.Model)
	}
	base := p.cfg.BaseURL
	if base == "" {
		base = geminiAPIBase
	}
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimSuffix(base, "/"), p.cfg.Model, url.QueryEscape(p.cfg.APIKey))
}

// tokenSource builds the ADC token source on first use.
func (p *geminiProvider) tokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tokens != nil {
		return p.tokens, nil
	}
	ts, err := googleTokenSource(ctx)
	if err != nil {
		return nil, err
	}
	p.tokens = ts
	return ts, nil
}

func (p *geminiProvider) Send(ctx context.Context, system string, messages []Message, defs []tools.ToolDef) (*models.Turn, error) {
	var ts oauth2.TokenSource
	if p.cfg.Auth == AuthVertex {
		var err error
		if ts, err = p.tokenSource(ctx); err != nil {
			return nil, err
		}
	} else if p.cfg.APIKey == "" {
		return nil, missingKeyError(p.cfg)
	}

	body, err := json.Marshal(buildGeminiRequest(system, messages, defs))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ts != nil {
		if err := bearer(req, ts); err != nil {
			return nil, err
		}
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(data) > maxErrorBodyLen {
			data = data[:maxErrorBodyLen]
		}
		return nil, fmt.Errorf("gemini: API request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	return geminiTurn(&parsed), nil
}

func buildGeminiRequest(system string, messages []Message, defs []tools.ToolDef) geminiRequest {
	req := geminiRequest{GenerationConfig: geminiGenConfig{Temperature: 0}}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	if len(defs) > 0 {
		decls := make([]geminiFunctionDeclaration, 0, len(defs))
		for _, td := range defs {
			decls = append(decls, geminiFunctionDeclaration{
				Name:        td.Name,
				Description: td.Description,
				Parameters:  geminiParameters(td),
			})
		}
		req.Tools = []geminiTool{{FunctionDeclarations: decls}}
	}

	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		case RoleAssistant:
			var parts []geminiPart
			if m.Content != "" {
				parts = append(parts, geminiPart{Text: m.Content})
			}
			for _, tu := range m.ToolUses {
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{Name: tu.Name, Args: tu.Arguments}})
			}
			if len(parts) > 0 {
				req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: parts})
			}
		case RoleTool:
			parts := make([]geminiPart, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				parts = append(parts, geminiPart{FunctionResponse: &geminiFunctionResponse{
					Name:     tr.ToolName,
					Response: map[string]any{"result": tr.Content},
				}})
			}
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: parts})
		}
	}
	return req
}

// geminiParameters declares every parameter as STRING.
func geminiParameters(td tools.ToolDef) map[string]any {
	props := map[string]any{}
	for _, p := range td.Parameters {
		props[p.Name] = map[string]any{"type": "STRING", "description": p.Description}
	}
	params := map[string]any{"type": "OBJECT", "properties": props}
	if req := td.RequiredParams(); len(req) > 0 {
		params["required"] = req
	}
	return params
}

func geminiTurn(resp *geminiResponse) *models.Turn {
	turn := &models.Turn{}
	finish := ""
	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		finish = c.FinishReason
		for _, part := range c.Content.Parts {
			switch {
			case part.Text != "":
				turn.Content += part.Text
			case part.FunctionCall != nil:
				args := part.FunctionCall.Args
				if args == nil {
					args = map[string]any{}
				}
				turn.ToolCalls = append(turn.ToolCalls, &models.ToolCall{ToolName: part.FunctionCall.Name, Arguments: args})
			}
		}
	}

	var in, out int64
	if u := resp.UsageMetadata; u != nil {
		in, out = u.PromptTokenCount, u.CandidatesTokenCount
	}
	turn.Raw = map[string]any{
		"finish_reason": finish,
		"usage":         usage("prompt_tokens", in, "completion_tokens", out),
	}
	return turn
}
