package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// ChatCompletionsClient is the subset of the OpenAI SDK used here. It is
// satisfied by *openai.ChatCompletionService.
type ChatCompletionsClient interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type openAIProvider struct {
	cfg        Config
	httpClient *http.Client

	mu     sync.Mutex
	client ChatCompletionsClient
}

func newOpenAI(cfg Config, o options) *openAIProvider {
	return &openAIProvider{cfg: cfg, httpClient: o.httpClient}
}

func (p *openAIProvider) Name() models.ProviderName { return p.cfg.Name }
func (p *openAIProvider) Model() string { return p.cfg.Model }
func (p *openAIProvider) BatchesToolResults() bool { return false }

func (p *openAIProvider) ToolCallID(index int) string {
	return formatID("call", index)
}

func (p *openAIProvider) FormatToolResult(toolCallID, toolName, result string) Message {
	return toolResultMessage(toolCallID, toolName, result)
}

func (p *openAIProvider) FormatAssistantTurn(turn *models.Turn) Message {
	return assistantMessage(turn, p.ToolCallID)
}

func (p *openAIProvider) completions() (ChatCompletionsClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.cfg.APIKey == "" {
		return nil, missingKeyError(p.cfg)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(p.cfg.APIKey),
		option.WithHTTPClient(p.httpClient),
		option.WithMaxRetries(0),
	}
	if p.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	p.client = &client.Chat.Completions
	return p.client, nil
}

func (p *openAIProvider) Send(ctx context.Context, system string, messages []Message, defs []tools.ToolDef) (*models.Turn, error) {
	client, err := p.completions()
	if err != nil {
		return nil, err
	}
	params, err := p.request(system, messages, defs)
	if err != nil {
		return nil, err
	}
	resp, err := client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	return openAITurn(resp)
}

func (p *openAIProvider) request(system string, messages []Message, defs []tools.ToolDef) (openai.ChatCompletionNewParams, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	msgs = append(msgs, openai.SystemMessage(system))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case RoleAssistant:
			msg, err := encodeOpenAIAssistant(m)
			if err != nil {
				return openai.ChatCompletionNewParams{}, err
			}
			msgs = append(msgs, msg)
		case RoleTool:
			for _, tr := range m.ToolResults {
				msgs = append(msgs, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("openai: unsupported message role %q", m.Role)
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(p.cfg.Model),
		Messages:    msgs,
		Temperature: openai.Float(0),
	}
	for _, td := range defs {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        td.Name,
				Description: openai.String(td.Description),
				Parameters:  openai.FunctionParameters(td.InputSchema()),
			},
		})
	}
	return params, nil
}

func encodeOpenAIAssistant(m Message) (openai.ChatCompletionMessageParamUnion, error) {
	asst := &openai.ChatCompletionAssistantMessageParam{}
	if m.Content != "" {
		asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{OfString: openai.String(m.Content)}
	}
	for _, tu := range m.ToolUses {
		args, err := json.Marshal(tu.Arguments)
		if err != nil {
			return openai.ChatCompletionMessageParamUnion{}, fmt.Errorf("openai: marshal arguments for %s: %w", tu.Name, err)
		}
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: tu.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tu.Name,
				Arguments: string(args),
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: asst}, nil
}

func openAITurn(resp *openai.ChatCompletion) (*models.Turn, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}
	choice := resp.Choices[0]
	turn := &models.Turn{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, &models.ToolCall{
			ToolName:  tc.Function.Name,
			Arguments: parseOpenAIArguments(tc.Function.Arguments),
		})
	}
	turn.Raw = map[string]any{
		"id":            resp.ID,
		"finish_reason": choice.FinishReason,
		"usage":         usage("prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens),
	}
	return turn, nil
}

// parseOpenAIArguments keeps unparseable argument text under "_raw" so the
// call is still recorded.
func parseOpenAIArguments(raw string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"_raw": raw}
	}
	if args == nil {
		args = map[string]any{}
	}
	return args
}
