package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/vertex"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

// MessagesClient is the subset of the Anthropic SDK used here. It is
// satisfied by *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

type anthropicProvider struct {
	cfg        Config
	httpClient *http.Client

	mu     sync.Mutex
	client MessagesClient
}

func newAnthropic(cfg Config, o options) *anthropicProvider {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultAnthropicMaxTokens
	}
	return &anthropicProvider{cfg: cfg, httpClient: o.httpClient}
}

func (p *anthropicProvider) Name() models.ProviderName { return p.cfg.Name }
func (p *anthropicProvider) Model() string { return p.cfg.Model }
func (p *anthropicProvider) BatchesToolResults() bool { return true }

func (p *anthropicProvider) ToolCallID(index int) string {
	return formatID("toolu", index)
}

func (p *anthropicProvider) FormatToolResult(toolCallID, toolName, result string) Message {
	return toolResultMessage(toolCallID, toolName, result)
}

func (p *anthropicProvider) FormatAssistantTurn(turn *models.Turn) Message {
	return assistantMessage(turn, p.ToolCallID)
}

// messages returns the SDK client, building it on first use.
func (p *anthropicProvider) messages(ctx context.Context) (MessagesClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	opts := []option.RequestOption{
		option.WithHTTPClient(p.httpClient),
		option.WithMaxRetries(0),
	}
	switch p.cfg.Auth {
	case AuthVertex:
		credCtx, creds, err := googleCredentials(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, vertex.WithCredentials(credCtx, p.cfg.Region, p.cfg.Project, creds))
	case AuthBedrock:
		awsCfg, err := loadAWSConfig(ctx, p.cfg.Region)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		opts = append(opts, bedrock.WithConfig(awsCfg))
	default:
		if p.cfg.APIKey == "" {
			return nil, missingKeyError(p.cfg)
		}
		opts = append(opts, option.WithAPIKey(p.cfg.APIKey))
	}
	if p.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.cfg.BaseURL))
	}

	client := sdk.NewClient(opts...)
	p.client = &client.Messages
	return p.client, nil
}

func (p *anthropicProvider) Send(ctx context.Context, system string, messages []Message, defs []tools.ToolDef) (*models.Turn, error) {
	client, err := p.messages(ctx)
	if err != nil {
		return nil, err
	}
	params, err := p.request(system, messages, defs)
	if err != nil {
		return nil, err
	}
	msg, err := client.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return anthropicTurn(msg)
}

func (p *anthropicProvider) request(system string, messages []Message, defs []tools.ToolDef) (sdk.MessageNewParams, error) {
	msgs, err := encodeAnthropicMessages(messages)
	if err != nil {
		return sdk.MessageNewParams{}, err
	}
	params := sdk.MessageNewParams{
		MaxTokens: int64(p.cfg.MaxTokens),
		Messages:  msgs,
		Model:     sdk.Model(p.cfg.Model),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if len(defs) > 0 {
		params.Tools = encodeAnthropicTools(defs)
	}
	return params, nil
}

func encodeAnthropicMessages(messages []Message) ([]sdk.MessageParam, error) {
	out := make([]sdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleUser:
			out = append(out, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case RoleAssistant:
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.ToolUses)+1)
			if m.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, tu := range m.ToolUses {
				blocks = append(blocks, sdk.NewToolUseBlock(tu.ID, tu.Arguments, tu.Name))
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, sdk.NewAssistantMessage(blocks...))
		case RoleTool:
			blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.ToolResults))
			for _, tr := range m.ToolResults {
				blocks = append(blocks, sdk.NewToolResultBlock(tr.ToolCallID, tr.Content, false))
			}
			out = append(out, sdk.NewUserMessage(blocks...))
		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("anthropic: at least one message is required")
	}
	return out, nil
}

func encodeAnthropicTools(defs []tools.ToolDef) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, td := range defs {
		u := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: td.InputSchema()}, td.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(td.Description)
		}
		out = append(out, u)
	}
	return out
}

func anthropicTurn(msg *sdk.Message) (*models.Turn, error) {
	if msg == nil {
		return nil, errors.New("anthropic: response message is nil")
	}
	turn := &models.Turn{}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			turn.Content += block.Text
		case "tool_use":
			turn.ToolCalls = append(turn.ToolCalls, &models.ToolCall{
				ToolName:  block.Name,
				Arguments: decodeArguments(block.Input),
			})
		}
	}
	turn.Raw = map[string]any{
		"id":          msg.ID,
		"stop_reason": string(msg.StopReason),
		"usage":       usage("input_tokens", msg.Usage.InputTokens, "output_tokens", msg.Usage.OutputTokens),
	}
	return turn, nil
}

// decodeArguments turns a raw JSON object into tool arguments; anything else
// yields an empty map.
func decodeArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
