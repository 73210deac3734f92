package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/emergent-company/epf-eval/internal/models"
	"github.com/emergent-company/epf-eval/internal/tools"
)

const geminiReply = `{
	"candidates": [{
		"content": {"role": "model", "parts": [
			{"text": "Checking."},
			{"functionCall": {"name": "epf_health_check", "args": {"instance_path": "docs"}}},
			{"functionCall": {"name": "epf_list_schemas"}}
		]},
		"finishReason": "STOP"
	}],
	"usageMetadata": {"promptTokenCount": 40, "candidatesTokenCount": 9}
}`

func TestGeminiAPIKey(t *testing.T) {
	var got geminiRequest
	var path, key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		key = r.URL.Query().Get("key")
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &got))
		_, _ = io.WriteString(w, geminiReply)
	}))
	defer srv.Close()

	p, err := New(Config{Name: "google", Family: FamilyGoogle, Auth: AuthAPIKey, Model: "gemini-2.5-pro", APIKey: "g-key", BaseURL: srv.URL})
	require.NoError(t, err)

	prev := &models.Turn{ToolCalls: []*models.ToolCall{{ToolName: "epf_validate_file", Arguments: map[string]any{"path": "fd.yaml"}}}}
	history := []Message{
		UserMessage("validate"),
		p.FormatAssistantTurn(prev),
		p.FormatToolResult(p.ToolCallID(0), "epf_validate_file", `{"valid":true}`),
	}
	turn, err := p.Send(context.Background(), "sys", history, tools.All())
	require.NoError(t, err)

	assert.Equal(t, "/models/gemini-2.5-pro:generateContent", path)
	assert.Equal(t, "g-key", key)

	assert.Equal(t, "Checking.", turn.Content)
	require.Len(t, turn.ToolCalls, 2)
	assert.Equal(t, map[string]any{"instance_path": "docs"}, turn.ToolCalls[0].Arguments)
	assert.Equal(t, map[string]any{}, turn.ToolCalls[1].Arguments)
	assert.Equal(t, map[string]any{"prompt_tokens": int64(40), "completion_tokens": int64(9)}, turn.Raw["usage"])

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "sys", got.SystemInstruction.Parts[0].Text)
	require.Len(t, got.Contents, 3)
	assert.Equal(t, "user", got.Contents[0].Role)

	// The model's function call is replayed, not dropped.
	assert.Equal(t, "model", got.Contents[1].Role)
	require.NotNil(t, got.Contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "epf_validate_file", got.Contents[1].Parts[0].FunctionCall.Name)

	fr := got.Contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "epf_validate_file", fr.Name)
	assert.Equal(t, map[string]any{"result": `{"valid":true}`}, fr.Response)

	require.Len(t, got.Tools, 1)
	decls := got.Tools[0].FunctionDeclarations
	require.Len(t, decls, len(tools.All()))
	assert.Equal(t, "OBJECT", decls[0].Parameters["type"])
	props := decls[0].Parameters["properties"].(map[string]any)
	assert.Equal(t, "STRING", props["instance_path"].(map[string]any)["type"])
}

func TestGeminiVertex(t *testing.T) {
	orig := findGoogleCredentials
	t.Cleanup(func() { findGoogleCredentials = orig })
	findGoogleCredentials = func(context.Context) (*google.Credentials, error) {
		return &google.Credentials{TokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "adc-token"})}, nil
	}

	var path, auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, auth = r.URL.Path, r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	cfg, err := lookup("vertex-gemini", "", env(map[string]string{"VERTEX_PROJECT": "proj"}))
	require.NoError(t, err)
	cfg.BaseURL = srv.URL
	p, err := New(cfg)
	require.NoError(t, err)

	turn, err := p.Send(context.Background(), "sys", []Message{UserMessage("hi")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", turn.Content)
	assert.False(t, turn.HasToolCalls())
	assert.Equal(t, "/v1/projects/proj/locations/us-central1/publishers/google/models/gemini-2.5-pro:generateContent", path)
	assert.Equal(t, "Bearer adc-token", auth)
	assert.Equal(t, map[string]any{"prompt_tokens": int64(0), "completion_tokens": int64(0)}, turn.Raw["usage"])
}

func TestGeminiVertexRefreshesAfterCallerContextEnds(t *testing.T) {
	var issued int
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		issued++
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":1}`, issued)
	}))
	defer tokens.Close()

	orig := findGoogleCredentials
	t.Cleanup(func() { findGoogleCredentials = orig })
	findGoogleCredentials = func(ctx context.Context) (*google.Credentials, error) {
		adc := fmt.Sprintf(`{"type":"authorized_user","client_id":"c","client_secret":"s","refresh_token":"r","token_uri":%q}`, tokens.URL)
		return google.CredentialsFromJSON(ctx, []byte(adc), cloudPlatformScope)
	}

	var auths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auths = append(auths, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`)
	}))
	defer srv.Close()

	cfg, err := lookup("vertex-gemini", "", env(map[string]string{"VERTEX_PROJECT": "proj"}))
	require.NoError(t, err)
	cfg.BaseURL = srv.URL
	p, err := New(cfg)
	require.NoError(t, err)

	// Each call runs under its own context that ends when the call
	// returns, the way the agent loop applies its per-call timeout.
	for range 2 {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := p.Send(ctx, "sys", []Message{UserMessage("hi")}, nil)
		cancel()
		require.NoError(t, err)
	}
	assert.Equal(t, 2, issued)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, auths)
}

func TestGeminiEndpoints(t *testing.T) {
	global := &geminiProvider{cfg: Config{Auth: AuthVertex, Region: "global", Project: "p", Model: "gemini-3-pro-preview"}}
	assert.Equal(t, "https://aiplatform.googleapis.com/v1/projects/p/locations/global/publishers/google/models/gemini-3-pro-preview:generateContent", global.endpoint())

	regional := &geminiProvider{cfg: Config{Auth: AuthVertex, Region: "us-central1", Project: "p", Model: "gemini-2.5-pro"}}
	assert.Equal(t, "https://us-central1-aiplatform.googleapis.com/v1/projects/p/locations/us-central1/publishers/google/models/gemini-2.5-pro:generateContent", regional.endpoint())

	direct := &geminiProvider{cfg: Config{Auth: AuthAPIKey, Model: "gemini-2.5-pro", APIKey: "a b"}}
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-pro:generateContent?key=a+b", direct.endpoint())
}

func TestGeminiHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"quota"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := New(Config{Name: "google", Family: FamilyGoogle, Auth: AuthAPIKey, Model: "m", APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = p.Send(context.Background(), "", []Message{UserMessage("x")}, nil)
	require.ErrorContains(t, err, "status 429")
	require.ErrorContains(t, err, "quota")
}

func TestGeminiCredentialFailure(t *testing.T) {
	orig := findGoogleCredentials
	t.Cleanup(func() { findGoogleCredentials = orig })
	findGoogleCredentials = func(context.Context) (*google.Credentials, error) {
		return nil, errors.New("no ADC")
	}
	p, err := New(Config{Name: "vertex-gemini", Family: FamilyGoogle, Auth: AuthVertex, Model: "m", Region: "global"})
	require.NoError(t, err)
	_, err = p.Send(context.Background(), "", []Message{UserMessage("x")}, nil)
	require.ErrorContains(t, err, "no ADC")
}
