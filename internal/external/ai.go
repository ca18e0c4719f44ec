package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dttools/internal/types"
)

// ChatMessage is one turn of an AI chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AIProvider produces assistant replies for the AI chat endpoint. The gate
// and usage counting live in the HTTP layer; providers only generate text.
type AIProvider interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	Name() string
}

// AIClientConfig configures an HTTP-backed AI provider.
type AIClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *slog.Logger
}

const defaultAIModel = "gpt-4o-mini"

// HTTPAIProvider calls an OpenAI-compatible chat completions endpoint
// through BaseClient.
type HTTPAIProvider struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	model   string
	logger  *slog.Logger
}

func NewHTTPAIProvider(httpClient *http.Client, cfg AIClientConfig) *HTTPAIProvider {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.Model
	if model == "" {
		model = defaultAIModel
	}

	base := NewBaseClient(
		httpClient,
		"ai-provider",
		RetryPolicy{
			MaxRetries: 2,
			MinWait:    time.Second,
			MaxWait:    8 * time.Second,
		},
		"DTTools/1.0",
	)

	return &HTTPAIProvider{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   model,
		logger:  logger,
	}
}

func (p *HTTPAIProvider) Name() string { return "http" }

type aiChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

type aiChatResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
}

func (p *HTTPAIProvider) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	payload, err := json.Marshal(aiChatRequest{Model: p.model, Messages: messages})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.base.Do(req)
	if err != nil {
		if appErr, ok := err.(*types.AppError); ok {
			return "", appErr
		}
		return "", types.NewAppError(types.ErrCodeUpstreamAI, "AI provider request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", types.NewAppError(
			types.ErrCodeUpstreamAI,
			fmt.Sprintf("AI provider returned status %d", resp.StatusCode),
			nil,
		)
	}

	var parsed aiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamAI, "failed to decode AI provider response", err)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewAppError(types.ErrCodeUpstreamAI, "AI provider returned no choices", nil)
	}

	return parsed.Choices[0].Message.Content, nil
}

// staticReplies are the canned design-thinking coaching responses served when
// no AI API key is configured. Deployments without a key still get a working
// chat endpoint for demos and local development.
var staticReplies = []string{
	"That's a strong starting point. Before jumping to solutions, spend more time in the Discover phase: interview three to five users and capture their exact words about the problem.",
	"Consider reframing the problem with a 'How might we' statement. It keeps the team focused on the user need instead of a predetermined feature.",
	"Your persona could use sharper pain points. Ask what the user tried before your product and why it failed them; that gap is where your value lives.",
	"Try a quick dot-voting session on the ideas you have so far, then prototype only the top one. Converging early protects the team's energy.",
	"Map the insight back to your Double Diamond: are you still defining the problem, or already developing a solution? Mixing those phases is the most common source of rework.",
}

// StaticAIProvider answers from a fixed reply set. The reply is chosen by
// hashing the last user message so the same question gets the same answer.
type StaticAIProvider struct{}

func (p *StaticAIProvider) Name() string { return "static" }

func (p *StaticAIProvider) Chat(_ context.Context, messages []ChatMessage) (string, error) {
	var last string
	for _, m := range messages {
		if m.Role == "user" {
			last = m.Content
		}
	}

	h := fnv.New32a()
	h.Write([]byte(last))
	return staticReplies[int(h.Sum32())%len(staticReplies)], nil
}
