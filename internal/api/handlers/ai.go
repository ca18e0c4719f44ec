package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dttools/internal/core"
	"dttools/internal/external"
	"dttools/internal/types"
	"dttools/internal/usage"
)

// AIChatRequest is the request body for POST /api/ai/chat.
type AIChatRequest struct {
	Messages []AIMessage `json:"messages" validate:"required,min=1,max=50,dive"`
}

// AIMessage is a single turn of the conversation.
type AIMessage struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required,max=8000"`
}

// AIChatResponse carries the assistant reply and the caller's updated
// monthly usage.
type AIChatResponse struct {
	Reply      string `json:"reply"`
	UsageCount int    `json:"usageCount"`
}

// AIChatHandler proxies design thinking coaching conversations to the AI
// provider and meters them against the monthly limit.
type AIChatHandler struct {
	provider  external.AIProvider
	counter   usage.AIChatCounter
	clock     func() time.Time
	validator *core.Validator
	logger    *slog.Logger
}

func NewAIChatHandler(provider external.AIProvider, counter usage.AIChatCounter, clock func() time.Time, v *core.Validator, l *slog.Logger) *AIChatHandler {
	if clock == nil {
		clock = time.Now
	}
	if l == nil {
		l = slog.Default()
	}
	return &AIChatHandler{
		provider:  provider,
		counter:   counter,
		clock:     clock,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the chat route behind the AI chat gate.
func (h *AIChatHandler) RegisterRoutes(r chi.Router, chatGate Middleware) {
	r.With(chatGate).Post("/ai/chat", h.Chat)
}

// Chat handles POST /api/ai/chat. The counter is incremented only after the
// provider answers, so upstream failures never burn quota.
func (h *AIChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	actor, ok := types.GetActor(r.Context())
	if !ok {
		core.Error(w, r, types.NewAppError(types.ErrCodeAuthTokenMissing, "Authentication required", nil))
		return
	}

	var req AIChatRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	messages := make([]external.ChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = external.ChatMessage{Role: m.Role, Content: m.Content}
	}

	reply, err := h.provider.Chat(r.Context(), messages)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "ai chat failed",
			slog.String("user_id", actor.ID),
			slog.String("provider", h.provider.Name()),
			slog.Any("error", err),
		)
		core.Error(w, r, err)
		return
	}

	count, err := h.counter.Increment(r.Context(), actor.ID, h.clock())
	if err != nil {
		// The reply already exists at this point; the miss is logged, not
		// surfaced.
		h.logger.WarnContext(r.Context(), "ai chat counter increment failed",
			slog.String("user_id", actor.ID),
			slog.Any("error", err),
		)
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: AIChatResponse{
		Reply:      reply,
		UsageCount: count,
	}})
}
