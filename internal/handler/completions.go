package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/branchline-ai/conversation-tree/pkg/logger"
)

// CompletionHandler serves an OpenAI-compatible chat completion
// endpoint. Responses are canned; the endpoint exists so clients built
// against the OpenAI wire format can target this API during
// development.
type CompletionHandler struct {
	logger *logger.Logger
}

// NewCompletionHandler creates a new completion handler.
func NewCompletionHandler(log *logger.Logger) *CompletionHandler {
	return &CompletionHandler{logger: log}
}

// Create handles POST /v1/chat/completions
func (h *CompletionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := openai.ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-%.8s", uuid.New().String()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []openai.ChatCompletionChoice{
			{
				Index: 0,
				Message: openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: "This is a mock response for testing.",
				},
				FinishReason: openai.FinishReasonStop,
			},
		},
	}
	writeJSON(w, http.StatusOK, resp)
}
