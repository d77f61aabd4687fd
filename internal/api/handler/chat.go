package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/llm"
	"github.com/chatsim/chatsim/internal/service"
)

// ChatHandler handles conversation endpoints for a simulation
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// SendMessage injects a user message into a simulation's conversation
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var input sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	msg, err := h.chatService.SendMessage(r.Context(), chi.URLParam(r, "simulationID"), input.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, msg)
}

// Messages returns a simulation's conversation history with pagination
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	messages, total, err := h.chatService.Messages(r.Context(), chi.URLParam(r, "simulationID"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"messages": messages,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Recent returns the latest delivered messages, draining pending queue
// entries first
func (h *ChatHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)

	messages, err := h.chatService.Recent(r.Context(), chi.URLParam(r, "simulationID"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, messages)
}

// ClearMessages deletes a simulation's conversation history
func (h *ChatHandler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.chatService.ClearMessages(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"deleted": deleted,
	})
}

// QueueStats returns the in-memory queue depths for a simulation
func (h *ChatHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.chatService.QueueStats(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, stats)
}

type tldrRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=text video"`
}

// TLDR generates or serves a cached conversation summary
func (h *ChatHandler) TLDR(w http.ResponseWriter, r *http.Request) {
	var input tldrRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			response.BadRequest(w, "invalid request body")
			return
		}
		if err := validate.Struct(input); err != nil {
			response.BadRequest(w, err.Error())
			return
		}
	}

	summary, err := h.chatService.TLDR(r.Context(), chi.URLParam(r, "simulationID"), llm.SummaryFormat(input.Format))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, summary)
}

// queryInt parses an integer query parameter, falling back on a default
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
