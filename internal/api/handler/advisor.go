package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsim/chatsim/internal/advisor"
	"github.com/chatsim/chatsim/internal/api/response"
)

// AdvisorHandler handles global advisory agent endpoints
type AdvisorHandler struct {
	advisorService *advisor.Service
}

// NewAdvisorHandler creates a new advisor handler
func NewAdvisorHandler(advisorService *advisor.Service) *AdvisorHandler {
	return &AdvisorHandler{advisorService: advisorService}
}

type adviceRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

// Advice answers a question about a simulation's conversation
func (h *AdvisorHandler) Advice(w http.ResponseWriter, r *http.Request) {
	var input adviceRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	advice, err := h.advisorService.Advice(r.Context(), chi.URLParam(r, "simulationID"), input.Question)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, advice)
}

// Analyze breaks down a simulation's conversation structure
func (h *AdvisorHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.advisorService.Analyze(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, analysis)
}

// History returns the advisor's recent query log
func (h *AdvisorHandler) History(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.advisorService.History(queryInt(r, "limit", 10)))
}

// Status reports which advisory implementation is active
func (h *AdvisorHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.advisorService.Status())
}

// MemoryStats reports the advisor's memory tier sizes
func (h *AdvisorHandler) MemoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.advisorService.MemoryStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, stats)
}

// Memory returns the advisor's memory content
func (h *AdvisorHandler) Memory(w http.ResponseWriter, r *http.Request) {
	memory, err := h.advisorService.Memory(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, memory)
}
