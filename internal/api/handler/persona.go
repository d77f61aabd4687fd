package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/service"
)

// PersonaHandler handles persona endpoints
type PersonaHandler struct {
	personaService *service.PersonaService
}

// NewPersonaHandler creates a new persona handler
func NewPersonaHandler(personaService *service.PersonaService) *PersonaHandler {
	return &PersonaHandler{personaService: personaService}
}

// Create handles persona creation
func (h *PersonaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.PersonaCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	persona, err := h.personaService.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, persona)
}

// List handles listing personas, optionally filtered to active ones
func (h *PersonaHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	personas, err := h.personaService.List(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, personas)
}

// Get handles getting a persona by ID
func (h *PersonaHandler) Get(w http.ResponseWriter, r *http.Request) {
	persona, err := h.personaService.Get(r.Context(), chi.URLParam(r, "personaID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, persona)
}

// Update handles updating a persona
func (h *PersonaHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input domain.PersonaUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	persona, err := h.personaService.Update(r.Context(), chi.URLParam(r, "personaID"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, persona)
}

// Delete handles deleting a persona
func (h *PersonaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.personaService.Delete(r.Context(), chi.URLParam(r, "personaID")); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// GetMemory returns both memory tiers of a persona
func (h *PersonaHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	memory, err := h.personaService.GetMemory(r.Context(), chi.URLParam(r, "personaID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, memory)
}

type memoryAddRequest struct {
	Kind       domain.MemoryKind `json:"kind" validate:"required,oneof=short_term long_term"`
	Content    string            `json:"content" validate:"required,min=1"`
	Importance float64           `json:"importance" validate:"gte=0,lte=1"`
}

// AddMemory records a memory entry for a persona
func (h *PersonaHandler) AddMemory(w http.ResponseWriter, r *http.Request) {
	var input memoryAddRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	personaID := chi.URLParam(r, "personaID")
	if err := h.personaService.AddMemory(r.Context(), personaID, input.Kind, input.Content, input.Importance); err != nil {
		writeServiceError(w, err)
		return
	}

	memory, err := h.personaService.GetMemory(r.Context(), personaID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, memory)
}

// Consolidate forces a memory consolidation pass for a persona
func (h *PersonaHandler) Consolidate(w http.ResponseWriter, r *http.Request) {
	personaID := chi.URLParam(r, "personaID")
	if err := h.personaService.Consolidate(r.Context(), personaID); err != nil {
		writeServiceError(w, err)
		return
	}

	memory, err := h.personaService.GetMemory(r.Context(), personaID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, memory)
}
