package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/service"
)

// GroupHandler handles persona group endpoints
type GroupHandler struct {
	groupService *service.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *service.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// Create handles group creation
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.GroupCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	group, err := h.groupService.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, group)
}

// List handles listing groups
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"

	groups, err := h.groupService.List(r.Context(), activeOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, groups)
}

// Get handles getting a group by ID
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupService.Get(r.Context(), chi.URLParam(r, "groupID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, group)
}

// Update handles updating a group
func (h *GroupHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input domain.GroupUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	group, err := h.groupService.Update(r.Context(), chi.URLParam(r, "groupID"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, group)
}

// Delete handles deleting a group
func (h *GroupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.groupService.Delete(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// AddPersona adds a persona to a group
func (h *GroupHandler) AddPersona(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupService.AddPersona(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "personaID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, group)
}

// RemovePersona removes a persona from a group
func (h *GroupHandler) RemovePersona(w http.ResponseWriter, r *http.Request) {
	group, err := h.groupService.RemovePersona(r.Context(),
		chi.URLParam(r, "groupID"), chi.URLParam(r, "personaID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, group)
}
