package handler

import (
	"net/http"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/service"
)

// AdminHandler handles system maintenance endpoints
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// Stats returns system-wide entity counts
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, stats)
}

// ClearMessages deletes all simulations and messages, keeping personas
// and groups
func (h *AdminHandler) ClearMessages(w http.ResponseWriter, r *http.Request) {
	counts, err := h.adminService.ClearMessages(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"message": "messages and simulations cleared",
		"deleted": counts,
	})
}

// ClearAll wipes every entity in the system
func (h *AdminHandler) ClearAll(w http.ResponseWriter, r *http.Request) {
	counts, err := h.adminService.ClearAll(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, map[string]any{
		"message": "all data cleared",
		"deleted": counts,
	})
}
