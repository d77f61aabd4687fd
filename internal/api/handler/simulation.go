package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/service"
)

// SimulationHandler handles simulation lifecycle endpoints
type SimulationHandler struct {
	simulationService *service.SimulationService
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(simulationService *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{simulationService: simulationService}
}

// Create handles simulation creation
func (h *SimulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.SimulationCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := validate.Struct(input); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	sim, err := h.simulationService.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.Created(w, sim)
}

// List handles listing simulations
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	sims, err := h.simulationService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, sims)
}

// Get handles getting a simulation by ID
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	sim, err := h.simulationService.Get(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, sim)
}

// Update handles updating a simulation's metadata and config
func (h *SimulationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input domain.SimulationUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	sim, err := h.simulationService.Update(r.Context(), chi.URLParam(r, "simulationID"), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, sim)
}

// Delete handles deleting a simulation
func (h *SimulationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.simulationService.Delete(r.Context(), chi.URLParam(r, "simulationID")); err != nil {
		writeServiceError(w, err)
		return
	}

	response.NoContent(w)
}

// Start launches (or resumes) a simulation's turn loop
func (h *SimulationHandler) Start(w http.ResponseWriter, r *http.Request) {
	sim, err := h.simulationService.Start(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, sim)
}

// Pause suspends a running simulation
func (h *SimulationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	sim, err := h.simulationService.Pause(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, sim)
}

// Stop completes a running or paused simulation
func (h *SimulationHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sim, err := h.simulationService.Stop(r.Context(), chi.URLParam(r, "simulationID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.OK(w, sim)
}
