// Package handler contains the HTTP handlers for the REST API. Handlers
// decode and validate input, delegate to services and map domain errors
// onto HTTP statuses.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/service"
)

var validate = validator.New()

// writeServiceError maps service and domain errors to HTTP statuses.
// Anything unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		response.Conflict(w, err.Error())
	case errors.Is(err, domain.ErrPersonaLimit),
		errors.Is(err, service.ErrNoPersonas):
		response.BadRequest(w, err.Error())
	case errors.Is(err, service.ErrAlreadyRunning),
		errors.Is(err, service.ErrNotRunning),
		errors.Is(err, service.ErrFinished),
		errors.Is(err, service.ErrInterruptionDisabled):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w, err.Error())
	}
}
