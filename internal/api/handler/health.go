package handler

import (
	"context"
	"net/http"

	"github.com/chatsim/chatsim/internal/api/response"
	"github.com/chatsim/chatsim/internal/llm"
)

// Pinger is anything whose connectivity the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// NamedPinger pairs a dependency name with its connectivity check
type NamedPinger struct {
	Name   string
	Pinger Pinger
}

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including dependency connectivity
func ReadyCheck(deps ...NamedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, dep := range deps {
			if err := dep.Pinger.Ping(r.Context()); err != nil {
				response.Error(w, http.StatusServiceUnavailable, dep.Name+" not ready")
				return
			}
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns the registered LLM providers
func ListLLMProviders(router *llm.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]any{
			"providers":        router.GetProvidersInfo(),
			"default_provider": router.DefaultProvider(),
		})
	}
}
