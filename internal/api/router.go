package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/chatsim/chatsim/internal/advisor"
	"github.com/chatsim/chatsim/internal/api/handler"
	customMiddleware "github.com/chatsim/chatsim/internal/api/middleware"
	"github.com/chatsim/chatsim/internal/config"
	"github.com/chatsim/chatsim/internal/llm"
	"github.com/chatsim/chatsim/internal/repository/redis"
	"github.com/chatsim/chatsim/internal/service"
)

// Deps carries the constructed services the router wires handlers to.
// RateLimiter may be nil when Redis is not configured.
type Deps struct {
	Personas    *service.PersonaService
	Groups      *service.GroupService
	Simulations *service.SimulationService
	Chat        *service.ChatService
	Admin       *service.AdminService
	Advisor     *advisor.Service
	LLM         *llm.Router
	RateLimiter *redis.RateLimiter
	Readiness   []handler.NamedPinger
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	personaHandler := handler.NewPersonaHandler(deps.Personas)
	groupHandler := handler.NewGroupHandler(deps.Groups)
	simulationHandler := handler.NewSimulationHandler(deps.Simulations)
	chatHandler := handler.NewChatHandler(deps.Chat)
	adminHandler := handler.NewAdminHandler(deps.Admin)
	advisorHandler := handler.NewAdvisorHandler(deps.Advisor)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Readiness...))

		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(customMiddleware.NewRateLimitMiddleware(deps.RateLimiter).Limit)
			}

			// LLM providers
			r.Get("/llm-providers", handler.ListLLMProviders(deps.LLM))

			// Persona routes
			r.Route("/personas", func(r chi.Router) {
				r.Get("/", personaHandler.List)
				r.Post("/", personaHandler.Create)

				r.Route("/{personaID}", func(r chi.Router) {
					r.Get("/", personaHandler.Get)
					r.Patch("/", personaHandler.Update)
					r.Delete("/", personaHandler.Delete)

					r.Get("/memory", personaHandler.GetMemory)
					r.Post("/memory", personaHandler.AddMemory)
					r.Post("/memory/consolidate", personaHandler.Consolidate)
				})
			})

			// Group routes
			r.Route("/groups", func(r chi.Router) {
				r.Get("/", groupHandler.List)
				r.Post("/", groupHandler.Create)

				r.Route("/{groupID}", func(r chi.Router) {
					r.Get("/", groupHandler.Get)
					r.Patch("/", groupHandler.Update)
					r.Delete("/", groupHandler.Delete)

					r.Post("/personas/{personaID}", groupHandler.AddPersona)
					r.Delete("/personas/{personaID}", groupHandler.RemovePersona)
				})
			})

			// Simulation routes
			r.Route("/simulations", func(r chi.Router) {
				r.Get("/", simulationHandler.List)
				r.Post("/", simulationHandler.Create)

				r.Route("/{simulationID}", func(r chi.Router) {
					r.Get("/", simulationHandler.Get)
					r.Patch("/", simulationHandler.Update)
					r.Delete("/", simulationHandler.Delete)

					// Lifecycle
					r.Post("/start", simulationHandler.Start)
					r.Post("/pause", simulationHandler.Pause)
					r.Post("/stop", simulationHandler.Stop)

					// Conversation
					r.Get("/messages", chatHandler.Messages)
					r.Post("/messages", chatHandler.SendMessage)
					r.Delete("/messages", chatHandler.ClearMessages)
					r.Get("/messages/recent", chatHandler.Recent)
					r.Get("/queue/stats", chatHandler.QueueStats)
					r.Post("/tldr", chatHandler.TLDR)

					// Advisory
					r.Post("/advice", advisorHandler.Advice)
					r.Post("/analyze", advisorHandler.Analyze)
				})
			})

			// Advisor routes
			r.Route("/advisor", func(r chi.Router) {
				r.Get("/status", advisorHandler.Status)
				r.Get("/history", advisorHandler.History)
				r.Get("/memory", advisorHandler.Memory)
				r.Get("/memory/stats", advisorHandler.MemoryStats)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", adminHandler.Stats)
				r.Post("/clear-messages", adminHandler.ClearMessages)
				r.Post("/clear-all", adminHandler.ClearAll)
			})
		})
	})

	return r
}
