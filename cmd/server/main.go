package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/advisor"
	"github.com/chatsim/chatsim/internal/api"
	"github.com/chatsim/chatsim/internal/api/handler"
	"github.com/chatsim/chatsim/internal/config"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
	"github.com/chatsim/chatsim/internal/llm/anthropic"
	"github.com/chatsim/chatsim/internal/llm/gemini"
	"github.com/chatsim/chatsim/internal/llm/ollama"
	"github.com/chatsim/chatsim/internal/llm/openai"
	"github.com/chatsim/chatsim/internal/queue"
	"github.com/chatsim/chatsim/internal/repository/postgres"
	"github.com/chatsim/chatsim/internal/repository/redis"
	"github.com/chatsim/chatsim/internal/repository/sqlite"
	"github.com/chatsim/chatsim/internal/service"
)

// repositories groups the storage layer behind the domain interfaces so
// the rest of main does not care which driver backs them
type repositories struct {
	personas    domain.PersonaRepository
	groups      domain.GroupRepository
	simulations domain.SimulationRepository
	messages    domain.MessageRepository
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Msg("Starting chat simulator API server")

	ctx := context.Background()

	// Storage
	var repos repositories
	var readiness []handler.NamedPinger
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		repos = repositories{
			personas:    postgres.NewPersonaRepository(db.Pool),
			groups:      postgres.NewGroupRepository(db.Pool),
			simulations: postgres.NewSimulationRepository(db.Pool),
			messages:    postgres.NewMessageRepository(db.Pool),
		}
		readiness = append(readiness, handler.NamedPinger{Name: "database", Pinger: db})
	default:
		db, err := sqlite.NewDB(ctx, cfg.Database.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		defer db.Close()
		repos = repositories{
			personas:    sqlite.NewPersonaRepository(db),
			groups:      sqlite.NewGroupRepository(db),
			simulations: sqlite.NewSimulationRepository(db),
			messages:    sqlite.NewMessageRepository(db),
		}
		readiness = append(readiness, handler.NamedPinger{Name: "database", Pinger: db})
	}

	// Redis is optional: without it there is no rate limiting and no
	// summary cache, but the server still runs.
	var rateLimiter *redis.RateLimiter
	var summaryCache service.SummaryCache
	if redisClient, err := redis.NewClient(cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, rate limiting and summary cache disabled")
	} else {
		defer redisClient.Close()
		rateLimiter = redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		)
		summaryCache = redis.NewSummaryCache(redisClient)
		readiness = append(readiness, handler.NamedPinger{Name: "redis", Pinger: redisClient})
	}

	// LLM providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)
	registerProviders(llmRouter, cfg.LLM)

	// Services
	queues := queue.NewManager(cfg.Simulation.MaxQueueSize)
	personaService := service.NewPersonaService(
		repos.personas,
		cfg.Simulation.MaxPersonas,
		cfg.Memory.ShortTermLimit,
		cfg.Memory.PromoteThreshold,
	)
	groupService := service.NewGroupService(repos.groups, repos.personas)
	simulationService := service.NewSimulationService(
		repos.simulations,
		repos.personas,
		repos.messages,
		repos.groups,
		queues,
		llmRouter,
		personaService,
		service.SimulationSettings{
			DefaultMaxTurns:  cfg.Simulation.DefaultMaxTurns,
			DefaultTurnDelay: cfg.Simulation.DefaultTurnDelay,
			HistoryWindow:    cfg.Simulation.HistoryWindow,
			Provider:         cfg.LLM.DefaultProvider,
			Temperature:      cfg.LLM.Temperature,
			MaxTokens:        cfg.LLM.MaxTokens,
		},
	)
	chatService := service.NewChatService(
		repos.simulations,
		repos.messages,
		repos.personas,
		queues,
		llmRouter,
		summaryCache,
		cfg.LLM.DefaultProvider,
		cfg.LLM.Temperature,
	)

	adminService := service.NewAdminService(
		repos.personas,
		repos.groups,
		repos.simulations,
		repos.messages,
		queues,
	)

	adviceProvider, err := advisor.New(cfg.Advisor, cfg.Memory, llmRouter)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize advisor")
	}
	advisorService := advisor.NewService(adviceProvider, repos.messages, repos.personas, repos.simulations)

	router := api.NewRouter(cfg, api.Deps{
		Personas:    personaService,
		Groups:      groupService,
		Simulations: simulationService,
		Chat:        chatService,
		Admin:       adminService,
		Advisor:     advisorService,
		LLM:         llmRouter,
		RateLimiter: rateLimiter,
		Readiness:   readiness,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := simulationService.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Turn loops did not stop cleanly")
	}

	log.Info().Msg("Server stopped")
}

func setupLogger(cfg config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func registerProviders(router *llm.Router, cfg config.LLMConfig) {
	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}
	if cfg.OpenAI.APIKey != "" {
		log.Info().Msg("Registering OpenAI provider")
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL))
	}
	if cfg.Anthropic.APIKey != "" {
		log.Info().Msg("Registering Anthropic provider")
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.Gemini.APIKey != "" {
		log.Info().Msg("Registering Gemini provider")
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini.APIKey, cfg.Gemini.Model))
	}
}
