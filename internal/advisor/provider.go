// Package advisor implements the global advisory agent: a best-effort
// analyzer with its own rolling memory, independent of any persona's.
// Two providers exist — a local in-process one and a remote stateful
// agent — selected at startup by configuration.
package advisor

import (
	"context"
	"fmt"

	"github.com/chatsim/chatsim/internal/config"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
)

// Fallback advice when the underlying model call fails. Advisory output is
// best-effort; callers get this instead of an error.
const apologyMessage = "I apologize, but I'm unable to provide advice right now. Please try again in a moment."

// insight extraction only happens when there is enough context to mine
const insightContextThreshold = 10

// MemoryStats summarizes the advisor's memory tiers
type MemoryStats struct {
	ShortTermCount int    `json:"short_term_count"`
	LongTermCount  int    `json:"long_term_count"`
	Mode           string `json:"mode"`
}

// AdviceProvider is the capability interface behind the advisory agent.
// Implementations keep their own rolling memory; Advise never returns a
// model failure to the caller, it degrades to a fixed message.
type AdviceProvider interface {
	// Mode identifies the implementation ("local" or "remote")
	Mode() string

	// Advise produces advice for a question over a session transcript.
	// messageCount is the size of the analyzed context; large contexts
	// additionally feed the advisor's long-term memory.
	Advise(ctx context.Context, question, transcript string, messageCount int) (string, error)

	// StoreInsight records a compact observation in long-term memory
	StoreInsight(ctx context.Context, insight string, importance float64) error

	// MemoryStats reports memory tier sizes
	MemoryStats(ctx context.Context) (*MemoryStats, error)

	// MemorySnapshot returns the advisor's current memory content
	MemorySnapshot(ctx context.Context) (*domain.PersonaMemory, error)
}

// ProviderRouter resolves LLM providers by name
type ProviderRouter interface {
	GetProvider(name string) (llm.Provider, error)
}

// New selects the advice provider implementation from configuration
func New(cfg config.AdvisorConfig, memCfg config.MemoryConfig, router ProviderRouter) (AdviceProvider, error) {
	switch cfg.Mode {
	case "", "local":
		return NewLocal(router, cfg.Model, memCfg.ShortTermLimit, memCfg.PromoteThreshold), nil
	case "remote":
		return NewRemote(cfg), nil
	default:
		return nil, fmt.Errorf("unknown advisor mode: %s", cfg.Mode)
	}
}
