package advisor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
)

const advisorSystemPrompt = "You are a thoughtful meta-advisor observing simulated conversations. " +
	"You give concise, practical advice about conversation dynamics, themes and direction. " +
	"Keep answers short (3-4 sentences max)."

// Local keeps the advisor's memory in-process. Memory follows the same
// short-term window and importance-threshold promotion policy personas use,
// but is wholly separate from any persona's memory.
type Local struct {
	router         ProviderRouter
	model          string
	shortTermLimit int
	promoteAbove   float64

	mu     sync.Mutex
	memory domain.PersonaMemory
}

// NewLocal creates the in-process advice provider
func NewLocal(router ProviderRouter, model string, shortTermLimit int, promoteThreshold float64) *Local {
	return &Local{
		router:         router,
		model:          model,
		shortTermLimit: shortTermLimit,
		promoteAbove:   promoteThreshold,
	}
}

// Mode identifies the implementation
func (a *Local) Mode() string {
	return "local"
}

// Advise produces advice over a transcript. A failed model call degrades
// to a fixed apologetic message; a failed insight extraction is swallowed
// and logged. Neither surfaces to the caller.
func (a *Local) Advise(ctx context.Context, question, transcript string, messageCount int) (string, error) {
	provider, err := a.router.GetProvider("")
	if err != nil {
		log.Error().Err(err).Msg("advisor has no usable provider")
		return apologyMessage, nil
	}

	resp, err := provider.Chat(ctx, llm.Request{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: a.systemPrompt()},
			{Role: "user", Content: fmt.Sprintf("Conversation:\n%s\n\nQuestion: %s", transcript, question)},
		},
		Model:       a.model,
		Temperature: 0.7,
		MaxTokens:   300,
	})
	if err != nil {
		log.Warn().Err(err).Msg("advice generation failed")
		return apologyMessage, nil
	}
	advice := resp.Content

	a.remember(fmt.Sprintf("Advised on: %s", question), 0.5)

	if messageCount > insightContextThreshold {
		if err := a.extractInsight(ctx, provider, transcript); err != nil {
			log.Warn().Err(err).Msg("insight extraction failed")
		}
	}

	return advice, nil
}

// StoreInsight records a compact observation in long-term memory
func (a *Local) StoreInsight(_ context.Context, insight string, importance float64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory.AddLongTerm(insight, importance)
	return nil
}

// MemoryStats reports memory tier sizes
func (a *Local) MemoryStats(_ context.Context) (*MemoryStats, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &MemoryStats{
		ShortTermCount: len(a.memory.ShortTerm),
		LongTermCount:  len(a.memory.LongTerm),
		Mode:           "local",
	}, nil
}

// MemorySnapshot returns a copy of the advisor's memory
func (a *Local) MemorySnapshot(_ context.Context) (*domain.PersonaMemory, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &domain.PersonaMemory{
		ShortTerm: append([]domain.MemoryEntry(nil), a.memory.ShortTerm...),
		LongTerm:  append([]domain.MemoryEntry(nil), a.memory.LongTerm...),
	}, nil
}

// systemPrompt embeds recent memory snippets into the advisor's prompt
func (a *Local) systemPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	var b strings.Builder
	b.WriteString(advisorSystemPrompt)
	if snippets := lastContents(a.memory.LongTerm, 3); len(snippets) > 0 {
		b.WriteString("\n\nEarlier insights:\n- ")
		b.WriteString(strings.Join(snippets, "\n- "))
	}
	if snippets := lastContents(a.memory.ShortTerm, 2); len(snippets) > 0 {
		b.WriteString("\n\nRecent activity:\n- ")
		b.WriteString(strings.Join(snippets, "\n- "))
	}
	return b.String()
}

// extractInsight asks the model for one compact takeaway and stores it
// long-term. Only called for large enough contexts.
func (a *Local) extractInsight(ctx context.Context, provider llm.Provider, transcript string) error {
	resp, err := provider.Chat(ctx, llm.Request{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "Extract ONE concise insight (a single sentence) about the dynamics of this conversation."},
			{Role: "user", Content: transcript},
		},
		Model:       a.model,
		Temperature: 0.3,
		MaxTokens:   80,
	})
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory.AddLongTerm(strings.TrimSpace(resp.Content), 0.8)
	return nil
}

// remember records an exchange short-term and consolidates the window
func (a *Local) remember(content string, importance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.memory.ShortTerm = append(a.memory.ShortTerm, domain.MemoryEntry{
		Content:    content,
		Importance: importance,
		Timestamp:  time.Now().UTC(),
	})
	a.memory.Consolidate(a.shortTermLimit, a.promoteAbove)
}

func lastContents(entries []domain.MemoryEntry, max int) []string {
	if len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}
