package llm

import (
	"fmt"
	"strings"

	"github.com/chatsim/chatsim/internal/domain"
)

const (
	// historyWindow bounds how much conversation is replayed to the model
	historyWindow = 20

	conciseDirective = "\n\nIMPORTANT: Keep responses concise (2-3 sentences max). Be precise and direct."
)

// BuildPersonaMessages assembles the chat payload for a persona turn:
// the persona's system prompt enriched with memory snippets, followed by
// the recent conversation with the persona's own messages mapped to the
// assistant role.
func BuildPersonaMessages(persona *domain.Persona, history []domain.Message, context string) []ChatMessage {
	messages := []ChatMessage{
		{Role: "system", Content: BuildPersonaSystemPrompt(persona, context)},
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		role := "user"
		if msg.PersonaID != nil && *msg.PersonaID == persona.ID {
			role = "assistant"
		}
		messages = append(messages, ChatMessage{Role: role, Content: msg.Content})
	}

	return messages
}

// BuildPersonaSystemPrompt combines the persona's behavioral prompt with
// its most recent long-term and short-term memory entries.
func BuildPersonaSystemPrompt(persona *domain.Persona, context string) string {
	parts := []string{persona.SystemPrompt, conciseDirective}

	if snippets := memorySnippets(persona.Memory.LongTerm, 3); snippets != "" {
		parts = append(parts, fmt.Sprintf("\n\nKey memories:\n%s", snippets))
	}
	if snippets := memorySnippets(persona.Memory.ShortTerm, 2); snippets != "" {
		parts = append(parts, fmt.Sprintf("\n\nRecent:\n%s", snippets))
	}
	if context != "" {
		parts = append(parts, fmt.Sprintf("\n\nContext:\n%s", context))
	}

	return strings.Join(parts, "\n")
}

func memorySnippets(entries []domain.MemoryEntry, max int) string {
	if len(entries) == 0 {
		return ""
	}
	if len(entries) > max {
		entries = entries[len(entries)-max:]
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, "- "+e.Content)
	}
	return strings.Join(lines, "\n")
}

// SummaryFormat selects the TLDR style
type SummaryFormat string

const (
	SummaryText  SummaryFormat = "text"
	SummaryVideo SummaryFormat = "video"
)

// BuildSummaryMessages assembles the chat payload for a conversation TLDR
func BuildSummaryMessages(messages []domain.Message, format SummaryFormat) []ChatMessage {
	var lines []string
	for _, msg := range messages {
		author := "system"
		if msg.PersonaID != nil {
			author = *msg.PersonaID
		}
		lines = append(lines, fmt.Sprintf("%s (%s): %s", msg.Role, author, msg.Content))
	}

	var prompt string
	if format == SummaryVideo {
		prompt = "Create a YouTube-style video summary with:\n" +
			"- 3-5 bullet points of key moments\n" +
			"- Each point: emoji + brief insight\n" +
			"- Format: '[Topic]: brief description'\n" +
			"Keep it punchy and engaging like video chapter markers."
	} else {
		prompt = "Summarize the following conversation in 2-3 concise paragraphs.\n" +
			"Focus on:\n" +
			"- Main topics and themes discussed\n" +
			"- Key points or decisions made\n" +
			"- Overall tone and outcome\n\n" +
			"Write a flowing narrative summary, not bullet points.\n" +
			"Be professional and informative."
	}

	return []ChatMessage{
		{Role: "system", Content: prompt},
		{Role: "user", Content: strings.Join(lines, "\n")},
	}
}

// FormatTranscript renders messages as "Speaker: content" lines, resolving
// persona ids to display names through nameFor. At most maxMessages of the
// most recent messages are included.
func FormatTranscript(messages []domain.Message, maxMessages int, nameFor func(string) string) string {
	if len(messages) == 0 {
		return "No conversation history available."
	}
	if maxMessages > 0 && len(messages) > maxMessages {
		messages = messages[len(messages)-maxMessages:]
	}

	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		speaker := "System"
		switch {
		case msg.Role == domain.RoleUser:
			speaker = "User"
		case msg.PersonaID != nil:
			speaker = nameFor(*msg.PersonaID)
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, msg.Content))
	}
	return strings.Join(lines, "\n")
}
