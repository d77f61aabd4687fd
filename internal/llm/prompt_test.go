package llm

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/stretchr/testify/assert"
)

func testPersona() *domain.Persona {
	return &domain.Persona{
		ID:           "persona_ab12cd34",
		Name:         "Ada",
		SystemPrompt: "You are Ada, a pragmatic engineer.",
	}
}

func personaMsg(personaID, content string) domain.Message {
	id := personaID
	return domain.Message{
		ID:        domain.NewID("msg"),
		PersonaID: &id,
		Content:   content,
		Role:      domain.RolePersona,
	}
}

func TestBuildPersonaMessages_RoleMapping(t *testing.T) {
	p := testPersona()
	history := []domain.Message{
		personaMsg("persona_other000", "hello there"),
		personaMsg(p.ID, "hi, I'm Ada"),
		{ID: "msg_user0001", Content: "what's the plan?", Role: domain.RoleUser},
	}

	messages := BuildPersonaMessages(p, history, "")

	assert.Len(t, messages, 4)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "You are Ada")
	assert.Contains(t, messages[0].Content, "concise")
	assert.Equal(t, "user", messages[1].Role)
	assert.Equal(t, "assistant", messages[2].Role)
	assert.Equal(t, "user", messages[3].Role)
}

func TestBuildPersonaMessages_WindowsHistory(t *testing.T) {
	p := testPersona()
	var history []domain.Message
	for i := 0; i < 30; i++ {
		history = append(history, personaMsg("persona_other000", fmt.Sprintf("message %d", i)))
	}

	messages := BuildPersonaMessages(p, history, "")

	// system prompt plus the last 20 entries
	assert.Len(t, messages, 21)
	assert.Equal(t, "message 10", messages[1].Content)
	assert.Equal(t, "message 29", messages[20].Content)
}

func TestBuildPersonaSystemPrompt_MemorySnippets(t *testing.T) {
	p := testPersona()
	for i := 0; i < 5; i++ {
		p.Memory.LongTerm = append(p.Memory.LongTerm, domain.MemoryEntry{Content: fmt.Sprintf("fact %d", i)})
	}
	p.Memory.ShortTerm = append(p.Memory.ShortTerm,
		domain.MemoryEntry{Content: "recent one"},
		domain.MemoryEntry{Content: "recent two"},
		domain.MemoryEntry{Content: "recent three"},
	)

	prompt := BuildPersonaSystemPrompt(p, "debate about databases")

	assert.Contains(t, prompt, "Key memories:")
	// only the three most recent long-term entries
	assert.NotContains(t, prompt, "fact 0")
	assert.Contains(t, prompt, "fact 2")
	assert.Contains(t, prompt, "fact 4")
	// only the two most recent short-term entries
	assert.NotContains(t, prompt, "recent one")
	assert.Contains(t, prompt, "recent three")
	assert.Contains(t, prompt, "Context:\ndebate about databases")
}

func TestBuildPersonaSystemPrompt_NoMemory(t *testing.T) {
	prompt := BuildPersonaSystemPrompt(testPersona(), "")
	assert.NotContains(t, prompt, "Key memories:")
	assert.NotContains(t, prompt, "Recent:")
	assert.NotContains(t, prompt, "Context:")
}

func TestBuildSummaryMessages_Formats(t *testing.T) {
	history := []domain.Message{personaMsg("persona_ab12cd34", "let's discuss")}

	text := BuildSummaryMessages(history, SummaryText)
	assert.Len(t, text, 2)
	assert.Contains(t, text[0].Content, "2-3 concise paragraphs")
	assert.Contains(t, text[1].Content, "let's discuss")

	video := BuildSummaryMessages(history, SummaryVideo)
	assert.Contains(t, video[0].Content, "bullet points")
	assert.Contains(t, video[0].Content, "emoji")
}

func TestFormatTranscript(t *testing.T) {
	names := map[string]string{"persona_ab12cd34": "Ada"}
	nameFor := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return "Unknown"
	}

	history := []domain.Message{
		{ID: "msg_1", Content: "kick off", Role: domain.RoleUser},
		personaMsg("persona_ab12cd34", "sounds good"),
		{ID: "msg_2", Content: "simulation started", Role: domain.RoleSystem},
	}

	out := FormatTranscript(history, 0, nameFor)
	lines := strings.Split(out, "\n")
	assert.Equal(t, "User: kick off", lines[0])
	assert.Equal(t, "Ada: sounds good", lines[1])
	assert.Equal(t, "System: simulation started", lines[2])
}

func TestFormatTranscript_Empty(t *testing.T) {
	out := FormatTranscript(nil, 10, func(string) string { return "" })
	assert.Equal(t, "No conversation history available.", out)
}

func TestFormatTranscript_Caps(t *testing.T) {
	var history []domain.Message
	for i := 0; i < 10; i++ {
		history = append(history, personaMsg("persona_ab12cd34", fmt.Sprintf("m%d", i)))
	}
	out := FormatTranscript(history, 3, func(string) string { return "Ada" })
	assert.Equal(t, 3, strings.Count(out, "Ada:"))
	assert.Contains(t, out, "m9")
	assert.NotContains(t, out, "m6")
}
