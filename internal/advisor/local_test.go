package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatsim/chatsim/internal/llm"
)

// scriptedProvider returns canned responses in order, then repeats the last
type scriptedProvider struct {
	responses []string
	errs      []error
	calls     int
	requests  []llm.Request
}

func (p *scriptedProvider) Name() string              { return "scripted" }
func (p *scriptedProvider) AvailableModels() []string { return []string{"scripted"} }
func (p *scriptedProvider) DefaultModel() string      { return "scripted" }
func (p *scriptedProvider) IsConfigured() bool        { return true }

func (p *scriptedProvider) Chat(_ context.Context, req llm.Request) (*llm.Response, error) {
	i := p.calls
	p.calls++
	p.requests = append(p.requests, req)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	return &llm.Response{Content: p.responses[i]}, nil
}

type scriptedRouter struct {
	provider llm.Provider
	err      error
}

func (r *scriptedRouter) GetProvider(string) (llm.Provider, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.provider, nil
}

func newLocal(p llm.Provider) *Local {
	return NewLocal(&scriptedRouter{provider: p}, "scripted", 10, 0.7)
}

func TestLocalAdvise_ReturnsModelAnswer(t *testing.T) {
	p := &scriptedProvider{responses: []string{"try shorter turns"}}
	a := newLocal(p)

	advice, err := a.Advise(context.Background(), "how to improve pacing?", "Ada: hello\nBen: hi", 2)
	assert.NoError(t, err)
	assert.Equal(t, "try shorter turns", advice)

	// the exchange lands in short-term memory
	stats, _ := a.MemoryStats(context.Background())
	assert.Equal(t, 1, stats.ShortTermCount)
	assert.Equal(t, 0, stats.LongTermCount)
}

func TestLocalAdvise_SmallContextSkipsInsightExtraction(t *testing.T) {
	p := &scriptedProvider{responses: []string{"advice"}}
	a := newLocal(p)

	_, err := a.Advise(context.Background(), "q", "short transcript", 3)
	assert.NoError(t, err)
	assert.Equal(t, 1, p.calls)
}

func TestLocalAdvise_LargeContextExtractsInsight(t *testing.T) {
	p := &scriptedProvider{responses: []string{"advice", "they keep circling one topic"}}
	a := newLocal(p)

	_, err := a.Advise(context.Background(), "q", "long transcript", 11)
	assert.NoError(t, err)
	assert.Equal(t, 2, p.calls)

	memory, _ := a.MemorySnapshot(context.Background())
	assert.Len(t, memory.LongTerm, 1)
	assert.Equal(t, "they keep circling one topic", memory.LongTerm[0].Content)
}

func TestLocalAdvise_ModelFailureDegradesToApology(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("model down")}, responses: []string{""}}
	a := newLocal(p)

	advice, err := a.Advise(context.Background(), "q", "t", 2)
	assert.NoError(t, err)
	assert.Equal(t, apologyMessage, advice)
}

func TestLocalAdvise_InsightFailureIsSwallowed(t *testing.T) {
	p := &scriptedProvider{
		responses: []string{"advice", ""},
		errs:      []error{nil, errors.New("extraction down")},
	}
	a := newLocal(p)

	advice, err := a.Advise(context.Background(), "q", "t", 20)
	assert.NoError(t, err)
	assert.Equal(t, "advice", advice)

	memory, _ := a.MemorySnapshot(context.Background())
	assert.Empty(t, memory.LongTerm)
}

func TestLocalAdvise_NoProviderDegradesToApology(t *testing.T) {
	a := NewLocal(&scriptedRouter{err: errors.New("not configured")}, "", 10, 0.7)

	advice, err := a.Advise(context.Background(), "q", "t", 2)
	assert.NoError(t, err)
	assert.Equal(t, apologyMessage, advice)
}

func TestLocalMemory_ConsolidatesUnderPersonaPolicy(t *testing.T) {
	p := &scriptedProvider{responses: []string{"advice"}}
	a := newLocal(p)

	// overflow the short-term window with low-importance exchanges
	for i := 0; i < 12; i++ {
		_, err := a.Advise(context.Background(), fmt.Sprintf("question %d", i), "t", 2)
		assert.NoError(t, err)
	}

	stats, _ := a.MemoryStats(context.Background())
	assert.Equal(t, 10, stats.ShortTermCount)
	// 0.5-importance entries are below the promotion threshold
	assert.Equal(t, 0, stats.LongTermCount)
}

func TestLocalSystemPrompt_EmbedsMemorySnippets(t *testing.T) {
	p := &scriptedProvider{responses: []string{"advice"}}
	a := newLocal(p)
	assert.NoError(t, a.StoreInsight(context.Background(), "pacing is too slow", 0.9))

	_, err := a.Advise(context.Background(), "q", "t", 2)
	assert.NoError(t, err)

	system := p.requests[0].Messages[0]
	assert.Equal(t, "system", system.Role)
	assert.True(t, strings.Contains(system.Content, "pacing is too slow"))
}
