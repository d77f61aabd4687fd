package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatsim/chatsim/internal/config"
	"github.com/chatsim/chatsim/internal/domain"
)

// Remote delegates the advisory agent to a stateful agent service. The
// remote side owns the agent's conversational memory; only archival
// (long-term) entries are written explicitly. Like the local provider,
// failures degrade to the fixed apology message.
type Remote struct {
	baseURL   string
	apiKey    string
	agentName string
	client    *http.Client

	mu      sync.Mutex
	agentID string
}

// NewRemote creates the remote advice provider
func NewRemote(cfg config.AdvisorConfig) *Remote {
	return &Remote{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		agentName: cfg.AgentName,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Mode identifies the implementation
func (a *Remote) Mode() string {
	return "remote"
}

type remoteAgent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type remoteMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type remoteMessageResponse struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

type remoteArchivalEntry struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Advise sends the question and transcript to the remote agent. The agent
// keeps its own memory across calls, so no explicit consolidation happens
// here.
func (a *Remote) Advise(ctx context.Context, question, transcript string, messageCount int) (string, error) {
	agentID, err := a.ensureAgent(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("remote advisor unavailable")
		return apologyMessage, nil
	}

	prompt := fmt.Sprintf("Conversation:\n%s\n\nQuestion: %s", transcript, question)
	var resp remoteMessageResponse
	err = a.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/agents/%s/messages", agentID),
		remoteMessageRequest{Role: "user", Content: prompt},
		&resp,
	)
	if err != nil {
		log.Warn().Err(err).Msg("remote advice call failed")
		return apologyMessage, nil
	}

	for i := len(resp.Messages) - 1; i >= 0; i-- {
		if resp.Messages[i].Role == "assistant" && resp.Messages[i].Content != "" {
			return resp.Messages[i].Content, nil
		}
	}
	return apologyMessage, nil
}

// StoreInsight writes an archival memory entry on the remote agent
func (a *Remote) StoreInsight(ctx context.Context, insight string, _ float64) error {
	agentID, err := a.ensureAgent(ctx)
	if err != nil {
		return err
	}
	return a.do(ctx, http.MethodPost,
		fmt.Sprintf("/v1/agents/%s/archival_memory", agentID),
		map[string]string{"text": insight},
		nil,
	)
}

// MemoryStats reports the remote agent's archival memory size. The remote
// service does not expose a short-term tier.
func (a *Remote) MemoryStats(ctx context.Context) (*MemoryStats, error) {
	memory, err := a.MemorySnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &MemoryStats{
		LongTermCount: len(memory.LongTerm),
		Mode:          "remote",
	}, nil
}

// MemorySnapshot returns the remote agent's archival memory as long-term
// entries
func (a *Remote) MemorySnapshot(ctx context.Context) (*domain.PersonaMemory, error) {
	agentID, err := a.ensureAgent(ctx)
	if err != nil {
		return nil, err
	}

	var entries []remoteArchivalEntry
	if err := a.do(ctx, http.MethodGet,
		fmt.Sprintf("/v1/agents/%s/archival_memory", agentID), nil, &entries,
	); err != nil {
		return nil, err
	}

	memory := &domain.PersonaMemory{}
	for _, e := range entries {
		memory.LongTerm = append(memory.LongTerm, domain.MemoryEntry{
			Content:   e.Text,
			Timestamp: e.CreatedAt,
		})
	}
	return memory, nil
}

// ensureAgent resolves (and caches) the named agent's id, creating the
// agent on the remote service if it does not exist yet.
func (a *Remote) ensureAgent(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.agentID != "" {
		id := a.agentID
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	var agents []remoteAgent
	if err := a.do(ctx, http.MethodGet, "/v1/agents", nil, &agents); err != nil {
		return "", fmt.Errorf("failed to list agents: %w", err)
	}

	var id string
	for _, agent := range agents {
		if agent.Name == a.agentName {
			id = agent.ID
			break
		}
	}
	if id == "" {
		var created remoteAgent
		if err := a.do(ctx, http.MethodPost, "/v1/agents",
			map[string]string{"name": a.agentName}, &created,
		); err != nil {
			return "", fmt.Errorf("failed to create agent: %w", err)
		}
		id = created.ID
	}

	a.mu.Lock()
	a.agentID = id
	a.mu.Unlock()
	return id, nil
}

func (a *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("advisor service returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
