package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsim/chatsim/internal/api/handler"
	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/service"
)

// memPersonaRepo is a minimal in-memory PersonaRepository for handler tests
type memPersonaRepo struct {
	personas map[string]*domain.Persona
}

func newMemPersonaRepo() *memPersonaRepo {
	return &memPersonaRepo{personas: make(map[string]*domain.Persona)}
}

func (r *memPersonaRepo) Create(_ context.Context, p *domain.Persona) error {
	r.personas[p.ID] = p
	return nil
}

func (r *memPersonaRepo) Get(_ context.Context, id string) (*domain.Persona, error) {
	p, ok := r.personas[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *memPersonaRepo) GetByName(_ context.Context, name string) (*domain.Persona, error) {
	for _, p := range r.personas {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memPersonaRepo) List(_ context.Context, activeOnly bool) ([]domain.Persona, error) {
	var out []domain.Persona
	for _, p := range r.personas {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *memPersonaRepo) Count(_ context.Context) (int, error) {
	return len(r.personas), nil
}

func (r *memPersonaRepo) Update(_ context.Context, p *domain.Persona) error {
	if _, ok := r.personas[p.ID]; !ok {
		return domain.ErrNotFound
	}
	r.personas[p.ID] = p
	return nil
}

func (r *memPersonaRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.personas[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.personas, id)
	return nil
}

func (r *memPersonaRepo) AddMemory(_ context.Context, personaID string, kind domain.MemoryKind, entry domain.MemoryEntry) error {
	p, ok := r.personas[personaID]
	if !ok {
		return domain.ErrNotFound
	}
	if kind == domain.MemoryLongTerm {
		p.Memory.LongTerm = append(p.Memory.LongTerm, entry)
	} else {
		p.Memory.ShortTerm = append(p.Memory.ShortTerm, entry)
	}
	return nil
}

func (r *memPersonaRepo) GetMemory(_ context.Context, personaID string) (*domain.PersonaMemory, error) {
	p, ok := r.personas[personaID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p.Memory, nil
}

func (r *memPersonaRepo) ReplaceMemory(_ context.Context, personaID string, memory *domain.PersonaMemory) error {
	p, ok := r.personas[personaID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Memory = *memory
	return nil
}

func newPersonaRouter(repo domain.PersonaRepository) http.Handler {
	h := handler.NewPersonaHandler(service.NewPersonaService(repo, 20, 10, 0.7))
	r := chi.NewRouter()
	r.Post("/personas", h.Create)
	r.Get("/personas/{personaID}", h.Get)
	r.Get("/personas/{personaID}/memory", h.GetMemory)
	r.Post("/personas/{personaID}/memory", h.AddMemory)
	return r
}

func makeJSONRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope
}

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])

	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", data["status"])
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestReadyCheck_ReportsFailingDependency(t *testing.T) {
	ready := handler.ReadyCheck(
		handler.NamedPinger{Name: "database", Pinger: stubPinger{}},
		handler.NamedPinger{Name: "redis", Pinger: stubPinger{err: errors.New("down")}},
	)

	rec := httptest.NewRecorder()
	ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "redis not ready", envelope["error"])
}

func TestReadyCheck_AllDependenciesHealthy(t *testing.T) {
	ready := handler.ReadyCheck(
		handler.NamedPinger{Name: "database", Pinger: stubPinger{}},
	)

	rec := httptest.NewRecorder()
	ready(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPersonaCreate_ReturnsCreatedPersona(t *testing.T) {
	router := newPersonaRouter(newMemPersonaRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, makeJSONRequest(http.MethodPost, "/personas", map[string]any{
		"name":          "Ada",
		"system_prompt": "You are Ada.",
	}))

	assert.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ada", data["name"])
	assert.Equal(t, true, data["is_active"])
}

func TestPersonaCreate_RejectsMissingFields(t *testing.T) {
	router := newPersonaRouter(newMemPersonaRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, makeJSONRequest(http.MethodPost, "/personas", map[string]any{
		"name": "Ada",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPersonaCreate_DuplicateNameConflicts(t *testing.T) {
	router := newPersonaRouter(newMemPersonaRepo())

	create := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, makeJSONRequest(http.MethodPost, "/personas", map[string]any{
			"name":          "Ada",
			"system_prompt": "You are Ada.",
		}))
		return rec
	}

	assert.Equal(t, http.StatusCreated, create().Code)
	assert.Equal(t, http.StatusConflict, create().Code)
}

func TestPersonaGet_UnknownIDIsNotFound(t *testing.T) {
	router := newPersonaRouter(newMemPersonaRepo())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/personas/persona_missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPersonaAddMemory_ValidatesTier(t *testing.T) {
	repo := newMemPersonaRepo()
	repo.personas["persona_ab12cd34"] = &domain.Persona{
		ID:       "persona_ab12cd34",
		Name:     "Ada",
		IsActive: true,
	}
	router := newPersonaRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, makeJSONRequest(http.MethodPost, "/personas/persona_ab12cd34/memory", map[string]any{
		"kind":       "medium_term",
		"content":    "remember this",
		"importance": 0.5,
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPersonaAddMemory_RecordsEntry(t *testing.T) {
	repo := newMemPersonaRepo()
	repo.personas["persona_ab12cd34"] = &domain.Persona{
		ID:       "persona_ab12cd34",
		Name:     "Ada",
		IsActive: true,
	}
	router := newPersonaRouter(repo)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, makeJSONRequest(http.MethodPost, "/personas/persona_ab12cd34/memory", map[string]any{
		"kind":       "long_term",
		"content":    "prefers short answers",
		"importance": 0.9,
	}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.personas["persona_ab12cd34"].Memory.LongTerm, 1)
	assert.Equal(t, "prefers short answers", repo.personas["persona_ab12cd34"].Memory.LongTerm[0].Content)
}
