package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/llm"
)

// MockPersonaRepository mocks the PersonaRepository interface
type MockPersonaRepository struct {
	mock.Mock
}

func (m *MockPersonaRepository) Create(ctx context.Context, persona *domain.Persona) error {
	args := m.Called(ctx, persona)
	return args.Error(0)
}

func (m *MockPersonaRepository) Get(ctx context.Context, id string) (*domain.Persona, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Persona), args.Error(1)
}

func (m *MockPersonaRepository) GetByName(ctx context.Context, name string) (*domain.Persona, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Persona), args.Error(1)
}

func (m *MockPersonaRepository) List(ctx context.Context, activeOnly bool) ([]domain.Persona, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]domain.Persona), args.Error(1)
}

func (m *MockPersonaRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockPersonaRepository) Update(ctx context.Context, persona *domain.Persona) error {
	args := m.Called(ctx, persona)
	return args.Error(0)
}

func (m *MockPersonaRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPersonaRepository) AddMemory(ctx context.Context, personaID string, kind domain.MemoryKind, entry domain.MemoryEntry) error {
	args := m.Called(ctx, personaID, kind, entry)
	return args.Error(0)
}

func (m *MockPersonaRepository) GetMemory(ctx context.Context, personaID string) (*domain.PersonaMemory, error) {
	args := m.Called(ctx, personaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PersonaMemory), args.Error(1)
}

func (m *MockPersonaRepository) ReplaceMemory(ctx context.Context, personaID string, memory *domain.PersonaMemory) error {
	args := m.Called(ctx, personaID, memory)
	return args.Error(0)
}

// MockSimulationRepository mocks the SimulationRepository interface
type MockSimulationRepository struct {
	mock.Mock
}

func (m *MockSimulationRepository) Create(ctx context.Context, sim *domain.Simulation) error {
	args := m.Called(ctx, sim)
	return args.Error(0)
}

func (m *MockSimulationRepository) Get(ctx context.Context, id string) (*domain.Simulation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Simulation), args.Error(1)
}

func (m *MockSimulationRepository) List(ctx context.Context) ([]domain.Simulation, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Simulation), args.Error(1)
}

func (m *MockSimulationRepository) Update(ctx context.Context, sim *domain.Simulation) error {
	args := m.Called(ctx, sim)
	return args.Error(0)
}

func (m *MockSimulationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSimulationRepository) GetStatus(ctx context.Context, id string) (domain.SimulationStatus, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.SimulationStatus), args.Error(1)
}

func (m *MockSimulationRepository) SetStatus(ctx context.Context, id string, status domain.SimulationStatus, startedAt, completedAt *time.Time) error {
	args := m.Called(ctx, id, status, startedAt, completedAt)
	return args.Error(0)
}

func (m *MockSimulationRepository) IncrementMessageCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockMessageRepository mocks the MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockMessageRepository) Get(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, limit, offset)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Recent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	args := m.Called(ctx, sessionID, limit)
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Count(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockMessageRepository) DeleteBySession(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

// MockGroupRepository mocks the GroupRepository interface
type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) Get(ctx context.Context, id string) (*domain.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Group), args.Error(1)
}

func (m *MockGroupRepository) List(ctx context.Context, activeOnly bool) ([]domain.Group, error) {
	args := m.Called(ctx, activeOnly)
	return args.Get(0).([]domain.Group), args.Error(1)
}

func (m *MockGroupRepository) Update(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

func (m *MockGroupRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockGroupRepository) AddPersona(ctx context.Context, groupID, personaID string) error {
	args := m.Called(ctx, groupID, personaID)
	return args.Error(0)
}

func (m *MockGroupRepository) RemovePersona(ctx context.Context, groupID, personaID string) error {
	args := m.Called(ctx, groupID, personaID)
	return args.Error(0)
}

// MockProvider mocks the llm.Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string            { return "mock" }
func (m *MockProvider) AvailableModels() []string { return []string{"mock-model"} }
func (m *MockProvider) DefaultModel() string    { return "mock-model" }
func (m *MockProvider) IsConfigured() bool      { return true }

func (m *MockProvider) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

// stubRouter returns a fixed provider for any name
type stubRouter struct {
	provider llm.Provider
	err      error
}

func (r *stubRouter) GetProvider(name string) (llm.Provider, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.provider, nil
}

// MockSummaryCache mocks the SummaryCache interface
type MockSummaryCache struct {
	mock.Mock
}

func (m *MockSummaryCache) Get(ctx context.Context, sessionID, format string, messageCount int) (string, bool, error) {
	args := m.Called(ctx, sessionID, format, messageCount)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockSummaryCache) Set(ctx context.Context, sessionID, format string, messageCount int, summary string) error {
	args := m.Called(ctx, sessionID, format, messageCount, summary)
	return args.Error(0)
}

func (m *MockSummaryCache) Invalidate(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
