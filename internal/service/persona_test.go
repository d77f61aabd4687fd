package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chatsim/chatsim/internal/domain"
)

func newPersonaService(repo *MockPersonaRepository) *PersonaService {
	return NewPersonaService(repo, 3, 10, 0.7)
}

func TestPersonaCreate_AssignsDefaults(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	repo.On("Count", mock.Anything).Return(0, nil)
	repo.On("GetByName", mock.Anything, "Ada").Return(nil, domain.ErrNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Persona")).Return(nil)

	persona, err := svc.Create(context.Background(), PersonaCreate{
		Name:         "Ada",
		SystemPrompt: "You are Ada.",
	})
	assert.NoError(t, err)
	assert.True(t, persona.IsActive)
	assert.Equal(t, domain.PersonaTypeUser, persona.Type)
	assert.Regexp(t, `^persona_[0-9a-f]{8}$`, persona.ID)
}

func TestPersonaCreate_RejectsDuplicateName(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	repo.On("Count", mock.Anything).Return(1, nil)
	repo.On("GetByName", mock.Anything, "Ada").Return(activePersona("p1", "Ada"), nil)

	_, err := svc.Create(context.Background(), PersonaCreate{Name: "Ada", SystemPrompt: "x"})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}

func TestPersonaCreate_EnforcesLimit(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	repo.On("Count", mock.Anything).Return(3, nil)

	_, err := svc.Create(context.Background(), PersonaCreate{Name: "Dee", SystemPrompt: "x"})
	assert.ErrorIs(t, err, domain.ErrPersonaLimit)
}

func TestPersonaUpdate_PartialFields(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	existing := activePersona("p1", "Ada")
	repo.On("Get", mock.Anything, "p1").Return(existing, nil)
	repo.On("GetMemory", mock.Anything, "p1").Return(&domain.PersonaMemory{}, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Persona")).Return(nil)

	inactive := false
	updated, err := svc.Update(context.Background(), "p1", domain.PersonaUpdate{IsActive: &inactive})
	assert.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Ada", updated.Name)
}

func TestAddMemory_ConsolidatesWhenWindowOverflows(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	// 11 short-term entries, the oldest important enough to promote
	memory := &domain.PersonaMemory{}
	for i := 0; i < 11; i++ {
		importance := 0.5
		if i == 0 {
			importance = 0.9
		}
		memory.ShortTerm = append(memory.ShortTerm, domain.MemoryEntry{
			Content:    fmt.Sprintf("entry %d", i),
			Importance: importance,
			Timestamp:  time.Now().UTC(),
		})
	}

	repo.On("AddMemory", mock.Anything, "p1", domain.MemoryShortTerm, mock.Anything).Return(nil)
	repo.On("GetMemory", mock.Anything, "p1").Return(memory, nil)

	var replaced *domain.PersonaMemory
	repo.On("ReplaceMemory", mock.Anything, "p1", mock.AnythingOfType("*domain.PersonaMemory")).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).(*domain.PersonaMemory)
		}).Return(nil)

	err := svc.AddMemory(context.Background(), "p1", domain.MemoryShortTerm, "entry 10", 0.5)
	assert.NoError(t, err)
	assert.NotNil(t, replaced)
	assert.Len(t, replaced.ShortTerm, 10)
	assert.Len(t, replaced.LongTerm, 1)
	assert.Equal(t, "entry 0", replaced.LongTerm[0].Content)
	// the window keeps the newest entries
	assert.Equal(t, "entry 1", replaced.ShortTerm[0].Content)
}

func TestAddMemory_LongTermNeverConsolidates(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	repo.On("AddMemory", mock.Anything, "p1", domain.MemoryLongTerm, mock.Anything).Return(nil)

	err := svc.AddMemory(context.Background(), "p1", domain.MemoryLongTerm, "core belief", 0.9)
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "GetMemory", mock.Anything, mock.Anything)
}

func TestConsolidate_NoOpWithinWindow(t *testing.T) {
	repo := new(MockPersonaRepository)
	svc := newPersonaService(repo)

	memory := &domain.PersonaMemory{
		ShortTerm: []domain.MemoryEntry{{Content: "one", Importance: 0.9}},
	}
	repo.On("GetMemory", mock.Anything, "p1").Return(memory, nil)

	assert.NoError(t, svc.Consolidate(context.Background(), "p1"))
	repo.AssertNotCalled(t, "ReplaceMemory", mock.Anything, mock.Anything, mock.Anything)
}
