package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/chatsim/chatsim/internal/domain"
	"github.com/chatsim/chatsim/internal/queue"
)

type adminFixture struct {
	personaRepo *MockPersonaRepository
	groupRepo   *MockGroupRepository
	simRepo     *MockSimulationRepository
	messageRepo *MockMessageRepository
	queues      *queue.Manager
	svc         *AdminService
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		personaRepo: new(MockPersonaRepository),
		groupRepo:   new(MockGroupRepository),
		simRepo:     new(MockSimulationRepository),
		messageRepo: new(MockMessageRepository),
		queues:      queue.NewManager(100),
	}
	f.svc = NewAdminService(f.personaRepo, f.groupRepo, f.simRepo, f.messageRepo, f.queues)
	return f
}

func TestAdminStats_CountsAcrossEntities(t *testing.T) {
	f := newAdminFixture()

	f.personaRepo.On("Count", mock.Anything).Return(3, nil)
	f.groupRepo.On("List", mock.Anything, false).Return([]domain.Group{{ID: "group_1"}}, nil)
	f.simRepo.On("List", mock.Anything).Return([]domain.Simulation{{ID: "sim_1"}, {ID: "sim_2"}}, nil)
	f.messageRepo.On("Count", mock.Anything, "sim_1").Return(5, nil)
	f.messageRepo.On("Count", mock.Anything, "sim_2").Return(2, nil)

	stats, err := f.svc.Stats(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 3, stats.Personas)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, 2, stats.Simulations)
	assert.Equal(t, 7, stats.Messages)
}

func TestAdminClearMessages_KeepsPersonasAndGroups(t *testing.T) {
	f := newAdminFixture()

	f.simRepo.On("List", mock.Anything).Return([]domain.Simulation{{ID: "sim_1"}}, nil)
	f.messageRepo.On("DeleteBySession", mock.Anything, "sim_1").Return(4, nil)
	f.simRepo.On("Delete", mock.Anything, "sim_1").Return(nil)

	f.queues.AddCompleted("sim_1", domain.Message{ID: "msg_1", SessionID: "sim_1"})

	counts, err := f.svc.ClearMessages(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Simulations)
	assert.Equal(t, 4, counts.Messages)
	assert.Equal(t, 0, counts.Personas)

	// the session queue goes with its simulation
	assert.Equal(t, 0, f.queues.Stats("sim_1").CompletedCount)
	f.personaRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.groupRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAdminClearAll_WipesEverything(t *testing.T) {
	f := newAdminFixture()

	f.simRepo.On("List", mock.Anything).Return([]domain.Simulation{{ID: "sim_1"}}, nil)
	f.messageRepo.On("DeleteBySession", mock.Anything, "sim_1").Return(6, nil)
	f.simRepo.On("Delete", mock.Anything, "sim_1").Return(nil)

	f.groupRepo.On("List", mock.Anything, false).Return([]domain.Group{{ID: "group_1"}}, nil)
	f.groupRepo.On("Delete", mock.Anything, "group_1").Return(nil)

	f.personaRepo.On("List", mock.Anything, false).Return([]domain.Persona{{ID: "persona_1"}}, nil)
	f.personaRepo.On("GetMemory", mock.Anything, "persona_1").Return(&domain.PersonaMemory{
		ShortTerm: []domain.MemoryEntry{{Content: "a"}},
		LongTerm:  []domain.MemoryEntry{{Content: "b"}, {Content: "c"}},
	}, nil)
	f.personaRepo.On("Delete", mock.Anything, "persona_1").Return(nil)

	counts, err := f.svc.ClearAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, counts.Simulations)
	assert.Equal(t, 6, counts.Messages)
	assert.Equal(t, 1, counts.Groups)
	assert.Equal(t, 1, counts.Personas)
	assert.Equal(t, 3, counts.Memories)
}
