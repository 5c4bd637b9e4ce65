package tasks

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

type memoryStore struct {
	states map[uuid.UUID]*domain.TaskState
}

func (s *memoryStore) Save(state *domain.TaskState) error {
	s.states[state.ID] = state
	return nil
}

func (s *memoryStore) Load(id uuid.UUID) (*domain.TaskState, error) {
	state, ok := s.states[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return state, nil
}

type fakePublisher struct {
	tasks []*domain.Task
	err   error
}

func (p *fakePublisher) PublishTask(task *domain.Task) error {
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func TestDelay(t *testing.T) {
	store := &memoryStore{states: map[uuid.UUID]*domain.TaskState{}}
	publisher := &fakePublisher{}
	d := NewDispatcher(store, publisher)

	scheduleID := uuid.New()
	id, err := d.Delay(domain.TaskPublishSchedule, domain.ScheduleTaskPayload{ScheduleID: scheduleID})
	require.NoError(t, err)

	state, err := d.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, state.Status)
	assert.Equal(t, domain.TaskPublishSchedule, state.Name)

	require.Len(t, publisher.tasks, 1)
	assert.Equal(t, id, publisher.tasks[0].ID)

	var payload domain.ScheduleTaskPayload
	require.NoError(t, json.Unmarshal(publisher.tasks[0].Payload, &payload))
	assert.Equal(t, scheduleID, payload.ScheduleID)

	require.NoError(t, d.Mark(publisher.tasks[0], domain.TaskStatusFailure, errors.New("boom")))
	state, err = d.Get(id)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailure, state.Status)
	assert.Equal(t, "boom", state.Error)
}

func TestDelayPublishFailure(t *testing.T) {
	d := NewDispatcher(&memoryStore{states: map[uuid.UUID]*domain.TaskState{}}, &fakePublisher{err: errors.New("closed")})

	id, err := d.Delay(domain.TaskOptimizeSchedule, nil)
	assert.Error(t, err)
	assert.Equal(t, uuid.Nil, id)
}

func TestGetUnknownTask(t *testing.T) {
	d := NewDispatcher(&memoryStore{states: map[uuid.UUID]*domain.TaskState{}}, &fakePublisher{})

	_, err := d.Get(uuid.New())
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
