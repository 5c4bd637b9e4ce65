package worker

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/notify"
)

type fakeRepo struct {
	schedule    *domain.Schedule
	scheduleErr error
	shifts      []*domain.Shift
	shiftTypes  []*domain.ShiftType
	approved    []*domain.Absence
	inactive    []*domain.Employee
	active      []*domain.Employee
	allocated   []*domain.Employee

	created     []*domain.Shift
	allocations map[uuid.UUID][]uuid.UUID
	timestamp   *domain.ScheduleTimestamp
}

func (r *fakeRepo) GetScheduleByID(id uuid.UUID) (*domain.Schedule, error) {
	if r.scheduleErr != nil {
		return nil, r.scheduleErr
	}
	return r.schedule, nil
}

func (r *fakeRepo) GetShifts(scheduleID uuid.UUID, start, end *time.Time) ([]*domain.Shift, error) {
	return r.shifts, nil
}

func (r *fakeRepo) CreateShifts(scheduleID uuid.UUID, shifts []*domain.Shift) error {
	r.created = shifts
	return nil
}

func (r *fakeRepo) GetShiftTypesBySchedule(scheduleID uuid.UUID) ([]*domain.ShiftType, error) {
	return r.shiftTypes, nil
}

func (r *fakeRepo) GetApprovedAbsencesForEmployees(employeeIDs []uuid.UUID, start, end time.Time) ([]*domain.Absence, error) {
	return r.approved, nil
}

func (r *fakeRepo) SaveAllocations(s *domain.Schedule, allocations map[uuid.UUID][]uuid.UUID, ts *domain.ScheduleTimestamp) error {
	r.allocations = allocations
	r.timestamp = ts
	return nil
}

func (r *fakeRepo) GetScheduleTrainedEmployees(scheduleID uuid.UUID, active bool) ([]*domain.Employee, error) {
	if active {
		return r.active, nil
	}
	return r.inactive, nil
}

func (r *fakeRepo) GetAllocatedEmployees(scheduleID uuid.UUID) ([]*domain.Employee, error) {
	return r.allocated, nil
}

type fakeMarker struct {
	statuses []domain.TaskStatus
	lastErr  error
}

func (m *fakeMarker) Mark(task *domain.Task, status domain.TaskStatus, taskErr error) error {
	m.statuses = append(m.statuses, status)
	m.lastErr = taskErr
	return nil
}

type fakePublisher struct {
	mails         []*domain.MailMessage
	notifications []*domain.Notification
}

func (p *fakePublisher) PublishMail(msg *domain.MailMessage) error {
	p.mails = append(p.mails, msg)
	return nil
}

func (p *fakePublisher) PublishNotification(n *domain.Notification) error {
	p.notifications = append(p.notifications, n)
	return nil
}

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type harness struct {
	repo      *fakeRepo
	marker    *fakeMarker
	publisher *fakePublisher
	worker    *Worker
}

func newHarness() *harness {
	cfg := &config.Config{}
	cfg.Frontend.BaseURL = "https://hr.example.com"
	cfg.Optimization.PopulationSize = 20
	cfg.Optimization.MaxGenerations = 30
	cfg.Optimization.CrossoverRate = 0.8
	cfg.Optimization.MutationRate = 0.1
	cfg.Optimization.EliteCount = 2
	cfg.Optimization.FairnessWeight = 0.5

	h := &harness{
		repo:      &fakeRepo{},
		marker:    &fakeMarker{},
		publisher: &fakePublisher{},
	}
	h.worker = New(cfg, h.repo, h.marker, notify.New(cfg, h.publisher))
	h.worker.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

func (h *harness) deliver(t *testing.T, name string, payload any) *fakeAcknowledger {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal(&domain.Task{ID: uuid.New(), Name: name, Payload: data})
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	h.worker.HandleDelivery(amqp.Delivery{Acknowledger: ack, Body: body})
	return ack
}

func newSchedule(status domain.ScheduleStatus) *domain.Schedule {
	return &domain.Schedule{
		ID:             uuid.New(),
		DepartmentName: "客服部",
		Start:          time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC),
		Status:         status,
	}
}

func TestHandleDeliveryRejectsBadMessages(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		h := newHarness()
		ack := &fakeAcknowledger{}
		h.worker.HandleDelivery(amqp.Delivery{Acknowledger: ack, Body: []byte("{")})

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
		assert.Empty(t, h.marker.statuses)
	})

	t.Run("unknown task", func(t *testing.T) {
		h := newHarness()
		ack := h.deliver(t, "schedule.unknown", map[string]string{})

		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
		assert.Equal(t, []domain.TaskStatus{domain.TaskStatusFailure}, h.marker.statuses)
		assert.ErrorIs(t, h.marker.lastErr, ErrUnknownTask)
	})
}

func TestHandleDeliveryFailure(t *testing.T) {
	h := newHarness()
	h.repo.scheduleErr = errors.New("connection refused")

	ack := h.deliver(t, domain.TaskPublishSchedule, &domain.ScheduleTaskPayload{ScheduleID: uuid.New()})

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue)
	assert.Equal(t, []domain.TaskStatus{domain.TaskStatusStarted, domain.TaskStatusFailure}, h.marker.statuses)
	assert.EqualError(t, h.marker.lastErr, "connection refused")
}

func TestCreateShifts(t *testing.T) {
	h := newHarness()
	scheduleID, shiftTypeID := uuid.New(), uuid.New()
	start := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)

	ack := h.deliver(t, domain.TaskCreateShifts, &domain.CreateShiftsPayload{
		ScheduleID: scheduleID,
		Shifts: []domain.ShiftRequest{
			{ShiftTypeID: shiftTypeID, Start: start, End: start.Add(8 * time.Hour), RequiredEmployees: 2},
		},
	})

	assert.True(t, ack.acked)
	assert.Equal(t, []domain.TaskStatus{domain.TaskStatusStarted, domain.TaskStatusSuccess}, h.marker.statuses)
	require.Len(t, h.repo.created, 1)
	assert.Equal(t, scheduleID, h.repo.created[0].ScheduleID)
	assert.Equal(t, shiftTypeID, h.repo.created[0].ShiftTypeID)
	assert.Equal(t, int32(2), h.repo.created[0].RequiredEmployees)
}

func TestOptimize(t *testing.T) {
	h := newHarness()
	s := newSchedule(domain.ScheduleStatusProducingSchedule)
	alice, bob := uuid.New(), uuid.New()
	shiftType := &domain.ShiftType{ID: uuid.New(), TrainedEmployeeIDs: []uuid.UUID{alice, bob}}

	monday := time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC)
	shift1 := &domain.Shift{ID: uuid.New(), ShiftTypeID: shiftType.ID, Start: monday, End: monday.Add(8 * time.Hour), RequiredEmployees: 1}
	shift2 := &domain.Shift{ID: uuid.New(), ShiftTypeID: shiftType.ID, Start: monday.AddDate(0, 0, 1), End: monday.AddDate(0, 0, 1).Add(8 * time.Hour), RequiredEmployees: 1}

	h.repo.schedule = s
	h.repo.shifts = []*domain.Shift{shift1, shift2}
	h.repo.shiftTypes = []*domain.ShiftType{shiftType}
	// bob 周一请假
	h.repo.approved = []*domain.Absence{
		{SubmittedForID: bob, Start: monday.Add(-8 * time.Hour), End: monday.Add(16 * time.Hour)},
	}

	ack := h.deliver(t, domain.TaskOptimizeSchedule, &domain.ScheduleTaskPayload{ScheduleID: s.ID})

	assert.True(t, ack.acked)
	require.NotNil(t, h.repo.timestamp)
	assert.Equal(t, domain.ScheduleStatusReviewingSchedule, h.repo.timestamp.Status)
	assert.Equal(t, domain.ScheduleStatusReviewingSchedule, s.Status)
	assert.NotContains(t, h.repo.allocations[shift1.ID], bob)
	for _, ids := range h.repo.allocations {
		for _, id := range ids {
			assert.True(t, slices.Contains([]uuid.UUID{alice, bob}, id))
		}
	}
}

func TestOptimizeSkipsFinishedSchedule(t *testing.T) {
	h := newHarness()
	h.repo.schedule = newSchedule(domain.ScheduleStatusReviewingSchedule)

	ack := h.deliver(t, domain.TaskOptimizeSchedule, &domain.ScheduleTaskPayload{ScheduleID: h.repo.schedule.ID})

	assert.True(t, ack.acked)
	assert.Nil(t, h.repo.allocations)
	assert.Nil(t, h.repo.timestamp)
}

func TestCollectPreferencesAndPublish(t *testing.T) {
	newcomer := &domain.Employee{ID: uuid.New(), FirstName: "小明", Email: "xm@example.com"}
	regular := &domain.Employee{ID: uuid.New(), FirstName: "小红", Email: "xh@example.com", IsActive: true}

	t.Run("collect preferences", func(t *testing.T) {
		h := newHarness()
		h.repo.schedule = newSchedule(domain.ScheduleStatusCollectingPreference)
		h.repo.inactive = []*domain.Employee{newcomer}
		h.repo.active = []*domain.Employee{regular}

		ack := h.deliver(t, domain.TaskCollectPreferences, &domain.ScheduleTaskPayload{ScheduleID: h.repo.schedule.ID})

		assert.True(t, ack.acked)
		require.Len(t, h.publisher.mails, 1)
		assert.Equal(t, domain.MailCollectPreferences, h.publisher.mails[0].Type)
		assert.Equal(t, newcomer.Email, h.publisher.mails[0].To)
		require.Len(t, h.publisher.notifications, 1)
		assert.Equal(t, []uuid.UUID{regular.ID}, h.publisher.notifications[0].Recipients)
	})

	t.Run("publish", func(t *testing.T) {
		h := newHarness()
		h.repo.schedule = newSchedule(domain.ScheduleStatusPublished)
		h.repo.inactive = []*domain.Employee{newcomer}
		h.repo.allocated = []*domain.Employee{regular, newcomer}

		ack := h.deliver(t, domain.TaskPublishSchedule, &domain.ScheduleTaskPayload{ScheduleID: h.repo.schedule.ID})

		assert.True(t, ack.acked)
		require.Len(t, h.publisher.mails, 1)
		assert.Equal(t, domain.MailSchedulePublished, h.publisher.mails[0].Type)
		require.Len(t, h.publisher.notifications, 1)
		assert.Equal(t, domain.VerbSchedulePublished, h.publisher.notifications[0].Verb)
		assert.ElementsMatch(t, []uuid.UUID{regular.ID, newcomer.ID}, h.publisher.notifications[0].Recipients)
	})
}
