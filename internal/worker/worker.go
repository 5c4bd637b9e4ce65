package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/lifecycle"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/notify"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/utils"
)

var ErrUnknownTask = errors.New("未知的任务类型")

// Repository 是 worker 用到的仓储方法，由 *repository.Repository 实现
type Repository interface {
	GetScheduleByID(id uuid.UUID) (*domain.Schedule, error)
	GetShifts(scheduleID uuid.UUID, start, end *time.Time) ([]*domain.Shift, error)
	CreateShifts(scheduleID uuid.UUID, shifts []*domain.Shift) error
	GetShiftTypesBySchedule(scheduleID uuid.UUID) ([]*domain.ShiftType, error)
	GetApprovedAbsencesForEmployees(employeeIDs []uuid.UUID, start, end time.Time) ([]*domain.Absence, error)
	SaveAllocations(s *domain.Schedule, allocations map[uuid.UUID][]uuid.UUID, ts *domain.ScheduleTimestamp) error
	GetScheduleTrainedEmployees(scheduleID uuid.UUID, active bool) ([]*domain.Employee, error)
	GetAllocatedEmployees(scheduleID uuid.UUID) ([]*domain.Employee, error)
}

// TaskMarker 记录任务状态，由 *tasks.Dispatcher 实现
type TaskMarker interface {
	Mark(task *domain.Task, status domain.TaskStatus, taskErr error) error
}

type Worker struct {
	cfg      *config.Config
	repo     Repository
	marker   TaskMarker
	notifier *notify.Notifier
	now      func() time.Time

	handlers map[string]func(*domain.Task) error
}

func New(cfg *config.Config, repo Repository, marker TaskMarker, notifier *notify.Notifier) *Worker {
	w := &Worker{
		cfg:      cfg,
		repo:     repo,
		marker:   marker,
		notifier: notifier,
		now:      time.Now,
	}

	w.handlers = map[string]func(*domain.Task) error{
		domain.TaskCreateShifts:       w.createShifts,
		domain.TaskCollectPreferences: w.collectPreferences,
		domain.TaskOptimizeSchedule:   w.optimize,
		domain.TaskPublishSchedule:    w.publish,
	}
	return w
}

// Run 消费任务队列直到 ctx 结束或通道关闭
func (w *Worker) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			w.HandleDelivery(msg)
		}
	}
}

// HandleDelivery 成功时 ack，无法识别或执行失败时 nack 且不重新入队
func (w *Worker) HandleDelivery(msg amqp.Delivery) {
	task := &domain.Task{}
	if err := json.Unmarshal(msg.Body, task); err != nil {
		slog.Error("任务反序列化失败", "error", err)
		_ = msg.Nack(false, false)
		return
	}

	handle, ok := w.handlers[task.Name]
	if !ok {
		slog.Error("不支持的任务类型", "task", task.ID, "name", task.Name)
		w.mark(task, domain.TaskStatusFailure, ErrUnknownTask)
		_ = msg.Nack(false, false)
		return
	}

	slog.Info("开始执行任务", "task", task.ID, "name", task.Name)
	w.mark(task, domain.TaskStatusStarted, nil)

	if err := handle(task); err != nil {
		slog.Error("任务执行失败", "task", task.ID, "name", task.Name, "error", err)
		w.mark(task, domain.TaskStatusFailure, err)
		_ = msg.Nack(false, false)
		return
	}

	w.mark(task, domain.TaskStatusSuccess, nil)
	_ = msg.Ack(false)
	slog.Info("任务执行成功", "task", task.ID, "name", task.Name)
}

func (w *Worker) mark(task *domain.Task, status domain.TaskStatus, taskErr error) {
	if err := w.marker.Mark(task, status, taskErr); err != nil {
		slog.Error("无法记录任务状态", "task", task.ID, "status", status, "error", err)
	}
}

func decode[T any](task *domain.Task) (*T, error) {
	payload := new(T)
	if err := json.Unmarshal(task.Payload, payload); err != nil {
		return nil, fmt.Errorf("任务参数不合法: %w", err)
	}
	return payload, nil
}

func (w *Worker) createShifts(task *domain.Task) error {
	payload, err := decode[domain.CreateShiftsPayload](task)
	if err != nil {
		return err
	}

	shifts := make([]*domain.Shift, 0, len(payload.Shifts))
	for _, req := range payload.Shifts {
		shifts = append(shifts, &domain.Shift{
			ScheduleID:        payload.ScheduleID,
			ShiftTypeID:       req.ShiftTypeID,
			Start:             req.Start,
			End:               req.End,
			RequiredEmployees: req.RequiredEmployees,
		})
	}

	return w.repo.CreateShifts(payload.ScheduleID, shifts)
}

func (w *Worker) schedule(task *domain.Task) (*domain.Schedule, error) {
	payload, err := decode[domain.ScheduleTaskPayload](task)
	if err != nil {
		return nil, err
	}
	return w.repo.GetScheduleByID(payload.ScheduleID)
}

func (w *Worker) collectPreferences(task *domain.Task) error {
	s, err := w.schedule(task)
	if err != nil {
		return err
	}

	mailTo, err := w.repo.GetScheduleTrainedEmployees(s.ID, false)
	if err != nil {
		return err
	}
	pushTo, err := w.repo.GetScheduleTrainedEmployees(s.ID, true)
	if err != nil {
		return err
	}

	return w.notifier.CollectPreferences(s, mailTo, pushTo)
}

func (w *Worker) optimize(task *domain.Task) error {
	s, err := w.schedule(task)
	if err != nil {
		return err
	}

	// 排班可能已被回调处理
	if !lifecycle.Can(lifecycle.ActionOptimizationCompleted, s) {
		slog.Warn("排班状态已改变，跳过优化", "schedule", s.ID, "status", s.Status.String())
		return nil
	}

	shifts, err := w.repo.GetShifts(s.ID, nil, nil)
	if err != nil {
		return err
	}
	shiftTypes, err := w.repo.GetShiftTypesBySchedule(s.ID)
	if err != nil {
		return err
	}

	var employeeIDs []uuid.UUID
	for _, st := range shiftTypes {
		for _, id := range st.TrainedEmployeeIDs {
			if !slices.Contains(employeeIDs, id) {
				employeeIDs = append(employeeIDs, id)
			}
		}
	}

	approved, err := w.repo.GetApprovedAbsencesForEmployees(employeeIDs, s.Start, s.End.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	opt := w.cfg.Optimization
	sch, err := scheduler.New(&scheduler.Parameters{
		PopulationSize: opt.PopulationSize,
		MaxGenerations: opt.MaxGenerations,
		CrossoverRate:  opt.CrossoverRate,
		MutationRate:   opt.MutationRate,
		EliteCount:     opt.EliteCount,
		FairnessWeight: opt.FairnessWeight,
	}, shifts, scheduler.BuildCandidates(shifts, shiftTypes, approved))
	if err != nil {
		return err
	}

	allocations, err := sch.Schedule()
	if err != nil {
		return err
	}
	if err := utils.ValidateAllocations(shifts, allocations); err != nil {
		return err
	}

	ts, err := lifecycle.Apply(lifecycle.ActionOptimizationCompleted, s, w.now())
	if err != nil {
		return err
	}

	return w.repo.SaveAllocations(s, allocations, ts)
}

func (w *Worker) publish(task *domain.Task) error {
	s, err := w.schedule(task)
	if err != nil {
		return err
	}

	mailTo, err := w.repo.GetScheduleTrainedEmployees(s.ID, false)
	if err != nil {
		return err
	}
	pushTo, err := w.repo.GetAllocatedEmployees(s.ID)
	if err != nil {
		return err
	}

	return w.notifier.SchedulePublished(s, mailTo, pushTo)
}
