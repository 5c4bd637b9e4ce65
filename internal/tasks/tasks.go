package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

var ErrTaskNotFound = errors.New("TASK_NOT_FOUND")

// Store 保存任务状态
type Store interface {
	Save(state *domain.TaskState) error
	Load(id uuid.UUID) (*domain.TaskState, error)
}

type TaskPublisher interface {
	PublishTask(task *domain.Task) error
}

type RedisStore struct {
	cfg    *config.Config
	client *redis.Client
}

func NewRedisStore(cfg *config.Config, client *redis.Client) *RedisStore {
	return &RedisStore{
		cfg:    cfg,
		client: client,
	}
}

func taskKey(id uuid.UUID) string {
	return fmt.Sprintf("task_%s", id)
}

func (s *RedisStore) Save(state *domain.TaskState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Redis.OperationTimeout)*time.Second)
	defer cancel()

	return s.client.Set(ctx, taskKey(state.ID), data, time.Duration(s.cfg.Redis.TaskExpiration)*time.Second).Err()
}

func (s *RedisStore) Load(id uuid.UUID) (*domain.TaskState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Redis.OperationTimeout)*time.Second)
	defer cancel()

	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	state := &domain.TaskState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	return state, nil
}

type Dispatcher struct {
	store     Store
	publisher TaskPublisher
}

func NewDispatcher(store Store, publisher TaskPublisher) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
	}
}

// Delay 记录任务为 PENDING 后投递到任务队列，返回任务 id
func (d *Dispatcher) Delay(name string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, err
	}

	task := &domain.Task{
		ID:      uuid.New(),
		Name:    name,
		Payload: data,
	}

	if err := d.store.Save(&domain.TaskState{ID: task.ID, Name: name, Status: domain.TaskStatusPending}); err != nil {
		return uuid.Nil, err
	}
	if err := d.publisher.PublishTask(task); err != nil {
		return uuid.Nil, err
	}

	return task.ID, nil
}

func (d *Dispatcher) Get(id uuid.UUID) (*domain.TaskState, error) {
	return d.store.Load(id)
}

// Mark 由 worker 在任务状态变化时调用
func (d *Dispatcher) Mark(task *domain.Task, status domain.TaskStatus, taskErr error) error {
	state := &domain.TaskState{ID: task.ID, Name: task.Name, Status: status}
	if taskErr != nil {
		state.Error = taskErr.Error()
	}
	return d.store.Save(state)
}
