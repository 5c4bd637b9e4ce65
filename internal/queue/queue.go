package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/domain"
)

// Channel 是 *amqp.Channel 中发布消息所需的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	cfg *config.Config
	ch  Channel
}

func NewPublisher(cfg *config.Config, ch Channel) *Publisher {
	return &Publisher{
		cfg: cfg,
		ch:  ch,
	}
}

// DeclareQueues 声明本服务会用到的所有持久化队列
func DeclareQueues(ch *amqp.Channel, cfg *config.Config) error {
	queues := []string{
		cfg.RabbitMQ.EmailQueue,
		cfg.RabbitMQ.NotificationQueue,
		cfg.RabbitMQ.TaskQueue,
		cfg.RabbitMQ.OptimizationQueue,
	}

	for _, name := range queues {
		if _, err := ch.QueueDeclare(
			name,
			true,
			false,
			false,
			false,
			nil,
		); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(p.cfg.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (p *Publisher) PublishMail(msg *domain.MailMessage) error {
	return p.publish(p.cfg.RabbitMQ.EmailQueue, msg)
}

func (p *Publisher) PublishNotification(n *domain.Notification) error {
	if len(n.Recipients) == 0 {
		return nil
	}
	return p.publish(p.cfg.RabbitMQ.NotificationQueue, n)
}

func (p *Publisher) PublishTask(task *domain.Task) error {
	return p.publish(p.cfg.RabbitMQ.TaskQueue, task)
}

func (p *Publisher) PublishOptimization(req *domain.OptimizationRequest) error {
	return p.publish(p.cfg.RabbitMQ.OptimizationQueue, req)
}
