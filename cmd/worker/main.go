package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/config"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/notify"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/queue"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/repository"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/tasks"
	"github.com/sysu-ecnc-dev/hr-office/backend/internal/worker"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer pingCancel()
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", "error", err)
		return
	}
	defer conn.Close()

	// 消费和发布使用不同的通道
	consumeCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", "error", err)
		return
	}
	defer consumeCh.Close()

	publishCh, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", "error", err)
		return
	}
	defer publishCh.Close()

	if err := queue.DeclareQueues(consumeCh, cfg); err != nil {
		logger.Error("无法声明队列", "error", err)
		return
	}

	// 每次只取一个任务，优化任务可能比较耗时
	if err := consumeCh.Qos(1, 0, false); err != nil {
		logger.Error("无法设置 QoS", "error", err)
		return
	}

	publisher := queue.NewPublisher(cfg, publishCh)

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer rdb.Close()

	dispatcher := tasks.NewDispatcher(tasks.NewRedisStore(cfg, rdb), publisher)

	/**********************************************
	 * 消费任务
	 **********************************************/
	msgs, err := consumeCh.Consume(
		cfg.RabbitMQ.TaskQueue, // 队列
		"",                     // 消费者标识，由 RabbitMQ 自动分配
		false,                  // 手动确认
		false,                  // 是否独占队列
		false,                  // 必须为 false，RabbitMQ 不支持这个参数
		false,                  // 等待 RabbitMQ 响应
		nil,                    // 额外参数
	)
	if err != nil {
		logger.Error("无法消费消息", "error", err)
		return
	}

	w := worker.New(cfg, repo, dispatcher, notify.New(cfg, publisher))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx, msgs)
	}()

	logger.Info("等待任务...（按 CTRL+C 退出）")
	<-sigChan

	logger.Info("正在关闭 task worker...")
	cancel()
	wg.Wait()
	logger.Info("task worker 已成功关闭")
}
