package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/config"
	"resume-coach-go/internal/logger"
)

// ReportJob 报告投递任务，由API发布、投递worker消费
type ReportJob struct {
	Slug        string    `json:"slug"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

// RabbitMQ 提供消息队列功能，承载报告投递任务
type RabbitMQ struct {
	conn         *amqp.Connection
	channelPool  sync.Pool
	publishMutex sync.Mutex
	cfg          *config.RabbitMQConfig
	logger       zerolog.Logger
}

// NewRabbitMQ 创建RabbitMQ客户端并声明报告投递拓扑
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:   conn,
		cfg:    cfg,
		logger: logger.Logger.With().Str("component", "rabbitmq").Logger(),
	}
	mq.channelPool = sync.Pool{
		New: func() interface{} {
			ch, poolErr := conn.Channel()
			if poolErr != nil {
				mq.logger.Error().Err(poolErr).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	if err := mq.ensureReportTopology(); err != nil {
		conn.Close()
		return nil, err
	}

	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	ch := r.channelPool.Get()
	if ch == nil {
		newCh, err := r.conn.Channel()
		if err != nil {
			r.logger.Error().Err(err).Msg("创建新RabbitMQ通道失败")
			return nil
		}
		return newCh
	}
	return ch.(*amqp.Channel)
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// ensureReportTopology 声明报告投递的交换机、队列与绑定
func (r *RabbitMQ) ensureReportTopology() error {
	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(
		r.cfg.ReportExchange, "direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}

	if _, err := ch.QueueDeclare(
		r.cfg.ReportQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}

	if err := ch.QueueBind(
		r.cfg.ReportQueue, r.cfg.ReportRoutingKey, r.cfg.ReportExchange,
		false, nil,
	); err != nil {
		return fmt.Errorf("绑定队列失败: %w", err)
	}

	return nil
}

// PublishReportJob 以持久化JSON消息发布报告投递任务
func (r *RabbitMQ) PublishReportJob(ctx context.Context, job ReportJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("序列化投递任务失败: %w", err)
	}

	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	err = ch.PublishWithContext(ctx,
		r.cfg.ReportExchange,
		r.cfg.ReportRoutingKey,
		r.cfg.PublishMandatory,
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("发布投递任务失败: %w", err)
	}

	r.logger.Debug().Str("slug", job.Slug).Msg("报告投递任务已发布")
	return nil
}

// ConsumeReportJobs 消费报告投递队列直到ctx取消。
// handler返回错误时消息以requeue方式拒绝，反序列化失败的消息直接丢弃
func (r *RabbitMQ) ConsumeReportJobs(ctx context.Context, handler func(ctx context.Context, job ReportJob) error) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("创建消费通道失败: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(r.cfg.ConsumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("设置消费预取失败: %w", err)
	}

	deliveries, err := ch.Consume(
		r.cfg.ReportQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("启动消费失败: %w", err)
	}

	r.logger.Info().Str("queue", r.cfg.ReportQueue).Msg("报告投递消费已启动")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("消费通道已关闭")
			}

			var job ReportJob
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				r.logger.Error().Err(err).Msg("投递任务反序列化失败，丢弃消息")
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, job); err != nil {
				r.logger.Error().Err(err).Str("slug", job.Slug).Msg("投递任务处理失败，重新入队")
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}
