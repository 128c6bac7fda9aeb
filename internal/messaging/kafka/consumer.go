package kafka

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const defaultMaxRetries = 3

// MessageHandler обрабатывает сообщение из Kafka.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

// ConsumerOptions — необязательные параметры consumer.
type ConsumerOptions struct {
	// DLQProducer получает сообщения после исчерпания попыток. nil — без DLQ.
	DLQProducer *Producer
	MaxRetries  int
	// RetryDelay — пауза между попытками, 0 означает повтор сразу.
	RetryDelay time.Duration
	// InitialOffset — sarama.OffsetNewest (по умолчанию) или sarama.OffsetOldest.
	InitialOffset int64
	Logger        *log.Entry
}

func (o ConsumerOptions) normalize() ConsumerOptions {
	if o.Logger == nil {
		o.Logger = log.WithField("component", "kafka-consumer")
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	o.RetryDelay = max(o.RetryDelay, 0)
	if o.InitialOffset != sarama.OffsetOldest {
		o.InitialOffset = sarama.OffsetNewest
	}
	return o
}

// ConsumerConfig — настройки consumer group: round-robin, ошибки в канал Errors.
func ConsumerConfig(initialOffset int64) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = initialOffset
	cfg.Consumer.Return.Errors = true
	return cfg
}

// Consumer читает топики consumer group, повторяет обработку в процессе
// и откладывает безнадёжные сообщения в DLQ.
type Consumer struct {
	group  sarama.ConsumerGroup
	topics []string
	handle MessageHandler
	opts   ConsumerOptions
	wg     sync.WaitGroup
}

// NewConsumer подключается к consumer group groupID.
func NewConsumer(brokers []string, groupID string, topics []string, handler MessageHandler, opts ConsumerOptions) (*Consumer, error) {
	opts = opts.normalize()
	group, err := sarama.NewConsumerGroup(brokers, groupID, ConsumerConfig(opts.InitialOffset))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group %s: %w", groupID, err)
	}
	return newConsumer(group, topics, handler, opts), nil
}

func newConsumer(group sarama.ConsumerGroup, topics []string, handler MessageHandler, opts ConsumerOptions) *Consumer {
	return &Consumer{group: group, topics: topics, handle: handler, opts: opts.normalize()}
}

// Start запускает чтение и разбор ошибок group в фоне.
// Остановка — отмена ctx и Stop.
func (c *Consumer) Start(ctx context.Context) error {
	logger := c.opts.Logger

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		// Consume возвращается при каждом rebalance.
		for ctx.Err() == nil {
			if err := c.group.Consume(ctx, c.topics, c); err != nil {
				logger.WithError(err).Error("error from consumer")
			}
		}
	}()
	go func() {
		defer c.wg.Done()
		for err := range c.group.Errors() {
			logger.WithError(err).Error("consumer error")
		}
	}()

	logger.WithField("topics", c.topics).Info("kafka consumer started")
	return nil
}

// Stop закрывает group и ждёт фоновые горутины.
func (c *Consumer) Stop() error {
	if err := c.group.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.wg.Wait()
	c.opts.Logger.Info("kafka consumer stopped")
	return nil
}

func (c *Consumer) Setup(session sarama.ConsumerGroupSession) error {
	if session != nil {
		c.opts.Logger.WithField("claims", session.Claims()).Debug("partitions assigned")
	}
	return nil
}

func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения партиции. Offset сдвигается только
// после успешной обработки или отправки в DLQ.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := c.process(ctx, message); err != nil {
				c.opts.Logger.WithError(err).WithFields(messageFields(message)).Error("message processing failed after all retries")
				continue
			}
			session.MarkMessage(message, "")
		}
	}
}

// process вызывает handler, пока общее число попыток с учётом заголовка
// x-retry-count не достигнет MaxRetries; одна попытка делается всегда.
// Неудачу, принятую DLQ, process считает обработкой.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	prior := priorRetries(message)
	budget := max(c.opts.MaxRetries-prior, 1)
	logger := c.opts.Logger.WithFields(messageFields(message))

	var err error
	for attempt := 1; ; attempt++ {
		if err = c.handle(ctx, message); err == nil {
			return nil
		}
		if attempt == budget {
			break
		}
		logger.WithError(err).WithField("retry_count", prior+attempt).Warn("message processing failed, will retry")
		if err := sleepCtx(ctx, c.opts.RetryDelay); err != nil {
			return err
		}
	}

	if c.opts.DLQProducer == nil {
		return err
	}
	retries := prior + budget
	if dlqErr := c.deadLetter(message, err, retries); dlqErr != nil {
		return fmt.Errorf("failed to send to DLQ: %w", dlqErr)
	}
	logger.WithField("retry_count", retries).Info("message sent to DLQ after max retries")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// priorRetries читает x-retry-count; отсутствующее или битое значение — 0.
func priorRetries(message *sarama.ConsumerMessage) int {
	raw, ok := HeaderValue(message.Headers, HeaderRetryCount)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func messageFields(message *sarama.ConsumerMessage) log.Fields {
	return log.Fields{"topic": message.Topic, "partition": message.Partition, "offset": message.Offset}
}

// DeadLetter — сообщение, которое потребитель не смог обработать.
// Читается утилитой dlq-reprocess.
type DeadLetter struct {
	OriginalTopic     string `json:"original_topic"`
	OriginalPartition int32  `json:"original_partition"`
	OriginalOffset    int64  `json:"original_offset"`
	OriginalKey       string `json:"original_key"`
	OriginalValue     string `json:"original_value"`
	ErrorMessage      string `json:"error_message"`
	FailedAt          string `json:"failed_at"`
	RetryCount        int    `json:"retry_count"`
}

func (c *Consumer) deadLetter(message *sarama.ConsumerMessage, cause error, retries int) error {
	dead := DeadLetter{
		OriginalTopic:     message.Topic,
		OriginalPartition: message.Partition,
		OriginalOffset:    message.Offset,
		OriginalKey:       string(message.Key),
		OriginalValue:     string(message.Value),
		ErrorMessage:      cause.Error(),
		FailedAt:          time.Now().UTC().Format(time.RFC3339),
		RetryCount:        retries,
	}
	header := func(key, value string) sarama.RecordHeader {
		return sarama.RecordHeader{Key: []byte(key), Value: []byte(value)}
	}
	return c.opts.DLQProducer.PublishEvent(TopicDeadLetterQueue, dead.OriginalKey, dead,
		header(HeaderRetryCount, strconv.Itoa(retries)),
		header(HeaderOriginalTopic, dead.OriginalTopic),
		header(HeaderErrorMessage, dead.ErrorMessage),
		header(HeaderFailedAt, dead.FailedAt),
	)
}
