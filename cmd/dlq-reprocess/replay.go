package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/cafepos/internal/service/outbox"
)

var errUnsupportedDeadLetter = errors.New("unsupported dlq message format")

type offsetClient interface {
	GetOffset(topic string, partition int32, time int64) (int64, error)
	Partitions(topic string) ([]int32, error)
	Close() error
}

type partitionConsumer interface {
	Messages() <-chan *sarama.ConsumerMessage
	Errors() <-chan *sarama.ConsumerError
	Close() error
}

type partitionConsumerSource interface {
	ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error)
	Close() error
}

type replayProducer interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

// saramaConsumer отдаёт партиции sarama.Consumer как partitionConsumer.
type saramaConsumer struct {
	sarama.Consumer
}

func (c saramaConsumer) ConsumePartition(topic string, partition int32, offset int64) (partitionConsumer, error) {
	return c.Consumer.ConsumePartition(topic, partition, offset)
}

// replayTarget — исходное событие, восстановленное из dead letter.
type replayTarget struct {
	topic     string
	key       string
	value     []byte
	eventType string
}

type replayStats struct {
	processed int
	replayed  int
	skipped   int
}

func (s *replayStats) add(other replayStats) {
	s.processed += other.processed
	s.replayed += other.replayed
	s.skipped += other.skipped
}

// replayer читает DLQ по партициям от старых offset'ов к новым и не дальше
// newest на момент старта: то, что пришло в DLQ во время прогона, не трогается.
type replayer struct {
	opts   options
	deps   kafkaDeps
	logger *log.Entry
	now    func() time.Time
}

func newReplayer(opts options, deps kafkaDeps, logger *log.Entry) (*replayer, error) {
	if deps.offsets == nil || deps.consumer == nil {
		return nil, errors.New("kafka client and consumer are required")
	}
	if opts.execute && deps.producer == nil {
		return nil, errors.New("producer is required in execute mode")
	}
	if logger == nil {
		logger = log.WithField("component", "dlq-reprocess")
	}
	return &replayer{opts: opts, deps: deps, logger: logger, now: time.Now}, nil
}

// Run обходит партиции по возрастанию, пока не исчерпан limit.
func (r *replayer) Run(ctx context.Context) (replayStats, error) {
	var total replayStats

	partitions, err := r.deps.offsets.Partitions(r.opts.sourceTopic)
	if err != nil {
		return total, fmt.Errorf("list partitions of %s: %w", r.opts.sourceTopic, err)
	}
	if len(partitions) == 0 {
		r.logger.Warn("source topic has no partitions")
		return total, nil
	}
	slices.Sort(partitions)

	for _, partition := range partitions {
		budget := r.opts.limit - total.processed
		if budget <= 0 {
			break
		}
		stats, err := r.scanPartition(ctx, partition, budget)
		total.add(stats)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *replayer) scanPartition(ctx context.Context, partition int32, budget int) (replayStats, error) {
	var stats replayStats
	topic := r.opts.sourceTopic

	oldest, err := r.deps.offsets.GetOffset(topic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("oldest offset of %s/%d: %w", topic, partition, err)
	}
	newest, err := r.deps.offsets.GetOffset(topic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("newest offset of %s/%d: %w", topic, partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	start := oldest
	if r.opts.fromNewest {
		start = max(newest-int64(budget), oldest)
	}
	pc, err := r.deps.consumer.ConsumePartition(topic, partition, start)
	if err != nil {
		return stats, fmt.Errorf("consume %s/%d: %w", topic, partition, err)
	}
	defer func() { _ = pc.Close() }()

	idle := time.NewTimer(r.opts.idleTimeout)
	defer idle.Stop()

	errs := pc.Errors()
	for stats.processed < budget {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-idle.C:
			r.logger.WithField("partition", partition).Debug("partition is idle, moving on")
			return stats, nil
		case consumerErr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			return stats, fmt.Errorf("partition %d consumer error: %w", partition, consumerErr)
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}
			idle.Reset(r.opts.idleTimeout)

			stats.processed++
			replayed, err := r.replay(msg)
			if err != nil {
				return stats, err
			}
			if replayed {
				stats.replayed++
			} else {
				stats.skipped++
			}
			if msg.Offset+1 >= newest {
				return stats, nil
			}
		}
	}
	return stats, nil
}

// replay возвращает false для пропущенных сообщений: нераспознанных и
// отфильтрованных по типу. Ошибка означает сбой публикации.
func (r *replayer) replay(msg *sarama.ConsumerMessage) (bool, error) {
	logger := r.logger.WithFields(log.Fields{"partition": msg.Partition, "offset": msg.Offset})

	target, err := decodeDeadLetter(msg.Value, r.opts.targetTopic, r.now())
	if err != nil {
		logger.WithError(err).Warn("skip unsupported dlq message")
		return false, nil
	}
	logger = logger.WithFields(log.Fields{
		"event_type":   target.eventType,
		"target_topic": target.topic,
		"key":          target.key,
	})
	if r.opts.eventType != "" && target.eventType != r.opts.eventType {
		logger.Debug("skip dlq message by event type")
		return false, nil
	}

	if !r.opts.execute {
		logger.Info("dlq replay candidate")
		return true, nil
	}
	if err := r.publish(target, msg); err != nil {
		return false, fmt.Errorf("publish replay message: %w", err)
	}
	logger.Info("dlq message replayed")
	return true, nil
}

func (r *replayer) publish(target replayTarget, source *sarama.ConsumerMessage) error {
	headers := []sarama.RecordHeader{{
		Key:   []byte(kafka.HeaderReplayedFrom),
		Value: fmt.Appendf(nil, "%s/%d/%d", source.Topic, source.Partition, source.Offset),
	}}
	if target.eventType != "" {
		headers = append(headers, sarama.RecordHeader{Key: []byte(kafka.HeaderEventType), Value: []byte(target.eventType)})
	}

	_, _, err := r.deps.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     target.topic,
		Key:       sarama.StringEncoder(target.key),
		Value:     sarama.ByteEncoder(target.value),
		Headers:   headers,
		Timestamp: r.now().UTC(),
	})
	return err
}

// decodeDeadLetter понимает два формата DLQ: kafka.DeadLetter от потребителя
// и конверт с outbox.DeadLetter от outbox worker.
func decodeDeadLetter(raw []byte, fallbackTopic string, now time.Time) (replayTarget, error) {
	var consumed kafka.DeadLetter
	if err := json.Unmarshal(raw, &consumed); err == nil && consumed.OriginalValue != "" {
		value := []byte(consumed.OriginalValue)
		target := replayTarget{
			topic: firstNonBlank(strings.TrimSpace(consumed.OriginalTopic), fallbackTopic),
			key:   consumed.OriginalKey,
			value: value,
		}
		if env, err := kafka.ParseEnvelope(&sarama.ConsumerMessage{Value: value}); err == nil {
			target.eventType = env.EventType
		}
		return target, nil
	}

	env, err := kafka.ParseEnvelope(&sarama.ConsumerMessage{Value: raw})
	if err != nil || len(env.Payload) == 0 {
		return replayTarget{}, errUnsupportedDeadLetter
	}

	var failed outbox.DeadLetter
	if err := json.Unmarshal(env.Payload, &failed); err != nil {
		return replayTarget{}, fmt.Errorf("decode outbox dead letter: %w", err)
	}
	if len(failed.Payload) == 0 || string(failed.Payload) == "null" {
		return replayTarget{}, errors.New("outbox dead letter has no original payload")
	}

	original := domain.OutboxMessage{
		ID:            firstNonBlank(failed.OutboxID, env.ID),
		AggregateType: firstNonBlank(failed.AggregateType, env.AggregateType),
		AggregateID:   firstNonBlank(failed.AggregateID, env.AggregateID),
		EventType:     firstNonBlank(failed.EventType, env.EventType),
		Payload:       failed.Payload,
	}
	value, err := json.Marshal(kafka.NewEnvelope(original, now))
	if err != nil {
		return replayTarget{}, fmt.Errorf("encode replay envelope: %w", err)
	}
	return replayTarget{
		topic:     fallbackTopic,
		key:       firstNonBlank(original.AggregateID, original.ID),
		value:     value,
		eventType: original.EventType,
	}, nil
}

// firstNonBlank возвращает первое значение, не состоящее из одних пробелов.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
