// Package outbox публикует события, сохранённые вместе с заказами,
// во внешний брокер.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// Результаты публикации для метки result.
const (
	resultSent      = "sent"
	resultRetry     = "retry_error"
	resultFailed    = "failed"
	resultDLQFailed = "dlq_failed"
)

var (
	publishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cafe_outbox_publish_attempts_total",
		Help: "Outbox publish attempts by result.",
	}, []string{"result"})
	backlogSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cafe_outbox_pending_records",
		Help: "Pending records waiting in the outbox.",
	})
	backlogAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cafe_outbox_oldest_pending_age_seconds",
		Help: "Age of the oldest pending outbox record.",
	})
	purgedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cafe_outbox_purged_records_total",
		Help: "Sent outbox records removed by retention.",
	})
)

// WorkerOptions задаёт параметры outbox worker.
type WorkerOptions struct {
	Logger       *log.Entry
	DLQPublisher domain.OutboxPublisher
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	// RetryBaseDelay удваивается с каждой попыткой, но не больше RetryMaxDelay.
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	// Retention — возраст, после которого отправленные записи удаляются; 0 — хранить.
	Retention time.Duration
}

func defaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		PollInterval:   time.Second,
		BatchSize:      100,
		MaxAttempts:    3,
		RetryBaseDelay: 50 * time.Millisecond,
		RetryMaxDelay:  5 * time.Second,
	}
}

// normalize возвращает к умолчаниям поля, выставленные в недопустимые значения.
func (o *WorkerOptions) normalize() {
	def := defaultWorkerOptions()
	if o.Logger == nil {
		o.Logger = log.WithField("component", "outbox-worker")
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = def.MaxAttempts
	}
	o.RetryBaseDelay = max(o.RetryBaseDelay, 0)
	o.RetryMaxDelay = max(o.RetryMaxDelay, o.RetryBaseDelay)
	o.Retention = max(o.Retention, 0)
}

// Option настраивает Worker.
type Option func(*WorkerOptions)

func WithLogger(logger *log.Entry) Option {
	return func(o *WorkerOptions) { o.Logger = logger }
}

// WithDLQPublisher задаёт publisher, куда уходят события после исчерпания попыток.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(o *WorkerOptions) { o.DLQPublisher = publisher }
}

func WithPollInterval(interval time.Duration) Option {
	return func(o *WorkerOptions) { o.PollInterval = interval }
}

func WithBatchSize(size int) Option {
	return func(o *WorkerOptions) { o.BatchSize = size }
}

func WithMaxAttempts(attempts int) Option {
	return func(o *WorkerOptions) { o.MaxAttempts = attempts }
}

func WithRetryDelays(base, limit time.Duration) Option {
	return func(o *WorkerOptions) {
		o.RetryBaseDelay = base
		o.RetryMaxDelay = limit
	}
}

// WithRetention включает удаление отправленных записей старше retention.
func WithRetention(retention time.Duration) Option {
	return func(o *WorkerOptions) { o.Retention = retention }
}

// Worker переносит pending-события из outbox в брокер по одному, сохраняя
// порядок записи.
type Worker struct {
	repo      domain.OutboxRepository
	publisher domain.OutboxPublisher
	opts      WorkerOptions
	now       func() time.Time
}

// NewWorker создаёт outbox worker.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	opts := defaultWorkerOptions()
	for _, apply := range options {
		apply(&opts)
	}
	opts.normalize()

	return &Worker{
		repo:      repo,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// Run опрашивает outbox каждые PollInterval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.opts.Logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		w.ProcessOnce(ctx)
		w.Purge(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ProcessOnce публикует один батч и возвращает число отправленных событий.
// Событие, чья публикация прервана отменой ctx, остаётся pending.
func (w *Worker) ProcessOnce(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	defer w.observeBacklog(ctx)

	batch, err := w.repo.PullPending(ctx, w.opts.BatchSize)
	if err != nil {
		w.opts.Logger.WithError(err).Warn("failed to pull pending outbox messages")
		return 0
	}

	sent := 0
	for _, msg := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.deliver(ctx, msg) {
			sent++
		}
	}
	return sent
}

// Purge удаляет отправленные записи старше Retention и возвращает их число.
func (w *Worker) Purge(ctx context.Context) int {
	if w.opts.Retention == 0 || ctx.Err() != nil {
		return 0
	}

	deleted, err := w.repo.PurgeSent(ctx, w.now().Add(-w.opts.Retention), w.opts.BatchSize)
	if err != nil {
		w.opts.Logger.WithError(err).Warn("failed to purge sent outbox messages")
		return 0
	}
	if deleted > 0 {
		purgedRecords.Add(float64(deleted))
		w.opts.Logger.WithField("deleted", deleted).Debug("sent outbox messages purged")
	}
	return deleted
}

func (w *Worker) deliver(ctx context.Context, msg domain.OutboxMessage) bool {
	logger := w.opts.Logger.WithFields(log.Fields{
		"outbox_id":    msg.ID,
		"event_type":   msg.EventType,
		"aggregate_id": msg.AggregateID,
	})

	err := w.publish(ctx, msg)
	switch {
	case err == nil:
		if markErr := w.repo.MarkSent(ctx, msg.ID); markErr != nil {
			logger.WithError(markErr).Warn("failed to mark outbox message as sent")
		}
		return true
	case ctx.Err() != nil:
		return false
	}

	publishAttempts.WithLabelValues(resultFailed).Inc()
	logger.WithError(err).Error("outbox publish failed after retries")

	if dlqErr := w.deadLetter(msg, err); dlqErr != nil {
		publishAttempts.WithLabelValues(resultDLQFailed).Inc()
		logger.WithError(dlqErr).Warn("failed to publish outbox message to DLQ")
	}
	if markErr := w.repo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
		logger.WithError(markErr).Warn("failed to mark outbox message as failed")
	}
	return false
}

// publish делает до MaxAttempts попыток с экспоненциальной паузой между ними.
func (w *Worker) publish(ctx context.Context, msg domain.OutboxMessage) error {
	var err error
	for attempt := 1; ; attempt++ {
		if err = w.publisher.Publish(msg); err == nil {
			publishAttempts.WithLabelValues(resultSent).Inc()
			return nil
		}
		publishAttempts.WithLabelValues(resultRetry).Inc()
		if attempt >= w.opts.MaxAttempts {
			break
		}

		pause := backoff(w.opts.RetryBaseDelay, w.opts.RetryMaxDelay, attempt)
		if pause == 0 {
			continue
		}
		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", domain.ErrOutboxPublish, w.opts.MaxAttempts, err)
}

func (w *Worker) observeBacklog(ctx context.Context) {
	stats, err := w.repo.Stats(ctx)
	if err != nil {
		w.opts.Logger.WithError(err).Warn("failed to read outbox backlog stats")
		return
	}

	backlogSize.Set(float64(stats.PendingCount))
	age := 0.0
	if stats.PendingCount > 0 && !stats.OldestPendingAt.IsZero() {
		age = max(w.now().Sub(stats.OldestPendingAt).Seconds(), 0)
	}
	backlogAge.Set(age)
}

// backoff возвращает base·2^(attempt-1), ограниченное limit.
func backoff(base, limit time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for ; attempt > 1 && delay < limit; attempt-- {
		delay *= 2
	}
	return min(delay, limit)
}

// DeadLetter — событие outbox, которое не удалось опубликовать.
// Кладётся в Payload конверта, отправленного в DLQ.
type DeadLetter struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	EnqueuedAt    time.Time       `json:"enqueued_at,omitzero"`
	FailedAt      time.Time       `json:"failed_at"`
}

func (w *Worker) deadLetter(msg domain.OutboxMessage, cause error) error {
	if w.opts.DLQPublisher == nil {
		return nil
	}

	body, err := json.Marshal(DeadLetter{
		OutboxID:      msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishError:  cause.Error(),
		EnqueuedAt:    msg.CreatedAt,
		FailedAt:      w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode dead letter: %w", err)
	}

	envelope := msg
	envelope.Payload = body
	if err := w.opts.DLQPublisher.Publish(envelope); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	return nil
}
