package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
	"github.com/vladislavdragonenkov/cafepos/internal/storage/memory"
)

func enqueuePaid(t *testing.T, repo *memory.OutboxRepository, orderNumber string) domain.OutboxMessage {
	t.Helper()
	msg, err := repo.Enqueue(context.Background(), domain.OutboxMessage{
		AggregateType: domain.AggregateOrder,
		AggregateID:   orderNumber,
		EventType:     domain.EventTypeOrderPaid,
		Payload:       []byte(`{"order_number":"` + orderNumber + `"}`),
	})
	require.NoError(t, err)
	return msg
}

func TestWorker_ProcessOnce_MarkSent(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	first := enqueuePaid(t, repo, "ORD-1")
	second := enqueuePaid(t, repo, "ORD-2")
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithRetryDelays(0, 0), WithMaxAttempts(3))

	require.Equal(t, 2, worker.ProcessOnce(context.Background()))
	require.Equal(t, []string{"ORD-1", "ORD-2"}, publisher.aggregates())

	for _, id := range []string{first.ID, second.ID} {
		entry, ok := repo.Entry(id)
		require.True(t, ok)
		require.Equal(t, "sent", entry.Status)
	}

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.PendingCount)
}

func TestWorker_ProcessOnce_MarkFailedAndDLQAfterRetries(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	msg := enqueuePaid(t, repo, "ORD-FAIL")
	publisher := &stubPublisher{err: errors.New("broker down")}
	dlq := &stubPublisher{}

	worker := NewWorker(repo, publisher, WithDLQPublisher(dlq), WithRetryDelays(0, 0), WithMaxAttempts(3))

	require.Zero(t, worker.ProcessOnce(context.Background()))
	require.Equal(t, 3, publisher.calls())

	entry, ok := repo.Entry(msg.ID)
	require.True(t, ok)
	require.Equal(t, "failed", entry.Status)
	require.Contains(t, entry.LastError, "broker down")
	require.Contains(t, entry.LastError, "3 attempts")

	require.Equal(t, 1, dlq.calls())
	var envelope DeadLetter
	require.NoError(t, json.Unmarshal(dlq.last().Payload, &envelope))
	require.Equal(t, msg.ID, envelope.OutboxID)
	require.Equal(t, "ORD-FAIL", envelope.AggregateID)
	require.Contains(t, envelope.PublishError, "broker down")
	require.JSONEq(t, `{"order_number":"ORD-FAIL"}`, string(envelope.Payload))
	require.Equal(t, msg.CreatedAt, envelope.EnqueuedAt)
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	msg := enqueuePaid(t, repo, "ORD-3")
	publisher := &stubPublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	worker := NewWorker(repo, publisher, WithRetryDelays(0, 0), WithMaxAttempts(3))

	require.Equal(t, 1, worker.ProcessOnce(context.Background()))
	require.Equal(t, 3, publisher.calls())

	entry, _ := repo.Entry(msg.ID)
	require.Equal(t, "sent", entry.Status)
}

func TestWorker_ProcessOnce_CanceledContextKeepsPending(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	msg := enqueuePaid(t, repo, "ORD-4")

	ctx, cancel := context.WithCancel(context.Background())
	publisher := &stubPublisher{err: errors.New("slow broker"), onPublish: cancel}

	worker := NewWorker(repo, publisher, WithRetryDelays(time.Second, time.Second), WithMaxAttempts(5))

	require.Zero(t, worker.ProcessOnce(ctx))
	require.Equal(t, 1, publisher.calls())

	entry, _ := repo.Entry(msg.ID)
	require.Equal(t, "pending", entry.Status)
}

func TestWorker_Purge(t *testing.T) {
	t.Parallel()

	repo := memory.NewOutboxRepository()
	sent := enqueuePaid(t, repo, "ORD-5")
	pending := enqueuePaid(t, repo, "ORD-6")
	require.NoError(t, repo.MarkSent(context.Background(), sent.ID))

	keep := NewWorker(repo, &stubPublisher{})
	require.Zero(t, keep.Purge(context.Background()), "retention is off by default")

	worker := NewWorker(repo, &stubPublisher{}, WithRetention(time.Hour))
	require.Zero(t, worker.Purge(context.Background()))

	worker.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.Equal(t, 1, worker.Purge(context.Background()))

	_, ok := repo.Entry(sent.ID)
	require.False(t, ok)
	_, ok = repo.Entry(pending.ID)
	require.True(t, ok)
}

func TestNewWorker_NormalizesOptions(t *testing.T) {
	t.Parallel()

	worker := NewWorker(nil, nil,
		WithPollInterval(-time.Second),
		WithBatchSize(0),
		WithMaxAttempts(-1),
		WithRetryDelays(-time.Second, -time.Second),
		WithRetention(-time.Hour),
	)

	require.Equal(t, defaultWorkerOptions().PollInterval, worker.opts.PollInterval)
	require.Equal(t, defaultWorkerOptions().BatchSize, worker.opts.BatchSize)
	require.Equal(t, defaultWorkerOptions().MaxAttempts, worker.opts.MaxAttempts)
	require.Zero(t, worker.opts.RetryBaseDelay)
	require.Zero(t, worker.opts.RetryMaxDelay)
	require.Zero(t, worker.opts.Retention)
	require.NotNil(t, worker.opts.Logger)
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	require.Zero(t, backoff(0, time.Second, 3))
	require.Equal(t, 50*time.Millisecond, backoff(50*time.Millisecond, time.Second, 1))
	require.Equal(t, 200*time.Millisecond, backoff(50*time.Millisecond, time.Second, 3))
	require.Equal(t, time.Second, backoff(50*time.Millisecond, time.Second, 20))
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(memory.NewOutboxRepository(), &stubPublisher{}, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_Run_DisabledWithoutPublisher(t *testing.T) {
	t.Parallel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		NewWorker(memory.NewOutboxRepository(), nil).Run(context.Background())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled worker should return immediately")
	}
}

type stubPublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	onPublish      func()
	published      []domain.OutboxMessage
	callCount      int
}

func (s *stubPublisher) Publish(event domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if s.onPublish != nil {
		s.onPublish()
	}
	if len(s.sequenceErrors) > 0 {
		err := s.sequenceErrors[0]
		s.sequenceErrors = s.sequenceErrors[1:]
		if err != nil {
			return err
		}
	} else if s.err != nil {
		return s.err
	}
	s.published = append(s.published, event)
	return nil
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

func (s *stubPublisher) last() domain.OutboxMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published[len(s.published)-1]
}

func (s *stubPublisher) aggregates() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.published))
	for _, e := range s.published {
		out = append(out, e.AggregateID)
	}
	return out
}

var _ domain.OutboxPublisher = (*stubPublisher)(nil)
