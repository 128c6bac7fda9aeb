// Package idempotency удаляет просроченные ключи идемпотентности
// оформления заказов и создания позиций меню.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const (
	defaultSweepInterval = 10 * time.Minute
	defaultSweepBatch    = 500
)

var (
	sweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cafe_idempotency_sweep_runs_total",
		Help: "Total number of idempotency sweeps grouped by result.",
	}, []string{"result"})
	sweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cafe_idempotency_sweep_deleted_total",
		Help: "Total number of expired idempotency keys deleted.",
	})
)

// Sweeper периодически удаляет ключи с истёкшим TTL.
type Sweeper struct {
	repo     domain.IdempotencyRepository
	logger   *log.Entry
	interval time.Duration
	batch    int
	now      func() time.Time
}

// NewSweeper создаёт Sweeper. interval и batch ≤ 0 заменяются значениями по умолчанию.
func NewSweeper(repo domain.IdempotencyRepository, interval time.Duration, batch int, logger *log.Entry) *Sweeper {
	if logger == nil {
		logger = log.WithField("component", "idempotency-sweeper")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if batch <= 0 {
		batch = defaultSweepBatch
	}
	return &Sweeper{
		repo:     repo,
		logger:   logger,
		interval: interval,
		batch:    batch,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run выполняет очистку сразу и затем каждые interval до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.repo == nil {
		s.logger.Warn("idempotency sweeper is disabled: repo is nil")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	deleted, err := s.Sweep(ctx, s.now())
	switch {
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		sweepRuns.WithLabelValues("error").Inc()
		s.logger.WithError(err).Warn("idempotency sweep failed")
		return
	}

	sweepRuns.WithLabelValues("ok").Inc()
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("expired idempotency keys removed")
	}
}

// Sweep удаляет ключи с ttl ≤ before порциями, пока порция заполняется целиком.
func (s *Sweeper) Sweep(ctx context.Context, before time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := s.repo.DeleteExpired(ctx, before, s.batch)
		if err != nil {
			return total, err
		}
		total += n
		sweepDeleted.Add(float64(n))

		if n < s.batch {
			return total, nil
		}
	}
}
