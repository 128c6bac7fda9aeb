package grpcsvc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const idempotencyKeyHeader = "idempotency-key"

const storedFailureFallback = "previous request with the same idempotency key failed"

var errIdempotencyInit = status.Error(codes.Internal, "failed to initialize idempotency request")

// idempotencyGuard хранит исход мутирующих RPC по idempotency-key.
type idempotencyGuard struct {
	repo   domain.IdempotencyRepository
	ttl    time.Duration
	now    func() time.Time
	logger *log.Entry
}

func newIdempotencyGuard(repo domain.IdempotencyRepository, logger *log.Entry) *idempotencyGuard {
	if repo == nil {
		return nil
	}
	return &idempotencyGuard{
		repo:   repo,
		ttl:    domain.DefaultIdempotencyTTL,
		now:    time.Now,
		logger: logger.WithField("component", "idempotency"),
	}
}

// storedFailure — ошибка RPC в ResponseBody записи со статусом failed.
type storedFailure struct {
	Code    codes.Code `json:"code"`
	Message string     `json:"message"`
}

// withIdempotency выполняет handler не больше одного раза на ключ.
// Повтор с тем же ключом и телом получает сохранённый ответ или ту же ошибку;
// тот же ключ с другим телом отклоняется.
func withIdempotency[T any](
	s *POSService,
	ctx context.Context,
	method string,
	req any,
	handler func(context.Context) (*T, error),
) (*T, error) {
	g := s.idempotency
	if g == nil {
		return handler(ctx)
	}

	key, err := idempotencyKeyFrom(ctx)
	if err != nil {
		return nil, err
	}
	logger := g.logger.WithFields(log.Fields{"method": method, "idempotency_key": key})

	hash, err := requestHash(method, req)
	if err != nil {
		logger.WithError(err).Warn("failed to hash request")
		return nil, errIdempotencyInit
	}

	record, err := g.repo.CreateProcessing(ctx, key, hash, g.now().UTC().Add(g.ttl))
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIdempotencyHashMismatch):
		return nil, status.Error(codes.AlreadyExists, "idempotency key is already used with different request payload")
	case errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists):
		return replayRecord[T](record, logger)
	default:
		logger.WithError(err).Warn("failed to create idempotency record")
		return nil, errIdempotencyInit
	}

	resp, runErr := handler(ctx)
	if runErr != nil {
		g.rememberFailure(ctx, key, runErr, logger)
		return nil, runErr
	}
	if body, err := json.Marshal(resp); err != nil {
		logger.WithError(err).Warn("failed to encode response for idempotency cache")
	} else if err := g.repo.MarkDone(ctx, key, body, int(codes.OK)); err != nil {
		logger.WithError(err).Warn("failed to store idempotent response")
	}
	return resp, nil
}

// replayRecord отвечает на повтор по уже существующей записи.
func replayRecord[T any](record domain.IdempotencyRecord, logger *log.Entry) (*T, error) {
	switch record.Status {
	case domain.IdempotencyStatusProcessing:
		return nil, status.Error(codes.Aborted, "request with the same idempotency key is already processing")
	case domain.IdempotencyStatusFailed:
		return nil, storedError(record)
	case domain.IdempotencyStatusDone:
	default:
		return nil, status.Errorf(codes.Internal, "unknown idempotency record status %q", record.Status)
	}

	if len(record.ResponseBody) == 0 {
		return nil, status.Error(codes.Internal, "idempotency cache is empty")
	}
	resp := new(T)
	if err := json.Unmarshal(record.ResponseBody, resp); err != nil {
		logger.WithError(err).Warn("failed to decode cached response")
		return nil, status.Error(codes.Internal, "failed to decode cached idempotency response")
	}
	return resp, nil
}

// rememberFailure сохраняет код и текст ошибки. Чтобы повторить операцию
// после ошибки, клиент отправляет новый ключ.
func (g *idempotencyGuard) rememberFailure(ctx context.Context, key string, runErr error, logger *log.Entry) {
	st := status.Convert(runErr)
	failure := storedFailure{Code: st.Code(), Message: st.Message()}
	if failure.Code == codes.OK {
		failure.Code = codes.Internal
	}

	body, err := json.Marshal(failure)
	if err != nil {
		logger.WithError(err).Warn("failed to encode failure for idempotency cache")
		body = nil
	}
	if err := g.repo.MarkFailed(ctx, key, body, int(failure.Code)); err != nil {
		logger.WithError(err).Warn("failed to store idempotent failure")
	}
}

// storedError восстанавливает ошибку из записи failed: сначала из тела,
// затем по StatusCode, иначе Internal.
func storedError(record domain.IdempotencyRecord) error {
	var failure storedFailure
	if len(record.ResponseBody) > 0 && json.Unmarshal(record.ResponseBody, &failure) == nil && failure.Code != codes.OK {
		return status.Error(failure.Code, firstNonEmpty(failure.Message, storedFailureFallback))
	}
	if code, ok := failureCode(record.StatusCode); ok {
		return status.Error(code, storedFailureFallback)
	}
	return status.Error(codes.Internal, storedFailureFallback)
}

func failureCode(value int) (codes.Code, bool) {
	if value <= int(codes.OK) || value > int(codes.Unauthenticated) {
		return codes.Internal, false
	}
	return codes.Code(uint32(value)), true //nolint:gosec // checked above
}

func idempotencyKeyFrom(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md, ok = metadata.FromOutgoingContext(ctx)
	}
	if ok {
		for _, value := range md.Get(idempotencyKeyHeader) {
			if key := strings.TrimSpace(value); key != "" {
				return key, nil
			}
		}
	}
	return "", status.Error(codes.InvalidArgument, "idempotency-key metadata is required")
}

// requestHash — hex(sha256(method + ":" + JSON запроса)). encoding/json пишет
// поля структуры в порядке объявления, поэтому хэш стабилен.
func requestHash(method string, req any) (string, error) {
	if req == nil {
		return "", errors.New("request is nil")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(method+":"), body...))
	return hex.EncodeToString(sum[:]), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
