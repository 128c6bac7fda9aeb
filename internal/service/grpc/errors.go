package grpcsvc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

// toStatus переводит доменную ошибку в gRPC-статус.
// Неизвестные ошибки логируются и наружу уходят без подробностей.
func (s *POSService) toStatus(err error, operation string) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codeFor(err)
	if code != codes.Internal {
		return status.Error(code, err.Error())
	}

	s.logger.WithError(err).WithField("operation", operation).Error("request failed")
	return status.Error(codes.Internal, "internal error")
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case domain.IsMenuItemValidation(err), errors.Is(err, domain.ErrOrderNumberRequired):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrMenuItemNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrOrderNotFound):
		return codes.NotFound
	case domain.IsCheckoutValidation(err), errors.Is(err, domain.ErrMenuItemUnavailable):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrCartVersionConflict), errors.Is(err, domain.ErrOrderNumberConflict):
		return codes.Aborted
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthenticated):
		return codes.Unauthenticated
	default:
		return codes.Internal
	}
}
