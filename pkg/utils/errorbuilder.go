package utils

import (
	"context"
	"errors"
	"io/fs"

	"project-pulse/pkg/apperror"

	"github.com/rs/zerolog"
)

// WrapStoreError maps a report or history store failure onto an apperror
// suitable for FromAppError. Errors that already carry a Kind pass through.
func WrapStoreError(op string, err error, log *zerolog.Logger) error {
	// Context errors
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &apperror.Error{
			Kind:    apperror.RequestTimeout,
			Op:      op,
			Message: "request cancelled or timed out",
		}
	}

	if errors.Is(err, fs.ErrNotExist) {
		return &apperror.Error{
			Kind:    apperror.NotFound,
			Op:      op,
			Message: "resources not found",
		}
	}

	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		if appErr.Kind == apperror.Storage || appErr.Kind == apperror.Internal {
			log.Error().Str("op", op).Err(err).Msg("store failure")
			return appErr.WithMessage("internal server error")
		}
		return appErr
	}

	log.Error().Str("op", op).Err(err).Msg("unexpected store error")
	return &apperror.Error{
		Kind:    apperror.Internal,
		Op:      op,
		Message: "internal server error",
		Err:     err,
	}
}
