package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"hotel_ops/internal/domain"
)

// notFound names the missing entity while keeping domain.ErrNotFound in the chain.
func notFound(kind string, id int64, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return err
}

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func invalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidState, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrConflict, fmt.Sprintf(format, args...))
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidState):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// failure logs caller mistakes at warn and everything else at error.
func failure(op string, err error) *zerolog.Event {
	ev := log.Error()
	if outcome(err) != "error" {
		ev = log.Warn()
	}
	return ev.Err(err).Str("op", op)
}
