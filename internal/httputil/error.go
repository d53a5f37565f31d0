package httputil

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/noni007/domin8-p2e-sub002/internal/service"
)

// Error maps a service error onto an HTTP status. Unexpected errors are
// logged here; expected ones surface their message to the caller.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrTournamentNotFound),
		errors.Is(err, service.ErrMatchNotFound):
		NotFound(w, err.Error(), nil)
	case errors.Is(err, service.ErrAlreadyCompleted):
		Conflict(w, err.Error(), nil)
	case errors.Is(err, service.ErrInsufficientParticipants),
		errors.Is(err, service.ErrBracketAlreadyGenerated),
		errors.Is(err, service.ErrInvalidResult),
		errors.Is(err, service.ErrRegistrationNotOpen),
		errors.Is(err, service.ErrTournamentFull),
		errors.Is(err, service.ErrInvalidStatusTransition):
		BadRequest(w, err.Error(), nil)
	default:
		InternalServerError(w, "unexpected error", err)
	}
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	JSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	JSON(w, http.StatusNotFound, map[string]string{"error": msg})
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("conflict", "message", msg, "error", err)
	} else {
		slog.Warn("conflict", "message", msg)
	}
	JSON(w, http.StatusConflict, map[string]string{"error": msg})
}

func Forbidden(w http.ResponseWriter, msg string) {
	slog.Warn("forbidden", "message", msg)
	JSON(w, http.StatusForbidden, map[string]string{"error": msg})
}
