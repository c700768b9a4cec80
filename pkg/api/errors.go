package api

import (
	"errors"

	"voxel-server/internal/domain"
)

// Коды ошибок протокола.
const (
	CodeValidation   = "validation"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "not_found"
	CodeExhausted    = "exhausted"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// CodeFor переводит доменную ошибку в код протокола.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return CodeValidation
	case errors.Is(err, domain.ErrUnauthorized):
		return CodeUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrExhausted):
		return CodeExhausted
	case errors.Is(err, domain.ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// ErrorEvent собирает событие "error" из доменной ошибки.
func ErrorEvent(err error) ServerEvent {
	return ServerEvent{
		Type: EvError,
		Payload: ErrorPayload{
			Code:    CodeFor(err),
			Message: err.Error(),
		},
	}
}
