package models

import "github.com/pkg/errors"

// Виды ошибок. Все терминальные для текущей попытки, автоматических ретраев нет.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrAlreadyRegistered   = errors.New("tracking number already registered")
	ErrProviderRejected    = errors.New("tracking provider rejected the request")
	ErrBackendRejected     = errors.New("backend rejected the request")
	ErrNetworkFailure      = errors.New("network failure")
	ErrPreconditionMissing = errors.New("precondition missing")
	ErrNotFound            = errors.New("not found")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrInvalidInput, "InvalidInput"},
	{ErrAlreadyRegistered, "AlreadyRegistered"},
	{ErrProviderRejected, "ProviderRejected"},
	{ErrBackendRejected, "BackendRejected"},
	{ErrNetworkFailure, "NetworkFailure"},
	{ErrPreconditionMissing, "PreconditionMissing"},
	{ErrNotFound, "NotFound"},
}

// ErrorKind returns the taxonomy name of err, or "" for nil and "Unexpected" for anything else.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Unexpected"
}
