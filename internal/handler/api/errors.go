package api

import (
	"errors"

	"CryptoEdge/internal/domain"
	xhttp "CryptoEdge/pkg/http"
)

const (
	msgInProgress  = "Signal generation already in progress"
	msgUnavailable = "Signal generation temporarily unavailable"
	msgNoSignal    = "No signal available for this pair"
	msgInternal    = "Something went wrong"
)

// toAppError maps the internal failure taxonomy onto the small set of
// messages API callers may see.
func toAppError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, domain.ErrGenerationInProgress):
		return xhttp.ConflictError(msgInProgress).WithError(err)
	case errors.Is(err, domain.ErrNotFound):
		return xhttp.NotFoundError(msgNoSignal).WithError(err)
	case errors.Is(err, domain.ErrReasoningUnavailable),
		errors.Is(err, domain.ErrNoSignals),
		errors.Is(err, domain.ErrReasoningTimeout),
		errors.Is(err, domain.ErrInvalidReasoningOutput),
		errors.Is(err, domain.ErrInsufficientHistory),
		errors.Is(err, domain.ErrUpstreamFetch):
		return xhttp.UnavailableError(msgUnavailable).WithError(err)
	default:
		return xhttp.InternalError(msgInternal).WithError(err)
	}
}
