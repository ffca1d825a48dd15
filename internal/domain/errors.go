package domain

import "errors"

// Failure taxonomy of the signal pipeline. Callers match with errors.Is;
// producers wrap with fmt.Errorf("...: %w", Err...).
var (
	ErrInsufficientHistory    = errors.New("insufficient candle history")
	ErrUpstreamFetch          = errors.New("upstream fetch failed")
	ErrReasoningUnavailable   = errors.New("reasoning unavailable")
	ErrReasoningTimeout       = errors.New("reasoning request timed out")
	ErrInvalidReasoningOutput = errors.New("invalid reasoning output")
	ErrGenerationInProgress   = errors.New("signal generation already in progress")
	ErrStorage                = errors.New("storage error")
	ErrNoSignals              = errors.New("no signals generated")
	ErrNotFound               = errors.New("not found")
)
