package llm

import "errors"

// ErrBackendUnavailable indicates the inference backend could not be reached
// or loaded. Callers retry exactly once, then fall back or propagate.
// Per-call timeouts are reported as this error as well.
var ErrBackendUnavailable = errors.New("inference backend unavailable")

// ErrInputTooLong indicates the prompt plus history exceeds the backend's
// context limit. Clients never truncate silently; they surface this instead.
// Not retryable.
var ErrInputTooLong = errors.New("input exceeds backend context limit")
