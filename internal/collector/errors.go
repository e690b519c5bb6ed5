package collector

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedRecord marks a provider record missing title, URL or
// published timestamp. Such records are dropped and counted, never
// propagated into a batch.
var ErrMalformedRecord = errors.New("malformed record")

// SourceUnavailableError wraps transient network or auth failures.
// The orchestrator skips the source for the cycle and reports it.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// RateLimitedError reports quota exhaustion. RetryAfter is zero when the
// provider gave no hint.
type RateLimitedError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("source %s rate limited, retry after %s", e.Source, e.RetryAfter)
	}
	return fmt.Sprintf("source %s rate limited", e.Source)
}

// ConfigError means an enabled source is missing a required credential.
// Fatal for that source only; the rest of the pipeline keeps running.
type ConfigError struct {
	Source string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("source %s misconfigured: %s", e.Source, e.Reason)
}

func malformed(field string) error {
	return fmt.Errorf("%w: missing %s", ErrMalformedRecord, field)
}
