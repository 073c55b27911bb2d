// Package provider defines the cloud capability contracts (speech to text,
// chat completion, speech synthesis) plus the local heuristics the pipeline
// falls back to when a cloud call fails or credentials are absent.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Transcriber converts captured audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// ChatCompleter answers a system+user prompt pair with raw text. The
// pipeline uses it to classify transcripts the rule parser could not.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Synthesizer turns text into audible speech.
type Synthesizer interface {
	Speak(ctx context.Context, text string) error
}

// ConfigError marks a missing or malformed credential. Configuration
// errors surface immediately to the caller and are never retried.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration: %s", e.Provider, e.Reason)
}

// IsConfigError reports whether err is a credential problem.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// RateLimitError marks a provider rejection due to request throttling.
// RetryAfter carries the wait the provider asked for via its Retry-After
// header; zero means the provider did not say.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Cause      error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Cause)
}

func (e *RateLimitError) Unwrap() error { return e.Cause }

// IsRateLimit reports whether err indicates throttling, either as a
// typed RateLimitError or by status/message pattern in the error text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests")
}

// RetryAfterHint extracts the provider-requested wait from a rate-limit
// error chain; zero when none was given.
func RetryAfterHint(err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter
	}
	return 0
}

// retryAfterFromHeader parses a Retry-After header, which is either a
// delay in seconds or an HTTP date.
func retryAfterFromHeader(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
