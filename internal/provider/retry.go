package provider

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultBaseDelay  = 500 * time.Millisecond
	defaultMaxRetries = 3
	defaultCooldown   = 60 * time.Second

	cooldownKey = "rate-limited"
)

// Retrying wraps a primary ChatCompleter with rate-limit backoff and a
// local fallback. Rate-limit errors retry with capped exponential delay;
// once retries are exhausted a cooldown flag is set and every call inside
// the window short-circuits straight to the fallback so a throttling
// provider is not hammered. The window length follows the provider's
// Retry-After header when one was sent, otherwise the default. All other
// primary failures go to the fallback after a single attempt.
type Retrying struct {
	primary  ChatCompleter
	fallback ChatCompleter
	logger   *slog.Logger

	baseDelay  time.Duration
	maxRetries int
	cooldown   time.Duration

	flags *gocache.Cache
	sleep func(time.Duration)
}

// NewRetrying builds the wrapper with default backoff parameters.
func NewRetrying(primary, fallback ChatCompleter, logger *slog.Logger) *Retrying {
	return &Retrying{
		primary:    primary,
		fallback:   fallback,
		logger:     logger,
		baseDelay:  defaultBaseDelay,
		maxRetries: defaultMaxRetries,
		cooldown:   defaultCooldown,
		flags:      gocache.New(gocache.NoExpiration, time.Minute),
		sleep:      time.Sleep,
	}
}

// Complete runs the primary completer under the retry policy.
func (r *Retrying) Complete(ctx context.Context, system, user string) (string, error) {
	if _, limited := r.flags.Get(cooldownKey); limited {
		return r.fallback.Complete(ctx, system, user)
	}

	out, err := r.primary.Complete(ctx, system, user)
	if err == nil {
		return out, nil
	}
	hint := RetryAfterHint(err)
	if !IsRateLimit(err) {
		// Configuration and transient errors are never retried; the
		// fallback absorbs them so the user still gets an answer.
		r.logger.Warn("completer failed, using fallback", "error", err.Error())
		return r.fallback.Complete(ctx, system, user)
	}

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		delay := r.baseDelay * (1 << attempt)
		r.logger.Debug("rate limited, backing off", "attempt", attempt+1, "delay", delay.String())
		r.sleep(delay)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		out, err = r.primary.Complete(ctx, system, user)
		if err == nil {
			return out, nil
		}
		if !IsRateLimit(err) {
			r.logger.Warn("completer failed, using fallback", "error", err.Error())
			return r.fallback.Complete(ctx, system, user)
		}
		if after := RetryAfterHint(err); after > 0 {
			hint = after
		}
	}

	window := r.cooldown
	if hint > 0 {
		window = hint
	}
	r.flags.Set(cooldownKey, time.Now().Add(window), window)
	r.logger.Warn("rate limit retries exhausted, cooling down", "window", window.String())
	return r.fallback.Complete(ctx, system, user)
}

// RateLimited reports whether the cooldown window is active.
func (r *Retrying) RateLimited() bool {
	_, limited := r.flags.Get(cooldownKey)
	return limited
}
