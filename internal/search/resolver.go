package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoResults signals a clean empty outcome from a strategy. It is logged
// quietly and never escalated.
var ErrNoResults = errors.New("no results")

// Strategy is one concrete way of answering a query. region is a backend hint
// like "us-en" and may be empty.
type Strategy interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int, region string) ([]Hit, error)
}

// Options tune the resolver's pacing. Zero values get sensible defaults.
type Options struct {
	// AttemptTimeout bounds each single strategy attempt.
	AttemptTimeout time.Duration
	// InterAttemptDelay is waited between strategies, never before the first.
	InterAttemptDelay time.Duration
	// RateLimitCooldown is the extra wait after a rate-limited attempt.
	RateLimitCooldown time.Duration
}

const (
	defaultAttemptTimeout    = 15 * time.Second
	defaultInterAttemptDelay = 1 * time.Second
	defaultRateLimitCooldown = 5 * time.Second
)

// Resolver walks an ordered strategy list until one yields results.
type Resolver struct {
	strategies []Strategy
	opts       Options
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewResolver builds a Resolver over the given strategies, tried in slice
// order.
func NewResolver(strategies []Strategy, opts Options, logger *zap.Logger) *Resolver {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if opts.InterAttemptDelay <= 0 {
		opts.InterAttemptDelay = defaultInterAttemptDelay
	}
	if opts.RateLimitCooldown <= 0 {
		opts.RateLimitCooldown = defaultRateLimitCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		strategies: strategies,
		opts:       opts,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Search runs the cascade. The first strategy to return a non-empty,
// normalized hit list short-circuits the rest. An exhausted cascade returns an
// empty slice, never an error: no results is a valid outcome.
func (r *Resolver) Search(ctx context.Context, query string, maxResults int, region string) []Hit {
	if strings.TrimSpace(query) == "" {
		return []Hit{}
	}

	for i, s := range r.strategies {
		if i > 0 {
			if err := r.sleep(ctx, r.opts.InterAttemptDelay); err != nil {
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.AttemptTimeout)
		hits, err := s.Search(attemptCtx, query, maxResults, region)
		cancel()

		if err != nil {
			switch {
			case errors.Is(err, ErrNoResults):
				r.logger.Debug("strategy returned no results", zap.String("strategy", s.Name()))
			case isRateLimited(err):
				r.logger.Warn("strategy rate limited, cooling down",
					zap.String("strategy", s.Name()), zap.Error(err))
				if sleepErr := r.sleep(ctx, r.opts.RateLimitCooldown); sleepErr != nil {
					return []Hit{}
				}
			default:
				r.logger.Warn("strategy failed",
					zap.String("strategy", s.Name()), zap.Error(err))
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if out := normalize(hits, maxResults); len(out) > 0 {
			searchQueriesTotal.WithLabelValues(s.Name()).Inc()
			return out
		}
		r.logger.Debug("strategy returned only empty hits", zap.String("strategy", s.Name()))
	}
	return []Hit{}
}

// normalize drops fully-empty hits and caps the list at maxResults.
func normalize(hits []Hit, maxResults int) []Hit {
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.empty() {
			continue
		}
		out = append(out, h)
		if maxResults > 0 && len(out) >= maxResults {
			break
		}
	}
	return out
}

// isRateLimited classifies errors by message text. Backends surface limits as
// HTTP 429 or phrasing like "rate limit"; either marker triggers the cooldown.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "ratelimit") ||
		strings.Contains(msg, "too many requests")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
