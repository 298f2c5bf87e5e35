// Package retry bounds calls to external services (OCR, LLM) with exponential
// backoff and a per-attempt timeout. Parse failures of a model response are
// retried the same way as transport failures; once attempts are exhausted the
// last error is surfaced wrapped as an external service error so the stage
// aborts the run.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"legalpipe/internal/config"
	"legalpipe/internal/model"
)

// Policy holds the retry parameters for one class of external call.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	CallTimeout    time.Duration
}

// FromConfig builds a Policy from the loaded application config.
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts:    cfg.MaxAttempts,
		InitialBackoff: time.Duration(cfg.InitialBackoffMs) * time.Millisecond,
		CallTimeout:    time.Duration(cfg.CallTimeoutSec) * time.Second,
	}
}

// Do runs op under the policy. Each attempt gets its own timeout derived from
// ctx. A model.ErrInput from op is never retried; everything else is retried
// until the attempt budget runs out, at which point the last error is returned
// wrapped in model.ErrExternalService (unless it already is one).
func (p Policy) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.InitialBackoff > 0 {
		bo.InitialInterval = p.InitialBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)

	var lastErr error
	err := backoff.Retry(func() error {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if p.CallTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.CallTimeout)
			defer cancel()
		}
		err := op(attemptCtx)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, model.ErrInput) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if err == nil {
		return nil
	}
	if errors.Is(lastErr, model.ErrInput) {
		return lastErr
	}
	if errors.Is(lastErr, model.ErrExternalService) {
		return fmt.Errorf("%s: attempts exhausted: %w", label, lastErr)
	}
	return fmt.Errorf("%s: attempts exhausted: %w: %v", label, model.ErrExternalService, lastErr)
}
