package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"legalpipe/internal/model"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		CallTimeout:    time.Second,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "ocr", func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientFailure(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "llm", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("bad json: %w", model.ErrParse)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustionWrapsExternalService(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), "llm", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("malformed response: %w", model.ErrParse)
	})
	assert.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, model.ErrExternalService)
}

func TestDoKeepsExternalServiceSentinel(t *testing.T) {
	err := fastPolicy(2).Do(context.Background(), "ocr", func(ctx context.Context) error {
		return fmt.Errorf("tesseract exited: %w", model.ErrExternalService)
	})
	assert.ErrorIs(t, err, model.ErrExternalService)
}

func TestDoInputErrorIsPermanent(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), "ocr", func(ctx context.Context) error {
		calls++
		return fmt.Errorf("missing file: %w", model.ErrInput)
	})
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, model.ErrInput)
	assert.NotErrorIs(t, err, model.ErrExternalService)
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy(10).Do(ctx, "llm", func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("flaky")
	})
	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 2)
}
