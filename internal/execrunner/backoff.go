package execrunner

import (
	"context"
	"time"

	"github.com/cortexsh/cortexrun/pkg/providers"
)

const (
	maxRetries   = 3
	baseBackoff  = 500 * time.Millisecond
)

// chatWithRetry calls chat and retries on a retriable FailoverError with
// exponential backoff (baseBackoff * 2^attempt), up to maxRetries
// additional attempts. Generalizes the retry shape already present in
// pkg/providers/fallback.go (FallbackChain.Execute retries across
// candidates on a retriable FailoverError) into a single
// candidate's own retry loop, since the exec runner retries the same
// provider/model rather than failing over to a different one.
func chatWithRetry(
	ctx context.Context,
	provider, model string,
	chat func(ctx context.Context) (*providers.LLMResponse, error),
) (*providers.LLMResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := chat(ctx)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		failErr := providers.ClassifyError(err, provider, model)
		if failErr == nil || !failErr.IsRetriable() {
			return nil, err
		}
		if attempt == maxRetries {
			break
		}

		delay := baseBackoff * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
