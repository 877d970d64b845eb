// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package reason abstracts the generative reasoning service that evaluates
// screening prompts. The production backend is Gemini with Google Search
// grounding; the decision resolver treats whatever comes back as untrusted
// input, so this package only transports text and citations.
package reason

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/grant-screener/pkg/types"
)

// Response is the raw reasoning output: free-form text expected to contain an
// embedded JSON answer, plus any grounding citations the service attached.
type Response struct {
	Text      string
	Citations []types.Citation
}

// Backend generates a response for a single evaluation prompt. Each
// implementation wraps one reasoning API per the Strategy pattern; tests
// supply mocks.
type Backend interface {
	Generate(ctx context.Context, prompt string) (Response, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// DefaultMaxRetries is applied when the reasoning config leaves retries
// unset.
const DefaultMaxRetries = 3

// GenerateWithRetry calls the backend with exponential backoff between
// attempts: 1 s, 2 s, 4 s, ... up to maxRetries retries. maxRetries of zero
// means a single attempt.
func GenerateWithRetry(ctx context.Context, backend Backend, prompt string, maxRetries int) (Response, error) {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Generate(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return Response{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
