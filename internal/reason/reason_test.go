// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reason

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyBackend struct {
	failures int
	calls    int
}

func (b *flakyBackend) Generate(context.Context, string) (Response, error) {
	b.calls++
	if b.calls <= b.failures {
		return Response{}, fmt.Errorf("transient failure %d", b.calls)
	}
	return Response{Text: "ok"}, nil
}

func withFastBackoff(t *testing.T) {
	t.Helper()
	old := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = old })
}

func TestGenerateWithRetrySucceedsFirstTry(t *testing.T) {
	b := &flakyBackend{}
	resp, err := GenerateWithRetry(context.Background(), b, "prompt", 3)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 1, b.calls)
}

func TestGenerateWithRetryRecovers(t *testing.T) {
	withFastBackoff(t)

	b := &flakyBackend{failures: 2}
	resp, err := GenerateWithRetry(context.Background(), b, "prompt", 3)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, 3, b.calls)
}

func TestGenerateWithRetryExhausted(t *testing.T) {
	withFastBackoff(t)

	b := &flakyBackend{failures: 10}
	_, err := GenerateWithRetry(context.Background(), b, "prompt", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Contains(t, err.Error(), "transient failure 3")
	assert.Equal(t, 3, b.calls)
}

func TestGenerateWithRetryZeroMeansSingleAttempt(t *testing.T) {
	b := &flakyBackend{failures: 10}
	_, err := GenerateWithRetry(context.Background(), b, "prompt", 0)
	require.Error(t, err)
	assert.Equal(t, 1, b.calls)
}

func TestGenerateWithRetryDefaultOnNegative(t *testing.T) {
	withFastBackoff(t)

	b := &flakyBackend{failures: 1}
	_, err := GenerateWithRetry(context.Background(), b, "prompt", -1)
	require.NoError(t, err)
	assert.Equal(t, 2, b.calls)
}

func TestGenerateWithRetryHonorsContext(t *testing.T) {
	// Keep the real backoff so the context expires during the wait.
	b := &flakyBackend{failures: 10}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := GenerateWithRetry(ctx, b, "prompt", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, b.calls)
}
