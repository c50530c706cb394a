package listener

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestReason(t *testing.T) {
	assert.Equal(t, "notify", requestReason(""))
	assert.Equal(t, "notify", requestReason("   "))
	assert.Equal(t, "notify:cli", requestReason(" cli "))

	long := requestReason(strings.Repeat("x", 200))
	assert.Equal(t, len("notify:")+maxReasonLen, len(long))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 10*time.Second, nextBackoff(5*time.Second))
	assert.Equal(t, maxReconnect, nextBackoff(20*time.Second))
	assert.Equal(t, maxReconnect, nextBackoff(maxReconnect))
}

type nopRequester struct{}

func (nopRequester) Request(string) {}

func TestStart_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		// Nothing listens on port 1, so every attempt fails fast.
		Start(ctx, "postgres://svitlo@127.0.0.1:1/svitlo?connect_timeout=1", nopRequester{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
