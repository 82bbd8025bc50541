package recovery

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/tronwatch/internal/infra/rpc"
	"github.com/vietddude/tronwatch/internal/infra/storage/memory"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	refused := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}

	tests := []struct {
		name string
		err  error
		want Tag
	}{
		{"http 429", fmt.Errorf("all providers failed: %w", &rpc.HTTPError{StatusCode: 429}), TagRateLimit},
		{"rate limit text", errors.New("Too Many Requests"), TagRateLimit},
		{"unknown authority", x509.UnknownAuthorityError{}, TagTLS},
		{"cipher text", errors.New("no cipher suite supported by both client and server"), TagTLS},
		{"refused syscall", fmt.Errorf("get block: %w", refused), TagConnectionRefused},
		{"refused text", errors.New("dial tcp 127.0.0.1:8090: connect: ECONNREFUSED"), TagConnectionRefused},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), TagTimeout},
		{"net timeout", timeoutErr{}, TagTimeout},
		{"timeout text", errors.New("request timed out"), TagTimeout},
		{"generic", errors.New("block 10 has no timestamp"), TagGeneric},
		{"http 500", &rpc.HTTPError{StatusCode: 500, Body: "boom"}, TagGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cause := Classify(tt.err)
			assert.Equal(t, tt.want, cause.Tag)
			assert.NotEmpty(t, cause.Message)
			assert.Equal(t, tt.want != TagGeneric, cause.Transient())
		})
	}
}

func TestClassify_GenericKeepsMessage(t *testing.T) {
	cause := Classify(errors.New("boom"))
	assert.Equal(t, "boom", cause.Message)
	assert.Equal(t, TagGeneric, Classify(nil).Tag)
}

func TestHandler_HandleFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMemoryStorage()
	state := memory.NewSyncStateRepo(store)
	cooldown := memory.NewCooldownStore()

	_, err := state.Create(ctx, 500, 600)
	require.NoError(t, err)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHandler(state, cooldown, 0)
	h.now = func() time.Time { return now }

	cause := h.HandleFailure(ctx, 498, fmt.Errorf("fetch block 498: %w", context.DeadlineExceeded))
	assert.Equal(t, TagTimeout, cause.Tag)

	at, ok, err := cooldown.Get(ctx, 498)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(now))

	got, err := state.Get(ctx)
	require.NoError(t, err)
	assert.Contains(t, got.Backfill, uint64(498))
	require.NotNil(t, got.LastError)
	assert.Equal(t, "timeout", got.LastError.Cause)
	assert.Equal(t, uint64(498), got.LastError.Block)
	assert.Equal(t, cause.Message, got.LastError.Message)
}

func TestHandler_CancelledContextStillRecords(t *testing.T) {
	store := memory.NewMemoryStorage()
	state := memory.NewSyncStateRepo(store)
	_, err := state.Create(context.Background(), 10, 20)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHandler(state, memory.NewCooldownStore(), time.Minute)
	h.HandleFailure(ctx, 7, errors.New("boom"))

	got, err := state.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{7}, got.Backfill)
}

type failingCooldown struct{}

func (failingCooldown) Set(context.Context, uint64, time.Time, time.Duration) error {
	return errors.New("redis down")
}

func TestHandler_CooldownErrorDoesNotStopBookkeeping(t *testing.T) {
	ctx := context.Background()
	state := memory.NewSyncStateRepo(memory.NewMemoryStorage())
	_, err := state.Create(ctx, 10, 20)
	require.NoError(t, err)

	NewHandler(state, failingCooldown{}, time.Minute).HandleFailure(ctx, 9, errors.New("boom"))

	got, err := state.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9}, got.Backfill)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "boom", got.LastError.Message)
}
