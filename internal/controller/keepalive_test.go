package controller

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"agent-catalog-be/pkg/stream"

	"github.com/stretchr/testify/assert"
)

type stubHeartbeater struct {
	err   error
	pings atomic.Int32
}

func (s *stubHeartbeater) Heartbeat() error {
	s.pings.Add(1)
	return s.err
}

func TestKeepAliveCancelsTurnWhenClientIsGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &stubHeartbeater{err: errors.New("broken pipe")}

	done := make(chan struct{})
	go func() {
		keepAlive(ctx, sink, time.Millisecond, cancel)
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("turn was not cancelled after a failed heartbeat")
	}
	<-done
	assert.Equal(t, int32(1), sink.pings.Load())
}

func TestKeepAliveStopsQuietlyAfterTerminalEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &stubHeartbeater{err: stream.ErrSinkClosed}

	keepAlive(ctx, sink, time.Millisecond, cancel)

	assert.NoError(t, ctx.Err())
}

func TestKeepAliveStopsWithTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sink := &stubHeartbeater{}
	cancel()

	keepAlive(ctx, sink, time.Hour, func() {})

	assert.Equal(t, int32(0), sink.pings.Load())
}
