package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// NewStreamingClient bounds connection setup (dial, TLS, response headers) but not the
// body, which is watched per read by IdleTimer instead.
func NewStreamingClient(connectTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
			MaxIdleConnsPerHost:   16,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// IdleTimer cancels a stream context when the backend stays silent for too long.
// Pause it while the consumer holds a fragment so slow clients are not blamed on the backend.
type IdleTimer struct {
	ctx   context.Context
	timer *time.Timer
	d     time.Duration
}

func WithIdleTimeout(parent context.Context, d time.Duration) (context.Context, *IdleTimer, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	w := &IdleTimer{ctx: ctx, d: d}
	if d > 0 {
		w.timer = time.AfterFunc(d, func() { cancel(ErrReadTimeout) })
	}
	return ctx, w, func() {
		w.Pause()
		cancel(context.Canceled)
	}
}

func (w *IdleTimer) Pause() {
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *IdleTimer) Resume() {
	if w.timer != nil {
		w.timer.Reset(w.d)
	}
}

// Err explains a failed read: a fired timer wins over the transport error it caused.
func (w *IdleTimer) Err(err error) error {
	if errors.Is(context.Cause(w.ctx), ErrReadTimeout) {
		return fmt.Errorf("%w after %s", ErrReadTimeout, w.d)
	}
	return err
}
