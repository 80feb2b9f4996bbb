// Package stream frames relay output for a connected client.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"agent-catalog-be/internal/dto"
	"agent-catalog-be/pkg/llm"
)

// ErrSinkClosed is returned by writes after a terminal event.
var ErrSinkClosed = errors.New("event sink already closed")

// EventSink receives one turn's events. Token may be called any number of times,
// followed by exactly one of Complete or Fail. A write error means the client is gone.
type EventSink interface {
	Token(text string) error
	Complete(usage llm.Usage) error
	Fail(message string) error
}

// SSESink writes server-sent events ("data: <json>\n\n") and flushes after each one.
type SSESink struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closed bool
}

func NewSSESink(w *bufio.Writer) *SSESink {
	return &SSESink{w: w}
}

func (s *SSESink) Token(text string) error {
	return s.write(dto.StreamTokenEvent{Token: text}, false)
}

func (s *SSESink) Complete(usage llm.Usage) error {
	return s.write(dto.StreamCompleteEvent{
		Complete: true,
		Usage:    dto.StreamUsage{TotalTokens: usage.TotalTokens},
	}, true)
}

func (s *SSESink) Fail(message string) error {
	return s.write(dto.StreamErrorEvent{Error: message}, true)
}

// Heartbeat writes an SSE comment line. Clients ignore it; a failed flush reveals a
// departed client while the model is still silent.
func (s *SSESink) Heartbeat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if _, err := s.w.WriteString(": ping\n\n"); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *SSESink) write(event interface{}, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	if terminal {
		s.closed = true
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.w.Flush()
}

// Recorder keeps events in memory.
type Recorder struct {
	// FailAfter makes Token return an error once that many tokens were accepted; 0 disables it.
	FailAfter int

	mu     sync.Mutex
	Tokens []string
	Usage  *llm.Usage
	Error  string
	closed bool
}

var errRecorderDisconnected = errors.New("recorder disconnected")

func (r *Recorder) Token(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSinkClosed
	}
	if r.FailAfter > 0 && len(r.Tokens) >= r.FailAfter {
		return errRecorderDisconnected
	}
	r.Tokens = append(r.Tokens, text)
	return nil
}

func (r *Recorder) Complete(usage llm.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSinkClosed
	}
	r.closed = true
	r.Usage = &usage
	return nil
}

func (r *Recorder) Fail(message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrSinkClosed
	}
	r.closed = true
	r.Error = message
	return nil
}

// Text returns the concatenation of every token received.
func (r *Recorder) Text() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total string
	for _, t := range r.Tokens {
		total += t
	}
	return total
}
