package websocket

import (
	"sync"

	"agent-catalog-be/internal/dto"
	"agent-catalog-be/pkg/llm"
	"agent-catalog-be/pkg/stream"
)

// Sink frames one turn's relay events for a chat socket.
type Sink struct {
	client *Client
	mu     sync.Mutex
	closed bool
}

func (s *Sink) Token(text string) error {
	return s.write(FrameToken, dto.StreamTokenEvent{Token: text}, false)
}

func (s *Sink) Complete(usage llm.Usage) error {
	return s.write(FrameComplete, dto.StreamCompleteEvent{
		Complete: true,
		Usage:    dto.StreamUsage{TotalTokens: usage.TotalTokens},
	}, true)
}

func (s *Sink) Fail(message string) error {
	return s.write(FrameError, dto.StreamErrorEvent{Error: message}, true)
}

func (s *Sink) write(frameType string, event interface{}, terminal bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return stream.ErrSinkClosed
	}
	if terminal {
		s.closed = true
	}

	frame, err := encodeFrame(frameType, event)
	if err != nil {
		return err
	}
	return s.client.enqueue(frame)
}
