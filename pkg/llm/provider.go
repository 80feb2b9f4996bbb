package llm

import (
	"context"
	"errors"
	"iter"
)

var (
	// ErrReadTimeout is reported when the backend goes silent for longer than the read timeout.
	ErrReadTimeout = errors.New("model stream read timeout")
	// ErrStreamTruncated is reported when the connection ends before the backend's end-of-stream marker.
	ErrStreamTruncated = errors.New("model stream ended unexpectedly")
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Chunk is one element of a model stream: a text fragment, or (last) the usage tally.
type Chunk struct {
	Text  string
	Usage *Usage
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithMaxTokens(max int) Option {
	return func(o *Options) {
		o.MaxTokens = max
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// ApplyOptions layers opts over defaults.
func ApplyOptions(defaults Options, opts ...Option) Options {
	options := defaults
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// ChatStream sends the history and yields text fragments in emission order, then
	// exactly one Chunk with Usage set. On failure it yields a single error and stops.
	// The sequence is single-pass; breaking out of the loop releases the connection.
	ChatStream(ctx context.Context, history []Message, options ...Option) iter.Seq2[Chunk, error]
}
