// Package llmtest provides a scripted LLMProvider for tests.
package llmtest

import (
	"context"
	"iter"
	"sync"

	"agent-catalog-be/pkg/llm"
)

// ScriptedProvider replays Fragments, then either Err or the Usage tally.
type ScriptedProvider struct {
	Fragments []string
	Tokens    int
	// FailAfter, when >= 0 together with Err, emits Err after that many fragments.
	FailAfter int
	Err       error
	// Gate, if set, is received from before every fragment.
	Gate chan struct{}

	mu       sync.Mutex
	calls    int
	history  []llm.Message
	yielded  int
	released bool
}

var _ llm.LLMProvider = &ScriptedProvider{}

func NewScriptedProvider(tokens int, fragments ...string) *ScriptedProvider {
	return &ScriptedProvider{Fragments: fragments, Tokens: tokens, FailAfter: -1}
}

// Failing emits the given fragments, then err.
func Failing(err error, fragments ...string) *ScriptedProvider {
	return &ScriptedProvider{Fragments: fragments, FailAfter: len(fragments), Err: err}
}

func (p *ScriptedProvider) ChatStream(ctx context.Context, history []llm.Message, _ ...llm.Option) iter.Seq2[llm.Chunk, error] {
	p.mu.Lock()
	p.calls++
	p.history = append([]llm.Message(nil), history...)
	p.mu.Unlock()

	return func(yield func(llm.Chunk, error) bool) {
		for i, fragment := range p.Fragments {
			if p.Err != nil && p.FailAfter == i {
				yield(llm.Chunk{}, p.Err)
				return
			}
			if p.Gate != nil {
				select {
				case <-p.Gate:
				case <-ctx.Done():
					yield(llm.Chunk{}, ctx.Err())
					return
				}
			}
			if ctx.Err() != nil {
				yield(llm.Chunk{}, ctx.Err())
				return
			}
			p.mu.Lock()
			p.yielded++
			p.mu.Unlock()
			if !yield(llm.Chunk{Text: fragment}, nil) {
				p.mu.Lock()
				p.released = true
				p.mu.Unlock()
				return
			}
		}
		if p.Err != nil {
			yield(llm.Chunk{}, p.Err)
			return
		}
		yield(llm.Chunk{Usage: &llm.Usage{TotalTokens: p.Tokens, CompletionTokens: p.Tokens}}, nil)
	}
}

func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// History returns the messages sent on the last call.
func (p *ScriptedProvider) History() []llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history
}

func (p *ScriptedProvider) Yielded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.yielded
}

// Released reports whether the consumer stopped iterating early.
func (p *ScriptedProvider) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
