package stream

import (
	"bufio"
	"bytes"
	"testing"

	"agent-catalog-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSESinkFraming(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSSESink(bufio.NewWriter(&buf))

	require.NoError(t, sink.Token("Hola"))
	require.NoError(t, sink.Token(" \"mundo\"\n"))
	require.NoError(t, sink.Complete(llm.Usage{TotalTokens: 42}))

	assert.Equal(t,
		"data: {\"token\":\"Hola\"}\n\n"+
			"data: {\"token\":\" \\\"mundo\\\"\\n\"}\n\n"+
			"data: {\"complete\":true,\"usage\":{\"total_tokens\":42}}\n\n",
		buf.String())
}

func TestSSESinkAcceptsOneTerminalEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSSESink(bufio.NewWriter(&buf))

	require.NoError(t, sink.Fail("Error procesando respuesta"))
	assert.ErrorIs(t, sink.Complete(llm.Usage{}), ErrSinkClosed)
	assert.ErrorIs(t, sink.Token("tarde"), ErrSinkClosed)

	assert.Equal(t, "data: {\"error\":\"Error procesando respuesta\"}\n\n", buf.String())
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) { return 0, assert.AnError }

func TestSSESinkReportsDisconnectedClient(t *testing.T) {
	sink := NewSSESink(bufio.NewWriterSize(brokenWriter{}, 16))

	assert.Error(t, sink.Token("hola"))
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{FailAfter: 2}

	require.NoError(t, rec.Token("a"))
	require.NoError(t, rec.Token("b"))
	assert.Error(t, rec.Token("c"))
	assert.Equal(t, "ab", rec.Text())

	require.NoError(t, rec.Complete(llm.Usage{TotalTokens: 3}))
	assert.ErrorIs(t, rec.Fail("x"), ErrSinkClosed)
}

func TestSSESinkHeartbeat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSSESink(bufio.NewWriter(&buf))

	require.NoError(t, sink.Heartbeat())
	require.NoError(t, sink.Complete(llm.Usage{TotalTokens: 1}))
	assert.ErrorIs(t, sink.Heartbeat(), ErrSinkClosed)

	assert.Equal(t, ": ping\n\ndata: {\"complete\":true,\"usage\":{\"total_tokens\":1}}\n\n", buf.String())
	assert.Error(t, NewSSESink(bufio.NewWriterSize(brokenWriter{}, 16)).Heartbeat())
}
