package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(content string) string {
	return fmt.Sprintf("{\"model\":\"llama3\",\"message\":{\"role\":\"assistant\",\"content\":%q},\"done\":false}\n", content)
}

func newTestProvider(url string, readTimeout time.Duration) *OllamaProvider {
	return NewOllamaProvider(url, "llama3", time.Second, readTimeout,
		llm.Options{Temperature: 0.7, MaxTokens: 2000}, logger.NewNopLogger())
}

func drain(p llm.LLMProvider) ([]string, *llm.Usage, error) {
	var texts []string
	var usage *llm.Usage
	for chunk, err := range p.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hola"}}) {
		if err != nil {
			return texts, usage, err
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
			continue
		}
		texts = append(texts, chunk.Text)
	}
	return texts, usage, nil
}

func TestChatStreamSumsPromptAndEvalCounts(t *testing.T) {
	var captured ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		fmt.Fprint(w, line("Uno"))
		fmt.Fprint(w, line(" dos"))
		fmt.Fprint(w, "\n")
		fmt.Fprint(w, "{\"model\":\"llama3\",\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true,\"prompt_eval_count\":26,\"eval_count\":12}\n")
	}))
	defer server.Close()

	texts, usage, err := drain(newTestProvider(server.URL, time.Second))

	require.NoError(t, err)
	assert.Equal(t, []string{"Uno", " dos"}, texts)
	require.NotNil(t, usage)
	assert.Equal(t, 38, usage.TotalTokens)
	assert.True(t, captured.Stream)
	require.NotNil(t, captured.Options)
	assert.Equal(t, 2000, captured.Options.NumPredict)
}

func TestChatStreamErrors(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantTexts []string
		wantErr   string
	}{
		{
			name: "model not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"model 'llama3' not found"}`)
			},
			wantErr: "status 404",
		},
		{
			name: "error line mid stream",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, line("a"))
				fmt.Fprint(w, "{\"error\":\"out of memory\"}\n")
			},
			wantTexts: []string{"a"},
			wantErr:   "out of memory",
		},
		{
			name: "closed before done",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, line("a"))
				fmt.Fprint(w, line("b"))
			},
			wantTexts: []string{"a", "b"},
			wantErr:   llm.ErrStreamTruncated.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			texts, usage, err := drain(newTestProvider(server.URL, time.Second))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantTexts, texts)
			assert.Nil(t, usage)
		})
	}
}

func TestChatStreamReadTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, line("first"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	texts, _, err := drain(newTestProvider(server.URL, 100*time.Millisecond))

	assert.ErrorIs(t, err, llm.ErrReadTimeout)
	assert.Equal(t, []string{"first"}, texts)
}
