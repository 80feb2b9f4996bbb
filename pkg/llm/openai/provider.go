package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"time"

	"agent-catalog-be/internal/pkg/logger"
	"agent-catalog-be/pkg/llm"
)

const doneSentinel = "[DONE]"

type OpenAIProvider struct {
	BaseURL     string
	APIKey      string
	ModelName   string
	Client      *http.Client
	ReadTimeout time.Duration
	Defaults    llm.Options
	logger      logger.ILogger
}

// Ensure OpenAIProvider implements LLMProvider
var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(baseURL, apiKey, modelName string, connectTimeout, readTimeout time.Duration, defaults llm.Options, log logger.ILogger) *OpenAIProvider {
	return &OpenAIProvider{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		ModelName:   modelName,
		Client:      llm.NewStreamingClient(connectTimeout),
		ReadTimeout: readTimeout,
		Defaults:    defaults,
		logger:      log,
	}
}

// --- Request/Response structs (Internal to this package) ---

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	Temperature   float64        `json:"temperature"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Stream        bool           `json:"stream"`
	StreamOptions *streamOptions `json:"stream_options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// --- Interface Implementation ---

func (o *OpenAIProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) iter.Seq2[llm.Chunk, error] {
	return func(yield func(llm.Chunk, error) bool) {
		options := llm.ApplyOptions(o.Defaults, opts...)
		if options.Model == "" {
			options.Model = o.ModelName
		}

		streamCtx, idle, stop := llm.WithIdleTimeout(ctx, o.ReadTimeout)
		defer stop()

		started := time.Now()
		body, err := o.open(streamCtx, history, options)
		if err != nil {
			err = idle.Err(err)
			o.logger.Error("LLM_OPENAI", "Failed to open stream", map[string]interface{}{"model": options.Model, "error": err.Error()})
			yield(llm.Chunk{}, err)
			return
		}
		defer body.Close()

		reader := newEventReader(body)
		var usage llm.Usage
		fragments := 0

		for {
			data, err := reader.Next()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
					err = llm.ErrStreamTruncated
				}
				err = idle.Err(err)
				o.logger.Error("LLM_OPENAI", "Stream aborted", map[string]interface{}{"fragments": fragments, "error": err.Error()})
				yield(llm.Chunk{}, err)
				return
			}
			idle.Resume()

			if string(data) == doneSentinel {
				break
			}

			var chunk streamChunk
			if err := json.Unmarshal(data, &chunk); err != nil {
				yield(llm.Chunk{}, fmt.Errorf("decode stream chunk: %w", err))
				return
			}
			if chunk.Error != nil {
				yield(llm.Chunk{}, fmt.Errorf("openai stream error (%s): %s", chunk.Error.Type, chunk.Error.Message))
				return
			}
			if chunk.Usage != nil {
				usage = llm.Usage{
					PromptTokens:     chunk.Usage.PromptTokens,
					CompletionTokens: chunk.Usage.CompletionTokens,
					TotalTokens:      chunk.Usage.TotalTokens,
				}
			}

			for _, choice := range chunk.Choices {
				if choice.Delta.Content == "" {
					continue
				}
				fragments++
				idle.Pause()
				if !yield(llm.Chunk{Text: choice.Delta.Content}, nil) {
					o.logger.Info("LLM_OPENAI", "Stream released by consumer", map[string]interface{}{"fragments": fragments})
					return
				}
				idle.Resume()
			}
		}

		o.logger.Info("LLM_OPENAI", "Stream completed", map[string]interface{}{
			"model":        options.Model,
			"fragments":    fragments,
			"total_tokens": usage.TotalTokens,
			"duration_ms":  time.Since(started).Milliseconds(),
		})
		yield(llm.Chunk{Usage: &usage}, nil)
	}
}

func (o *OpenAIProvider) open(ctx context.Context, history []llm.Message, options llm.Options) (io.ReadCloser, error) {
	messages := make([]chatMessage, len(history))
	for i, msg := range history {
		messages[i] = chatMessage{Role: msg.Role, Content: msg.Content}
	}

	payloadBytes, err := json.Marshal(chatRequest{
		Model:         options.Model,
		Messages:      messages,
		Temperature:   options.Temperature,
		MaxTokens:     options.MaxTokens,
		Stream:        true,
		StreamOptions: &streamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/chat/completions", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp.Body, nil
}
