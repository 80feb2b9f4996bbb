package ollama

import (
	"bufio"
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

type OllamaProvider struct {
	BaseURL     string
	ModelName   string
	Client      *http.Client
	ReadTimeout time.Duration
	Defaults    llm.Options
	logger      logger.ILogger
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, connectTimeout, readTimeout time.Duration, defaults llm.Options, log logger.ILogger) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:     baseURL,
		ModelName:   modelName,
		Client:      llm.NewStreamingClient(connectTimeout),
		ReadTimeout: readTimeout,
		Defaults:    defaults,
		logger:      log,
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// One NDJSON line of a streamed /api/chat response.
type ollamaChatResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) ChatStream(ctx context.Context, history []llm.Message, opts ...llm.Option) iter.Seq2[llm.Chunk, error] {
	return func(yield func(llm.Chunk, error) bool) {
		options := llm.ApplyOptions(o.Defaults, opts...)
		if options.Model == "" {
			options.Model = o.ModelName
		}

		streamCtx, idle, stop := llm.WithIdleTimeout(ctx, o.ReadTimeout)
		defer stop()

		body, err := o.open(streamCtx, history, options)
		if err != nil {
			err = idle.Err(err)
			o.logger.Error("LLM_OLLAMA", "Failed to open stream", map[string]interface{}{"model": options.Model, "error": err.Error()})
			yield(llm.Chunk{}, err)
			return
		}
		defer body.Close()

		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) == 0 {
				if err != nil {
					if errors.Is(err, io.EOF) {
						err = llm.ErrStreamTruncated
					}
					yield(llm.Chunk{}, idle.Err(err))
					return
				}
				continue
			}
			idle.Resume()

			var resp ollamaChatResponse
			if jsonErr := json.Unmarshal(line, &resp); jsonErr != nil {
				yield(llm.Chunk{}, fmt.Errorf("decode stream line: %w", jsonErr))
				return
			}
			if resp.Error != "" {
				yield(llm.Chunk{}, fmt.Errorf("ollama stream error: %s", resp.Error))
				return
			}

			if resp.Message.Content != "" {
				idle.Pause()
				if !yield(llm.Chunk{Text: resp.Message.Content}, nil) {
					return
				}
				idle.Resume()
			}

			if resp.Done {
				usage := llm.Usage{
					PromptTokens:     resp.PromptEvalCount,
					CompletionTokens: resp.EvalCount,
					TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
				}
				o.logger.Info("LLM_OLLAMA", "Stream completed", map[string]interface{}{"model": options.Model, "total_tokens": usage.TotalTokens})
				yield(llm.Chunk{Usage: &usage}, nil)
				return
			}

			// A final line without newline still counts; EOF after it is reported on the next read.
			if err != nil && !errors.Is(err, io.EOF) {
				yield(llm.Chunk{}, idle.Err(err))
				return
			}
		}
	}
}

func (o *OllamaProvider) open(ctx context.Context, history []llm.Message, options llm.Options) (io.ReadCloser, error) {
	// Map generic messages to Ollama messages
	ollamaMessages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		ollamaMessages[i] = ollamaMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: ollamaMessages,
		Stream:   true,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}
	return resp.Body, nil
}
