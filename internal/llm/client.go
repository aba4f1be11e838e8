package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"media-analysis-go/internal/types"
)

// Message is one turn of the chat-style request template.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Result is one model invocation's free-text output plus its token
// accounting.
type Result struct {
	Text  string
	Usage types.Usage
}

// Client invokes the inference endpoint once per call. Implementations
// must be safe for sequential reuse across chunks.
type Client interface {
	Invoke(ctx context.Context, messages []Message) (Result, error)
}

// HTTPClient talks to an OpenAI-style chat completion gateway.
type HTTPClient struct {
	URL         string
	APIKey      string
	Model       string
	Temperature float64
	Log         *logrus.Entry

	client *http.Client
}

func NewHTTPClient(url, apiKey, model string, log *logrus.Entry) *HTTPClient {
	return &HTTPClient{
		URL:    url,
		APIKey: apiKey,
		Model:  model,
		Log:    log.WithField("component", "llm"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Invoke posts the message template and returns the first choice's
// content. Server errors are retried with exponential backoff; the
// response text is returned raw, defensive parsing is the caller's job.
func (c *HTTPClient) Invoke(ctx context.Context, messages []Message) (Result, error) {
	if c.URL == "" {
		return Result{}, fmt.Errorf("llm gateway not configured")
	}
	payload := map[string]any{
		"model":       c.Model,
		"messages":    messages,
		"temperature": c.Temperature,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encode llm request: %w", err)
	}

	var out Result
	var lastErr error
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(data))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			return err
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("llm server error: status %d", resp.StatusCode)
			return lastErr
		}
		if resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("llm request rejected: status %d body %s", resp.StatusCode, body)
			return backoff.Permanent(lastErr)
		}
		var parsed completionResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			lastErr = fmt.Errorf("decode llm response: %w", err)
			return lastErr
		}
		if len(parsed.Choices) == 0 {
			lastErr = fmt.Errorf("llm response has no choices")
			return lastErr
		}
		out = Result{
			Text: parsed.Choices[0].Message.Content,
			Usage: types.Usage{
				InputTokens:  parsed.Usage.PromptTokens,
				OutputTokens: parsed.Usage.CompletionTokens,
			},
		}
		lastErr = nil
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 90 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		c.Log.WithError(lastErr).Warn("llm invocation failed")
		return Result{}, fmt.Errorf("llm invocation failed: %w", lastErr)
	}
	return out, nil
}
