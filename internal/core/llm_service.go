package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 4 << 20

// Completer produces one assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	APIKey      string
	Model       string
	Messages    []ChatMessage
	Temperature float64
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

// LLMService talks to an OpenAI-compatible chat-completions endpoint.
// The API key is per request: it belongs to the user, not the server.
type LLMService struct {
	endpoint   string
	referer    string
	title      string
	timeout    time.Duration
	httpClient *http.Client
}

type LLMOption func(*LLMService)

// WithAttribution sets the HTTP-Referer and X-Title headers OpenRouter uses
// to attribute traffic to an app.
func WithAttribution(referer, title string) LLMOption {
	return func(s *LLMService) {
		s.referer = referer
		s.title = title
	}
}

func WithHTTPClient(c *http.Client) LLMOption {
	return func(s *LLMService) {
		s.httpClient = c
	}
}

func NewLLMService(endpoint string, timeout time.Duration, opts ...LLMOption) *LLMService {
	s := &LLMService{
		endpoint:   endpoint,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete sends a single request and returns choices[0].message.content.
// There are no retries: a failure is returned as *TransportError or
// *ResponseFormatError.
func (s *LLMService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	if s.referer != "" {
		httpReq.Header.Set("HTTP-Referer", s.referer)
	}
	if s.title != "" {
		httpReq.Header.Set("X-Title", s.title)
	}

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &TransportError{StatusCode: resp.StatusCode, Message: providerErrorMessage(resp.Status, body)}
	}

	if !gjson.ValidBytes(body) {
		return "", &ResponseFormatError{Message: "response body is not valid JSON"}
	}
	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", &ResponseFormatError{Message: "missing choices[0].message.content"}
	}
	if content.Type != gjson.String {
		return "", &ResponseFormatError{Message: fmt.Sprintf("choices[0].message.content is %s, not a string", content.Type)}
	}
	return content.String(), nil
}

// providerErrorMessage prefers the provider's own error.message and falls
// back to the status line.
func providerErrorMessage(status string, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "error.message"); msg.Exists() && msg.String() != "" {
			return msg.String()
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" || len(text) > 200 {
		return status
	}
	return status + ": " + text
}
