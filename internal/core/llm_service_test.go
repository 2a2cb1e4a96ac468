package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() CompletionRequest {
	return CompletionRequest{
		APIKey: "sk-test",
		Model:  "openai/gpt-3.5-turbo",
		Messages: []ChatMessage{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi"},
			{Role: "user", Content: "how are you?"},
		},
		Temperature: 0.7,
	}
}

func TestLLMService_Complete_SendsExpectedRequest(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"fine, thanks"}}]}`))
	}))
	defer srv.Close()

	svc := NewLLMService(srv.URL, 5*time.Second, WithAttribution("https://chat.example", "routerchat"))
	reply, err := svc.Complete(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "fine, thanks", reply)

	assert.Equal(t, "Bearer sk-test", gotHeaders.Get("Authorization"))
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Equal(t, "https://chat.example", gotHeaders.Get("HTTP-Referer"))
	assert.Equal(t, "routerchat", gotHeaders.Get("X-Title"))

	assert.Equal(t, "openai/gpt-3.5-turbo", gotBody["model"])
	assert.InDelta(t, 0.7, gotBody["temperature"], 1e-9)
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	first := msgs[0].(map[string]any)
	assert.Equal(t, map[string]any{"role": "user", "content": "hello"}, first)
}

func TestLLMService_Complete_SendsZeroTemperature(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	req := sampleRequest()
	req.Temperature = 0
	_, err := NewLLMService(srv.URL, time.Second).Complete(context.Background(), req)
	require.NoError(t, err)

	temp, ok := gotBody["temperature"]
	require.True(t, ok, "temperature must be sent even when zero")
	assert.Equal(t, float64(0), temp)
}

func TestLLMService_Complete_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantFormat bool
		wantText   string
	}{
		{"unauthorized with provider message", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found","code":401}}`, false, "No auth credentials found"},
		{"server error plain body", http.StatusBadGateway, `upstream exploded`, false, "upstream exploded"},
		{"rate limited empty body", http.StatusTooManyRequests, ``, false, "429"},
		{"invalid json", http.StatusOK, `<html>oops</html>`, true, "not valid JSON"},
		{"no choices", http.StatusOK, `{"choices":[]}`, true, "missing choices[0].message.content"},
		{"missing message", http.StatusOK, `{"id":"gen-1"}`, true, "missing choices[0].message.content"},
		{"null content", http.StatusOK, `{"choices":[{"message":{"content":null}}]}`, true, "not a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewLLMService(srv.URL, time.Second).Complete(context.Background(), sampleRequest())
			require.Error(t, err)

			var te *TransportError
			var fe *ResponseFormatError
			if tt.wantFormat {
				require.True(t, errors.As(err, &fe), "want ResponseFormatError, got %T", err)
				assert.Contains(t, err.Error(), FormatErrorPrefix)
			} else {
				require.True(t, errors.As(err, &te), "want TransportError, got %T", err)
				assert.Equal(t, tt.status, te.StatusCode)
				assert.Contains(t, err.Error(), TransportErrorPrefix)
			}
			assert.Contains(t, err.Error(), tt.wantText)
		})
	}
}

func TestLLMService_Complete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewLLMService(srv.URL, 50*time.Millisecond).Complete(context.Background(), sampleRequest())
	var te *TransportError
	require.True(t, errors.As(err, &te), "want TransportError, got %T", err)
	assert.Zero(t, te.StatusCode)
}

func TestLLMService_Complete_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewLLMService(url, time.Second).Complete(context.Background(), sampleRequest())
	var te *TransportError
	require.True(t, errors.As(err, &te), "want TransportError, got %T", err)
	assert.Contains(t, err.Error(), TransportErrorPrefix)
}
