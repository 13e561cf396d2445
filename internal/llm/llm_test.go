package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("openai default", func(t *testing.T) {
		c, err := New(Config{APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "OpenAI", c.Name())
	})

	t.Run("anthropic", func(t *testing.T) {
		c, err := New(Config{Provider: "Anthropic", APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "Anthropic", c.Name())
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := New(Config{Provider: "openai"})
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(Config{Provider: "llama", APIKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown provider")
	})
}

// capture records the single request a fake provider receives.
type capture struct {
	calls int32
	path  string
	auth  string
	body  map[string]any
}

func fakeProvider(t *testing.T, status int, reply string) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&c.calls, 1)
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		if c.auth == "" {
			c.auth = r.Header.Get("X-Api-Key")
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &c.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func openAIReply(t *testing.T, content string) string {
	t.Helper()
	data, err := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
	})
	require.NoError(t, err)
	return string(data)
}

func TestOpenAI_Complete(t *testing.T) {
	srv, got := fakeProvider(t, http.StatusOK, openAIReply(t, `{"rating":"8/10"}`))
	c := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL})

	text, err := c.Complete(context.Background(), Request{
		System:      "system prompt",
		User:        "user prompt",
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"rating":"8/10"}`, text)

	assert.Equal(t, int32(1), got.calls)
	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-test", got.auth)
	assert.Equal(t, "gpt-4o", got.body["model"])
	assert.InDelta(t, 0.7, got.body["temperature"], 1e-9)
	assert.EqualValues(t, 2000, got.body["max_tokens"])
	msgs, ok := got.body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAI_NoChoices(t *testing.T) {
	srv, _ := fakeProvider(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"gpt-4o","choices":[]}`)
	c := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestOpenAI_APIErrorNotRetried(t *testing.T) {
	srv, got := fakeProvider(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`)
	c := NewOpenAI(Config{APIKey: "sk-test", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
	assert.Equal(t, int32(1), got.calls)
}

func TestAnthropic_Complete(t *testing.T) {
	reply := `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
		"content":[{"type":"text","text":"looks fine"}],"stop_reason":"end_turn",
		"usage":{"input_tokens":3,"output_tokens":2}}`
	srv, got := fakeProvider(t, http.StatusOK, reply)
	c := NewAnthropic(Config{APIKey: "ant-test", BaseURL: srv.URL, Model: "claude-sonnet-4-5"})

	text, err := c.Complete(context.Background(), Request{System: "sys", User: "user", Temperature: 0.7, MaxTokens: 2000})
	require.NoError(t, err)
	assert.Equal(t, "looks fine", text)
	assert.Equal(t, "/v1/messages", got.path)
	assert.Equal(t, "ant-test", got.auth)
	assert.EqualValues(t, 2000, got.body["max_tokens"])
	assert.Equal(t, "claude-sonnet-4-5", got.body["model"])
}

func TestAnthropic_NoTextBlock(t *testing.T) {
	reply := `{"id":"msg_1","type":"message","role":"assistant","model":"m","content":[],
		"stop_reason":"end_turn","usage":{"input_tokens":1,"output_tokens":0}}`
	srv, _ := fakeProvider(t, http.StatusOK, reply)
	c := NewAnthropic(Config{APIKey: "ant-test", BaseURL: srv.URL})

	_, err := c.Complete(context.Background(), Request{User: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}
