package modelgateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerator_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-oss20b", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Contains(t, req.Messages[0].Content, "bone density")
		assert.EqualValues(t, 1024, req.Options["num_predict"])

		resp := chatResponse{Done: true}
		resp.Message.Content = "  Bone density decreased [1].  "
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "gpt-oss20b", 30*time.Second, 0, discardLogger())

	resp, err := gen.Generate(context.Background(), "What happens to bone density?", 1024)
	require.NoError(t, err)
	assert.Equal(t, "Bone density decreased [1].", resp.Text)
	assert.True(t, resp.Done)
}

func TestOllamaGenerator_Generate_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("model loading"))
	}))
	defer server.Close()

	gen := NewOllamaGenerator(server.URL, "m", 30*time.Second, 0, discardLogger())

	_, err := gen.Generate(context.Background(), "prompt", 128)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestOllamaGenerator_RateLimiterHonorsContextCancel(t *testing.T) {
	gen := NewOllamaGenerator("http://localhost:11434", "m", time.Second, 0.001, discardLogger())

	// Exhaust the single burst token, then the next call must block until
	// the context deadline fires.
	_ = gen.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := gen.Generate(ctx, "prompt", 128)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestOllamaGenerator_Version(t *testing.T) {
	gen := NewOllamaGenerator("http://localhost:11434", "gpt-oss20b", time.Second, 0, discardLogger())
	assert.Equal(t, "gpt-oss20b", gen.Version())
}
