package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:11434", "http://localhost:11434/api/generate"},
		{"http://localhost:11434/", "http://localhost:11434/api/generate"},
		{"", "http://localhost:11434/api/generate"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, generateURL(tc.base), "base=%q", tc.base)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(WithModel("  "), WithBaseURL(""))
	require.Equal(t, DefaultBaseURL, c.baseURL)
	require.Equal(t, DefaultModel, c.Model())
	require.Equal(t, 120*time.Second, c.httpClient.Timeout)

	c = NewClient(WithTimeout(5 * time.Second))
	require.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestGenerate_HappyPath(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"model":"llama3","response":"नमस्ते","done":true}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithModel("llama3"))
	out, err := c.Generate(context.Background(), "say hi", "you are a host", 200)
	require.NoError(t, err)
	require.Equal(t, "नमस्ते", out)
	require.Equal(t, "llama3", got.Model)
	require.Equal(t, "say hi", got.Prompt)
	require.Equal(t, "you are a host", got.System)
	require.False(t, got.Stream)
	require.NotNil(t, got.Options)
	require.Equal(t, 200, got.Options.NumPredict)
}

func TestGenerate_OmitsEmptySystemAndOptions(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Generate(context.Background(), "hi", "", 0)
	require.NoError(t, err)
	require.NotContains(t, raw, "system")
	require.NotContains(t, raw, "options")
	require.Equal(t, false, raw["stream"])
}

func TestGenerate_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Generate(context.Background(), "hi", "", 5)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusNotFound, statusErr.HTTPStatusCode())
	require.Contains(t, statusErr.Body, "model not found")
}

func TestGenerate_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(WithBaseURL(url)).Generate(context.Background(), "hi", "", 5)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestGenerate_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Generate(context.Background(), "hi", "", 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode response")
}

func TestGenerate_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":"late"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(WithBaseURL(srv.URL)).Generate(ctx, "hi", "", 5)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestPing(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":"hi"}`))
	}))
	defer srv.Close()

	require.NoError(t, NewClient(WithBaseURL(srv.URL)).Ping(context.Background()))
	require.Equal(t, "Hello", got.Prompt)
	require.Equal(t, 5, got.Options.NumPredict)
}
