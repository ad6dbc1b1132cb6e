package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresKey(t *testing.T) {
	assert.Nil(t, NewClient(Config{APIKey: "  "}))
	assert.NotNil(t, NewClient(Config{APIKey: "sk-test", BaseURL: "https://example.com/v1/"}))
}

func TestCheckModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/models/gpt-4o":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"gpt-4o","object":"model","created":1715367049,"owned_by":"system"}`))
		default:
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
		}
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Timeout: 5 * time.Second})
	require.NotNil(t, client)

	m, err := CheckModel(context.Background(), client, "gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", m.ID)

	_, err = CheckModel(context.Background(), client, "does-not-exist")
	assert.Error(t, err)

	_, err = CheckModel(context.Background(), nil, "gpt-4o")
	assert.Error(t, err)
}

func TestNewRequiresModel(t *testing.T) {
	cfg := Config{APIKey: "sk-test", Model: " "}
	_, err := cfg.New(context.Background())
	assert.Error(t, err)
}
