package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid config",
			config: Config{APIKey: "test-key"},
		},
		{
			name:    "missing API key",
			config:  Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newAnthropicClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func anthropicTestServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		resp := map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": content},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestAnthropicChoose(t *testing.T) {
	srv := anthropicTestServer(t, `{"chosen_id": "TAX-011", "reasoning": "matches type"}`, http.StatusOK)
	defer srv.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	choice, err := client.Choose(context.Background(), "pick one")
	require.NoError(t, err)
	assert.Equal(t, "TAX-011", choice.ChosenID)
	assert.Equal(t, "matches type", choice.Reasoning)
}

func TestAnthropicChooseRateLimited(t *testing.T) {
	srv := anthropicTestServer(t, "", http.StatusTooManyRequests)
	defer srv.Close()

	client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Choose(context.Background(), "pick one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestNewClientFactory(t *testing.T) {
	client, err := NewClient(Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, client)

	client, err = NewClient(Config{Provider: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, client)

	client, err = NewClient(Config{Provider: ""})
	require.NoError(t, err)
	assert.Nil(t, client)

	_, err = NewClient(Config{Provider: "cohere"})
	require.Error(t, err)
}
