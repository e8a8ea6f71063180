package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "http://localhost:8080", "http://localhost:8080"},
		{"trailing slash", "http://localhost:8080/", "http://localhost:8080"},
		{"v1 suffix", "http://localhost:8080/v1", "http://localhost:8080"},
		{"v1 with trailing slash", "http://localhost:8080/v1/", "http://localhost:8080"},
		{"whitespace", "  https://tabby.example.com/v1  ", "https://tabby.example.com"},
		{"sub path", "https://example.com/tabby/v1", "https://example.com/tabby"},
		{"doubled v1", "http://localhost:8080/v1/v1", "http://localhost:8080"},
		{"doubled v1 with slashes", "http://localhost:8080/v1/v1/", "http://localhost:8080"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeEndpoint(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			// Idempotent.
			again, err := NormalizeEndpoint(got)
			require.NoError(t, err)
			assert.Equal(t, tc.want, again)
		})
	}
}

func TestNormalizeEndpointRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "localhost:8080", "ftp://example.com", "http://"} {
		t.Run(in, func(t *testing.T) {
			_, err := NormalizeEndpoint(in)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TABBY_ENDPOINT", "")
	t.Setenv("TABBY_TOKEN", "")
	t.Setenv("TABBY_REQUEST_TIMEOUT", "")

	conf, err := LoadConfig(false)
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, conf.Endpoint)
	assert.Equal(t, "http://localhost:8080/v1", conf.APIBase())
	assert.Equal(t, 30*time.Second, conf.RequestTimeout)
	assert.Equal(t, 0.7, conf.Temperature)
	assert.Zero(t, conf.MaxOutputTokens)
	assert.Zero(t, conf.RequestsPerMinute)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TABBY_ENDPOINT", "https://tabby.internal:9090/v1/")
	t.Setenv("TABBY_TOKEN", "auth_abc123")
	t.Setenv("TABBY_CHAT_MODEL", "Qwen2-1.5B-Instruct")
	t.Setenv("TABBY_REQUEST_TIMEOUT", "90s")
	t.Setenv("TABBY_MAX_OUTPUT_TOKENS", "512")
	t.Setenv("TABBY_TEMPERATURE", "0.2")
	t.Setenv("TABBY_RPM", "30")

	conf, err := LoadConfig(false)
	require.NoError(t, err)

	assert.Equal(t, "https://tabby.internal:9090", conf.Endpoint)
	assert.Equal(t, "auth_abc123", conf.Token)
	assert.Equal(t, "Qwen2-1.5B-Instruct", conf.ChatModel)
	// Completion model defaults to the chat model.
	assert.Equal(t, "Qwen2-1.5B-Instruct", conf.CompletionModel)
	assert.Equal(t, 90*time.Second, conf.RequestTimeout)
	assert.Equal(t, int64(512), conf.MaxOutputTokens)
	assert.Equal(t, 0.2, conf.Temperature)
	assert.Equal(t, 30, conf.RequestsPerMinute)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		t.Setenv("TABBY_REQUEST_TIMEOUT", "soon")
		_, err := LoadConfig(false)
		assert.Error(t, err)
	})

	t.Run("temperature", func(t *testing.T) {
		t.Setenv("TABBY_TEMPERATURE", "3.5")
		_, err := LoadConfig(false)
		assert.Error(t, err)
	})

	t.Run("rpm", func(t *testing.T) {
		t.Setenv("TABBY_RPM", "-1")
		_, err := LoadConfig(false)
		assert.Error(t, err)
	})
}
