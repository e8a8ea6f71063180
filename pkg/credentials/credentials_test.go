package credentials

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EternisAI/tabby-provider/pkg/config"
)

func writeAgentConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func TestResolveExplicitTokenWins(t *testing.T) {
	path := writeAgentConfig(t, `
[server]
endpoint = "http://tabby.lan:8080"
token = "auth_from_agent"
`)

	cfg := &config.Config{
		Endpoint:        "http://localhost:9999",
		Token:           "auth_explicit",
		AgentConfigPath: path,
	}

	creds := Resolve(testLogger(), cfg)
	assert.Equal(t, "auth_explicit", creds.Token)
	assert.Equal(t, "config", creds.Source)
	assert.Equal(t, "http://localhost:9999", creds.Endpoint)
}

func TestResolveFromAgentConfig(t *testing.T) {
	path := writeAgentConfig(t, `
[server]
endpoint = "http://tabby.lan:8080/"
token = "auth_from_agent"
`)

	cfg := &config.Config{
		Endpoint:        config.DefaultEndpoint,
		AgentConfigPath: path,
	}

	creds := Resolve(testLogger(), cfg)
	assert.Equal(t, "auth_from_agent", creds.Token)
	assert.Equal(t, "agent", creds.Source)
	// Default endpoint yields to the one the editor is paired with,
	// normalized.
	assert.Equal(t, "http://tabby.lan:8080", creds.Endpoint)
}

func TestResolveAgentEndpointIgnoredWhenConfigured(t *testing.T) {
	path := writeAgentConfig(t, `
[server]
endpoint = "http://tabby.lan:8080"
token = "auth_from_agent"
`)

	cfg := &config.Config{
		Endpoint:        "http://gpu-box:8080",
		AgentConfigPath: path,
	}

	creds := Resolve(testLogger(), cfg)
	assert.Equal(t, "auth_from_agent", creds.Token)
	assert.Equal(t, "http://gpu-box:8080", creds.Endpoint)
}

func TestResolveMissingFile(t *testing.T) {
	cfg := &config.Config{
		Endpoint:        config.DefaultEndpoint,
		AgentConfigPath: filepath.Join(t.TempDir(), "nope", "config.toml"),
	}

	creds := Resolve(testLogger(), cfg)
	assert.Empty(t, creds.Token)
	assert.Empty(t, creds.Source)
	assert.Equal(t, config.DefaultEndpoint, creds.Endpoint)
}

func TestResolveMalformedFile(t *testing.T) {
	path := writeAgentConfig(t, `this is not toml = = =`)

	cfg := &config.Config{
		Endpoint:        config.DefaultEndpoint,
		AgentConfigPath: path,
	}

	creds := Resolve(testLogger(), cfg)
	assert.Empty(t, creds.Token)
	assert.Equal(t, config.DefaultEndpoint, creds.Endpoint)
}

func TestResolveEmptyAgentFile(t *testing.T) {
	path := writeAgentConfig(t, "")

	cfg := &config.Config{
		Endpoint:        config.DefaultEndpoint,
		AgentConfigPath: path,
	}

	creds := Resolve(testLogger(), cfg)
	assert.Empty(t, creds.Token)
	assert.Empty(t, creds.Source)
}
