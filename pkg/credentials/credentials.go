// Package credentials resolves the token and endpoint used to reach a Tabby
// server. Besides explicit configuration, it understands the agent config
// file the Tabby IDE extensions maintain on the host machine, so a server
// registered once in the editor works here without re-entering the token.
package credentials

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/EternisAI/tabby-provider/pkg/config"
)

// ServerCredentials is the outcome of credential resolution.
type ServerCredentials struct {
	Endpoint string
	Token    string
	// Source records where the token came from: "config" or "agent".
	// Empty when no token was found anywhere.
	Source string
}

// agentConfig mirrors the [server] table of ~/.tabby-client/agent/config.toml.
type agentConfig struct {
	Server struct {
		Endpoint string `toml:"endpoint"`
		Token    string `toml:"token"`
	} `toml:"server"`
}

// DefaultAgentConfigPath returns the per-user Tabby agent config location, or
// empty when the home directory cannot be determined.
func DefaultAgentConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".tabby-client", "agent", "config.toml")
}

// Resolve returns credentials for cfg. An explicit token wins; otherwise the
// agent config file is consulted. A missing or malformed agent file is not an
// error, it just contributes nothing.
func Resolve(logger *log.Logger, cfg *config.Config) ServerCredentials {
	if cfg.Token != "" {
		return ServerCredentials{Endpoint: cfg.Endpoint, Token: cfg.Token, Source: "config"}
	}

	path := cfg.AgentConfigPath
	if path == "" {
		path = DefaultAgentConfigPath()
	}
	if path == "" {
		return ServerCredentials{Endpoint: cfg.Endpoint}
	}

	creds, err := readAgentConfig(path)
	if err != nil {
		logger.Debug("Tabby agent config not usable", "path", path, "error", err)
		return ServerCredentials{Endpoint: cfg.Endpoint}
	}
	if creds.Token == "" && creds.Endpoint == "" {
		return ServerCredentials{Endpoint: cfg.Endpoint}
	}

	logger.Debug("Resolved credentials from Tabby agent config", "path", path)
	out := ServerCredentials{Endpoint: cfg.Endpoint, Token: creds.Token, Source: "agent"}

	// The agent file names the server the editor is paired with. Honor it
	// only when the adapter endpoint was left at its default.
	if creds.Endpoint != "" && cfg.Endpoint == config.DefaultEndpoint {
		if normalized, err := config.NormalizeEndpoint(creds.Endpoint); err == nil {
			out.Endpoint = normalized
		}
	}
	return out
}

func readAgentConfig(path string) (ServerCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServerCredentials{}, err
	}

	var parsed agentConfig
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return ServerCredentials{}, err
	}
	return ServerCredentials{
		Endpoint: parsed.Server.Endpoint,
		Token:    parsed.Server.Token,
	}, nil
}
